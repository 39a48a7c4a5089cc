// Package app provides the application service layer.
//
// Resolves session credentials into actors, coordinates which GitHub App
// installation each manager is linked to, and serves per-actor notifications.
// Depends on domain interfaces, not concrete implementations.
package app
