// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (actor.go, session.go, installation.go, binding.go,
// notification.go, errors.go) hold shared types and the contracts adapters
// implement. No implementation code beyond small value helpers.
package domain
