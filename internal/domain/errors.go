package domain

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionConflict = errors.New("session id collision")

	ErrManagerNotFound      = errors.New("manager not found")
	ErrInstallationNotFound = errors.New("installation not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrAllInstallationsClaimed is a normal outcome: every live installation
	// is bound to some other manager.
	ErrAllInstallationsClaimed = errors.New("all installations are claimed")
	ErrUpstreamUnavailable     = errors.New("installation registry unavailable")
	ErrInstallationOwned       = errors.New("installation is linked to another manager")
	ErrAlreadyBound            = errors.New("manager is already linked to an installation")
	ErrBindingContended        = errors.New("binding changed concurrently")
)
