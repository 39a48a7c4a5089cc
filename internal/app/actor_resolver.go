package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/anandavicky123/syncertica/internal/domain"
)

// ActorResolver turns a session credential into a typed actor. It never writes.
type ActorResolver struct {
	sessions domain.SessionStore
}

func NewActorResolver(sessions domain.SessionStore) *ActorResolver {
	return &ActorResolver{sessions: sessions}
}

// Session returns the live session behind sessionID.
// Missing and expired sessions are reported as ErrUnauthenticated.
func (r *ActorResolver) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.ErrUnauthenticated
	}

	session, err := r.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionExpired) {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *ActorResolver) Resolve(ctx context.Context, sessionID string) (domain.Actor, error) {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return domain.Actor{}, err
	}
	return session.Actor, nil
}
