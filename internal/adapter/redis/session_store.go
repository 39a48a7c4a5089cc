package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/jonboulle/clockwork"
	nanoid "github.com/matoous/go-nanoid/v2"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// 32 symbols of a 62-letter alphabet is about 190 bits of entropy.
	sessionIDLength = 32
)

type sessionRecord struct {
	ActorType string    `json:"actor_type"`
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps sessions as JSON strings under "session:<id>".
// Expiry is delegated to the Redis key TTL; Get additionally rejects
// records whose recorded expiry has passed but which Redis has not yet evicted.
type SessionStore struct {
	rdb   goredis.Cmdable
	clock clockwork.Clock
	ttl   time.Duration
	newID func() (string, error)
}

var _ domain.SessionStore = (*SessionStore)(nil)

func NewSessionStore(rdb goredis.Cmdable, clock clockwork.Clock, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, clock: clock, ttl: ttl, newID: newSessionID}
}

func newSessionID() (string, error) {
	id, err := nanoid.Generate(sessionIDAlphabet, sessionIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return id, nil
}

func (s *SessionStore) Create(ctx context.Context, actor domain.Actor) (string, error) {
	if actor.IsZero() || actor.ID() == "" {
		return "", errors.New("cannot create a session for an empty actor")
	}

	id, err := s.newID()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	session := domain.Session{
		ID:        id,
		Actor:     actor,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.Put(ctx, session, s.ttl); err != nil {
		return "", err
	}
	return id, nil
}

// Put stores session under its id for ttl. An existing record with the same id is never overwritten.
func (s *SessionStore) Put(ctx context.Context, session domain.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sessionRecord{
		ActorType: string(session.Actor.Type()),
		ActorID:   session.Actor.ID(),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	stored, err := s.rdb.SetNX(ctx, sessionKey(session.ID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !stored {
		return domain.ErrSessionConflict
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}

	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	actor, err := domain.ParseActor(rec.ActorType, rec.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session actor: %w", err)
	}

	session := &domain.Session{
		ID:        sessionID,
		Actor:     actor,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	if session.Expired(s.clock.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
