package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/anandavicky123/syncertica/internal/domain"
)

// --- Mock implementations ---

type mockSessionStore struct {
	createFn func(ctx context.Context, actor domain.Actor) (string, error)
	getFn    func(ctx context.Context, sessionID string) (*domain.Session, error)
	deleteFn func(ctx context.Context, sessionID string) error
}

func (m *mockSessionStore) Create(ctx context.Context, actor domain.Actor) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor)
	}
	return "", fmt.Errorf("not implemented")
}

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, sessionID)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockSessionStore) Delete(ctx context.Context, sessionID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, sessionID)
	}
	return nil
}

type mockRegistry struct {
	mu          sync.Mutex
	enumerateFn func(ctx context.Context) ([]domain.Installation, error)
	issueFn     func(ctx context.Context, installationID int64) (*domain.InstallationToken, error)
	uninstallFn func(ctx context.Context, installationID int64) error
	uninstalled []int64
}

func (m *mockRegistry) Enumerate(ctx context.Context) ([]domain.Installation, error) {
	if m.enumerateFn != nil {
		return m.enumerateFn(ctx)
	}
	return nil, nil
}

func (m *mockRegistry) IssueToken(ctx context.Context, installationID int64) (*domain.InstallationToken, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, installationID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockRegistry) Uninstall(ctx context.Context, installationID int64) error {
	m.mu.Lock()
	m.uninstalled = append(m.uninstalled, installationID)
	m.mu.Unlock()
	if m.uninstallFn != nil {
		return m.uninstallFn(ctx, installationID)
	}
	return nil
}

func staticRegistry(installs ...domain.Installation) *mockRegistry {
	return &mockRegistry{
		enumerateFn: func(context.Context) ([]domain.Installation, error) {
			return slices.Clone(installs), nil
		},
	}
}

func installation(id int64, login string) domain.Installation {
	return domain.Installation{
		ID:        id,
		Account:   domain.Account{Login: login, ID: id * 100, Type: "Organization"},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// fakeBindingStore mimics the Postgres store: a compare-and-set on one row
// plus a unique constraint over non-empty installation ids.
type fakeBindingStore struct {
	mu       sync.Mutex
	bindings map[string]string
	sets     int

	// beforeSet runs ahead of every ConditionalSet, outside the lock.
	beforeSet func(managerID, newID, expected string)
}

func newFakeBindingStore(managers ...string) *fakeBindingStore {
	s := &fakeBindingStore{bindings: map[string]string{}}
	for _, m := range managers {
		s.bindings[m] = ""
	}
	return s
}

func (s *fakeBindingStore) Get(_ context.Context, managerID string) (domain.ManagerBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bindings[managerID]
	if !ok {
		return domain.ManagerBinding{}, domain.ErrManagerNotFound
	}
	return domain.ManagerBinding{ManagerID: managerID, InstallationID: id}, nil
}

func (s *fakeBindingStore) ConditionalSet(_ context.Context, managerID, newID, expected string) (domain.BindResult, error) {
	if s.beforeSet != nil {
		s.beforeSet(managerID, newID, expected)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++

	current, ok := s.bindings[managerID]
	if !ok {
		return 0, domain.ErrManagerNotFound
	}
	if current != expected {
		return domain.BindPreconditionFailed, nil
	}
	if newID != "" {
		for other, id := range s.bindings {
			if other != managerID && id == newID {
				return domain.BindConstraintViolation, nil
			}
		}
	}
	s.bindings[managerID] = newID
	return domain.BindApplied, nil
}

func (s *fakeBindingStore) OwnersOf(_ context.Context, installationIDs []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := map[string]string{}
	for m, id := range s.bindings {
		if id != "" && slices.Contains(installationIDs, id) {
			owners[id] = m
		}
	}
	return owners, nil
}

func (s *fakeBindingStore) Clear(_ context.Context, managerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.bindings[managerID]
	if !ok {
		return "", domain.ErrManagerNotFound
	}
	s.bindings[managerID] = ""
	return prev, nil
}

func (s *fakeBindingStore) bind(managerID, installationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[managerID] = installationID
}

func (s *fakeBindingStore) binding(managerID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindings[managerID]
}

func (s *fakeBindingStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// fakeLedger is an in-memory notification ledger; markReadFn can inject failures.
type fakeLedger struct {
	mu         sync.Mutex
	events     []domain.NotificationEvent
	read       map[string]bool
	nextID     int
	listLimit  int
	markReadFn func(partition, notifID string) error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{read: map[string]bool{}}
}

func (l *fakeLedger) Append(_ context.Context, ev domain.NotificationEvent) (*domain.NotificationEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	ev.ID = fmt.Sprintf("n%d", l.nextID)
	ev.Status = domain.StatusUnread
	l.events = append(l.events, ev)
	return &ev, nil
}

func (l *fakeLedger) List(_ context.Context, partition string, limit int) ([]domain.NotificationEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listLimit = limit
	var out []domain.NotificationEvent
	for i := len(l.events) - 1; i >= 0 && len(out) < limit; i-- {
		if l.events[i].Partition == partition {
			out = append(out, l.withStatus(l.events[i]))
		}
	}
	return out, nil
}

func (l *fakeLedger) Unread(_ context.Context, partition string) ([]domain.NotificationEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.NotificationEvent
	for _, ev := range l.events {
		if ev.Partition == partition && !l.read[ev.ID] {
			out = append(out, l.withStatus(ev))
		}
	}
	return out, nil
}

func (l *fakeLedger) MarkRead(_ context.Context, partition, notifID string) error {
	if l.markReadFn != nil {
		if err := l.markReadFn(partition, notifID); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Partition == partition && ev.ID == notifID {
			l.read[notifID] = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (l *fakeLedger) withStatus(ev domain.NotificationEvent) domain.NotificationEvent {
	ev.Status = domain.StatusUnread
	if l.read[ev.ID] {
		ev.Status = domain.StatusRead
	}
	return ev
}
