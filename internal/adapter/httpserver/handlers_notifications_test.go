package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNotifications(t *testing.T) {
	var gotLimit int
	var gotActor domain.Actor
	notifs := &mockNotifications{
		listFn: func(_ context.Context, actor domain.Actor, limit int) ([]domain.NotificationEvent, error) {
			gotActor, gotLimit = actor, limit
			return []domain.NotificationEvent{{
				ID:            "n1",
				Partition:     "manager:m1",
				Type:          domain.NotificationWorkerMessage,
				CounterpartID: "w1",
				Status:        domain.StatusUnread,
				CreatedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
				Message:       "done",
			}}, nil
		},
	}
	srv := newTestServer(t, withNotifications(notifs))

	rec := serve(srv, http.MethodGet, "/api/notifications?limit=5", managerSession, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, domain.NewManager("m1"), gotActor)

	var body notificationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "n1", body.Notifications[0].ID)
	assert.Equal(t, "w1", body.Notifications[0].CounterpartID)
}

func TestListNotifications_DefaultLimit(t *testing.T) {
	gotLimit := -1
	notifs := &mockNotifications{
		listFn: func(_ context.Context, _ domain.Actor, limit int) ([]domain.NotificationEvent, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	srv := newTestServer(t, withNotifications(notifs))

	rec := serve(srv, http.MethodGet, "/api/notifications", workerSession, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, gotLimit)
	assert.JSONEq(t, `{"notifications":[]}`, rec.Body.String())
}

func TestListNotifications_InvalidLimit(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/api/notifications?limit=ten", workerSession, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnreadNotifications_RequiresSession(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/api/notifications/unread", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnreadByConversation_KeysByRole(t *testing.T) {
	notifs := &mockNotifications{
		byConvFn: func(_ context.Context, actor domain.Actor) (domain.UnreadSummary, error) {
			if actor.IsManager() {
				return domain.UnreadSummary{ByCounterpart: map[string]int{"w1": 2, "w2": 1}, Total: 3}, nil
			}
			return domain.UnreadSummary{ByCounterpart: map[string]int{"m1": 1}, Total: 1}, nil
		},
	}
	srv := newTestServer(t, withNotifications(notifs))

	rec := serve(srv, http.MethodGet, "/api/notifications/unread-by-conversation", managerSession, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"byWorker":{"w1":2,"w2":1},"total":3}`, rec.Body.String())

	rec = serve(srv, http.MethodGet, "/api/notifications/unread-by-conversation", workerSession, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bySender":{"m1":1},"total":1}`, rec.Body.String())
}

func TestMarkRead(t *testing.T) {
	var gotID string
	notifs := &mockNotifications{
		markReadFn: func(_ context.Context, _ domain.Actor, notifID string) error {
			gotID = notifID
			return nil
		},
	}
	srv := newTestServer(t, withNotifications(notifs))

	rec := serve(srv, http.MethodPatch, "/api/notifications/abc-123/read", workerSession, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc-123", gotID)
}

func TestMarkRead_NotFound(t *testing.T) {
	notifs := &mockNotifications{
		markReadFn: func(context.Context, domain.Actor, string) error {
			return domain.ErrNotificationNotFound
		},
	}
	srv := newTestServer(t, withNotifications(notifs))

	rec := serve(srv, http.MethodPatch, "/api/notifications/missing/read", workerSession, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"not_found"`)
}

func TestMarkAllRead(t *testing.T) {
	notifs := &mockNotifications{
		markAllReadFn: func(context.Context, domain.Actor) (int, error) { return 4, nil },
	}
	srv := newTestServer(t, withNotifications(notifs))

	rec := serve(srv, http.MethodPost, "/api/notifications/mark-all-read", managerSession, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marked":4}`, rec.Body.String())
}

func TestMarkReadFromSender(t *testing.T) {
	var gotCounterpart string
	notifs := &mockNotifications{
		markReadFromFn: func(_ context.Context, _ domain.Actor, counterpartID string) (int, error) {
			gotCounterpart = counterpartID
			return 2, nil
		},
	}
	srv := newTestServer(t, withNotifications(notifs))

	rec := serve(srv, http.MethodPost, "/api/notifications/mark-read-sender", managerSession,
		strings.NewReader(`{"senderId":"w7"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "w7", gotCounterpart)
	assert.JSONEq(t, `{"marked":2}`, rec.Body.String())
}

func TestMarkReadFromSender_Validation(t *testing.T) {
	called := false
	notifs := &mockNotifications{
		markReadFromFn: func(context.Context, domain.Actor, string) (int, error) {
			called = true
			return 0, nil
		},
	}
	srv := newTestServer(t, withNotifications(notifs))

	for _, body := range []string{`{}`, `{"senderId":"  "}`, `{"senderId":`} {
		rec := serve(srv, http.MethodPost, "/api/notifications/mark-read-sender", workerSession,
			strings.NewReader(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.False(t, called)
}
