package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSession_Manager(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/api/auth/session", managerSession, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"type": "manager", "id": "m1"}, body["actor"])
	assert.Equal(t, "2025-03-02T12:00:00Z", body["expiresAt"])
}

func TestHandleSession_CookieGetsCSRFToken(t *testing.T) {
	srv := newTestServer(t)

	req := withCookie(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), workerSession)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Actor.IsWorker())
	assert.NotEmpty(t, body.CSRFToken)
}

func TestHandleSession_Unauthenticated(t *testing.T) {
	srv := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/api/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLogout(t *testing.T) {
	revoker := &mockSessionRevoker{}
	srv := newTestServer(t, withSessions(revoker))

	rec := serve(srv, http.MethodPost, "/api/auth/logout", workerSession, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{workerSession}, revoker.deleted)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session-id", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestHandleLogout_StoreError(t *testing.T) {
	revoker := &mockSessionRevoker{
		deleteFn: func(context.Context, string) error { return errors.New("redis down") },
	}
	srv := newTestServer(t, withSessions(revoker))

	rec := serve(srv, http.MethodPost, "/api/auth/logout", workerSession, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleLogout_CookieRequiresCSRF(t *testing.T) {
	revoker := &mockSessionRevoker{}
	srv := newTestServer(t, withSessions(revoker))

	req := withCookie(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), workerSession)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.Empty(t, revoker.deleted)
}

func TestHandleLogout_CookieWithCSRFToken(t *testing.T) {
	revoker := &mockSessionRevoker{}
	srv := newTestServer(t, withSessions(revoker))

	// Fetch a token first, as a browser client would.
	req := withCookie(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), workerSession)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	var csrfCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "csrf_token" {
			csrfCookie = ck
		}
	}
	require.NotNil(t, csrfCookie)

	req = withCookie(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), workerSession)
	req.AddCookie(csrfCookie)
	req.Header.Set("X-CSRF-Token", session.CSRFToken)
	rec = httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{workerSession}, revoker.deleted)
}
