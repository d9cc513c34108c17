package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(Config{CookieName: "chat_session", TTL: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func requestWithCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req
}

func TestManager_StartCreatesAndReuses(t *testing.T) {
	m := newTestManager()

	rec := httptest.NewRecorder()
	first := m.Start(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, first)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "chat_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	second := m.Start(httptest.NewRecorder(), requestWithCookie(t, rec))
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Count())
}

func TestManager_UnknownCookieStartsFreshSession(t *testing.T) {
	m := newTestManager()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "chat_session", Value: "forged"})

	assert.Nil(t, m.Lookup(req))
	s := m.Start(httptest.NewRecorder(), req)
	assert.NotEqual(t, "forged", s.ID)
}

func TestManager_ExpiryAndSweep(t *testing.T) {
	m := newTestManager()
	now := time.Now()
	m.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	s := m.Start(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	s.Increment("fp|agent")

	now = now.Add(2 * time.Hour)
	assert.Nil(t, m.Lookup(requestWithCookie(t, rec)), "expired sessions are invisible")

	removed, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 0, m.Count())

	fresh := m.Start(httptest.NewRecorder(), requestWithCookie(t, rec))
	assert.Equal(t, 0, fresh.Attempts("fp|agent"), "counters die with their session")
}

func TestManager_Destroy(t *testing.T) {
	m := newTestManager()
	rec := httptest.NewRecorder()
	m.Start(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	out := httptest.NewRecorder()
	m.Destroy(out, requestWithCookie(t, rec))

	assert.Equal(t, 0, m.Count())
	cookies := out.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestManager_Middleware(t *testing.T) {
	m := newTestManager()

	var got *Session
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotNil(t, got)
	assert.Nil(t, FromContext(context.Background()))
}

func TestSession_CounterAndAdmission(t *testing.T) {
	s := newSession("id", time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment("fp|agent")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Attempts("fp|agent"))
	assert.Equal(t, 0, s.Attempts("other|"))

	assert.False(t, s.Admitted())
	s.Admit()
	assert.True(t, s.Admitted())
	s.Revoke()
	assert.False(t, s.Admitted())
}
