package console

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferx-io/inferx-console/internal/api"
	"github.com/inferx-io/inferx-console/internal/session"
)

type memStore struct {
	mu  sync.Mutex
	rec *session.Record
}

func (s *memStore) Load() (*session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	r := *s.rec
	return &r, nil
}

func (s *memStore) Save(rec *session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rec
	s.rec = &r
	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

func newTestConsole(t *testing.T, backend http.Handler) (http.Handler, *session.Manager, *memStore) {
	t.Helper()
	if backend == nil {
		backend = http.NewServeMux()
	}
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	store := &memStore{}
	client := api.NewClient(api.ClientOpts{BaseURL: ts.URL})
	manager := session.NewManager(session.ManagerOpts{Store: store, Refresher: client})
	t.Cleanup(manager.Close)
	client.SetTokenSource(manager)

	srv, err := NewServer(client, manager)
	require.NoError(t, err)
	return srv.Router(), manager, store
}

func withCookie(r *http.Request, value string) *http.Request {
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: value})
	return r
}

func findSessionCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestRequestIDEchoed(t *testing.T) {
	router, _, _ := newTestConsole(t, nil)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest("GET", "/login", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest("GET", "/login", nil))

	id := first.Header().Get("X-Request-Id")
	require.NoError(t, uuid.Validate(id))
	assert.NotEqual(t, id, second.Header().Get("X-Request-Id"))
}

func TestGuardRedirectsAnonymous(t *testing.T) {
	router, _, _ := newTestConsole(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/dashboard", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next="+url.QueryEscape("/dashboard"), w.Header().Get("Location"))
}

func TestGuardAllowsWithCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	})
	router, manager, _ := newTestConsole(t, mux)
	manager.Login(session.Record{AccessToken: makeFreshToken(t), RefreshToken: "r"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withCookie(httptest.NewRequest("GET", "/dashboard", nil), "present"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dashboard")
}

func TestAuthPagesRedirectWhenLoggedIn(t *testing.T) {
	router, _, _ := newTestConsole(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withCookie(httptest.NewRequest("GET", "/login", nil), "present"))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestLoginSetsSessionAndCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"access_token":"acc","refresh_token":"ref","user":{"id":"u1","email":"dev@example.com","name":"Dev"}}}`))
	})
	router, manager, store := newTestConsole(t, mux)

	form := url.Values{"email": {"dev@example.com"}, "password": {"hunter2"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	cookie := findSessionCookie(t, w.Result())
	require.NotNil(t, cookie)
	assert.Equal(t, "acc", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, sessionCookieMaxAge, cookie.MaxAge)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	assert.True(t, manager.LoggedIn())
	assert.Equal(t, "dev@example.com", manager.Snapshot().UserEmail)
	rec, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "ref", rec.RefreshToken)
}

func TestLoginPreservesNextPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"access_token":"acc","refresh_token":"ref","user":{"email":"dev@example.com"}}}`))
	})
	router, _, _ := newTestConsole(t, mux)

	form := url.Values{"email": {"dev@example.com"}, "password": {"hunter2"}, "next": {"/models/m1"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "/models/m1", w.Header().Get("Location"))
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/models", safeNext("/models"))
	assert.Equal(t, "/dashboard", safeNext(""))
	assert.Equal(t, "/dashboard", safeNext("https://evil.example.com"))
	assert.Equal(t, "/dashboard", safeNext("//evil.example.com"))
}

func TestLogoutClearsSessionAndCookie(t *testing.T) {
	router, manager, store := newTestConsole(t, nil)
	manager.Login(session.Record{AccessToken: "acc", RefreshToken: "ref"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withCookie(httptest.NewRequest("POST", "/logout", nil), "acc"))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// Store and cookie are cleared by the same handler: no request can see
	// one without the other.
	assert.False(t, manager.LoggedIn())
	rec, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)

	cookie := findSessionCookie(t, w.Result())
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestSyncCookieCatchesUpAfterRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	})
	router, manager, _ := newTestConsole(t, mux)
	fresh := makeFreshToken(t)
	manager.Login(session.Record{AccessToken: fresh, RefreshToken: "r"})

	// The browser still holds the pre-refresh token.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withCookie(httptest.NewRequest("GET", "/dashboard", nil), "stale"))

	cookie := findSessionCookie(t, w.Result())
	require.NotNil(t, cookie)
	assert.Equal(t, fresh, cookie.Value)
}

func TestSyncCookieExpiresDeadSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	router, _, _ := newTestConsole(t, mux)

	// Cookie present but no session behind it.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, withCookie(httptest.NewRequest("GET", "/dashboard", nil), "orphaned"))

	cookie := findSessionCookie(t, w.Result())
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

// makeFreshToken returns a JWT-shaped token a long way from expiry so no
// refresh is attempted. The signature segment is junk; presence is all the
// console checks.
func makeFreshToken(t *testing.T) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"sub": "user-1",
	})
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".junk"
}
