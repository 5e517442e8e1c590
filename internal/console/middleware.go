package console

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestLogger assigns each request an id, echoes it in X-Request-Id, and
// makes a logger carrying it available to handlers via zerolog.Ctx.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		logger := log.With().Str("reqId", reqID).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// requireSession is the route guard for protected paths. It gates purely on
// the presence of the session cookie and never decodes its value; a stale or
// forged cookie just means the first backend call comes back 401 and the
// refresh path (or a login redirect) takes over from there.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCookie(r) == "" {
			target := url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, "/login?next="+target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirectIfAuthenticated keeps logged-in users off the login and register
// pages.
func (s *Server) redirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCookie(r) != "" {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// syncCookie reconciles the browser's mirror cookie with the session store.
// A background refresh rotates the stored token without touching the
// browser, so the mirror catches up on the next response; a session torn
// down behind the browser's back gets its cookie expired the same way.
func (s *Server) syncCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stored := s.sessions.Snapshot().AccessToken
		mirrored := requestCookie(r)
		switch {
		case stored == "" && mirrored != "":
			expireSessionCookie(w)
		case stored != "" && stored != mirrored:
			writeSessionCookie(w, stored)
		}
		next.ServeHTTP(w, r)
	})
}
