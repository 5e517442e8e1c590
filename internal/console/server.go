// Package console serves the local web console: login and logout, model
// management, ad-hoc predictions, analytics, API keys, webhooks and sharing.
// All state lives in the backend; the console renders it and keeps the
// browser's session cookie in sync with the session manager.
package console

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/inferx-io/inferx-console/internal/api"
	"github.com/inferx-io/inferx-console/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	api      *api.Client
	sessions *session.Manager
	tmpl     *template.Template
}

func NewServer(apiClient *api.Client, sessions *session.Manager) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{api: apiClient, sessions: sessions, tmpl: tmpl}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	// Auth-only pages: logged-in users get bounced to the dashboard.
	r.Group(func(r chi.Router) {
		r.Use(s.redirectIfAuthenticated)
		r.Get("/login", s.loginPage)
		r.Post("/login", s.login)
		r.Get("/register", s.registerPage)
		r.Post("/register", s.register)
	})

	// Protected pages behind the route guard.
	r.Group(func(r chi.Router) {
		r.Use(s.requireSession, s.syncCookie)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})
		r.Get("/dashboard", s.dashboard)
		r.Get("/models", s.models)
		r.Post("/models", s.uploadModel)
		r.Get("/models/{modelID}", s.modelDetail)
		r.Post("/models/{modelID}/delete", s.deleteModel)
		r.Post("/models/{modelID}/predict", s.predict)
		r.Post("/models/{modelID}/shares", s.createShare)
		r.Post("/models/{modelID}/shares/{shareID}/revoke", s.revokeShare)
		r.Get("/analytics", s.analytics)
		r.Get("/keys", s.apiKeys)
		r.Post("/keys", s.createAPIKey)
		r.Post("/keys/{keyID}/revoke", s.revokeAPIKey)
		r.Get("/webhooks", s.webhooks)
		r.Post("/webhooks", s.createWebhook)
		r.Post("/webhooks/{webhookID}/delete", s.deleteWebhook)
		r.Post("/logout", s.logout)
	})

	return r
}

type pageData struct {
	Title string
	Email string
	Flash string
	Error string
	Data  any
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	if data.Email == "" {
		data.Email = s.sessions.Snapshot().UserEmail
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}

// handleAPIError deals with the terminal session failures: the session
// manager has already torn the session down, so the console's job is to
// expire the mirror cookie and send the user back to login. Returns true
// when a response was written.
func (s *Server) handleAPIError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, session.ErrRefreshRejected) || errors.Is(err, session.ErrNoSession) {
		expireSessionCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return true
	}
	return false
}
