package console

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"

	"github.com/inferx-io/inferx-console/internal/api"
)

type analyticsView struct {
	Models  []api.Model
	ModelID string
	Window  string
	Usage   api.UsageStats
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	models, err := s.api.ListModels(r.Context())
	if s.handleAPIError(w, r, err) {
		return
	}

	view := analyticsView{Models: models, Window: r.URL.Query().Get("window")}
	if view.Window == "" {
		view.Window = "7d"
	}
	view.ModelID = r.URL.Query().Get("model")
	if view.ModelID == "" && len(models) > 0 {
		view.ModelID = models[0].ID
	}

	data := pageData{Title: "Analytics", Data: view}
	if view.ModelID != "" {
		usage, err := s.api.UsageStats(r.Context(), view.ModelID, view.Window)
		if s.handleAPIError(w, r, err) {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("modelId", view.ModelID).Msg("failed to load usage stats")
			data.Error = "Could not load usage stats."
		} else {
			view.Usage = usage
			data.Data = view
		}
	}
	s.render(w, "analytics.html", data)
}

func (s *Server) apiKeys(w http.ResponseWriter, r *http.Request) {
	s.renderKeys(w, r, "", "")
}

func (s *Server) createAPIKey(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")
	key, err := s.api.CreateAPIKey(r.Context(), name)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to create api key")
		s.renderKeys(w, r, "", "Could not create the key.")
		return
	}
	s.renderKeys(w, r, flashText(`
		Key %s created. Copy the secret now, it is shown only once:
		%s
	`, key.Name, key.Secret), "")
}

func (s *Server) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	err := s.api.RevokeAPIKey(r.Context(), keyID)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("keyId", keyID).Msg("failed to revoke api key")
	}
	http.Redirect(w, r, "/keys", http.StatusSeeOther)
}

func (s *Server) renderKeys(w http.ResponseWriter, r *http.Request, flash, errMsg string) {
	keys, err := s.api.ListAPIKeys(r.Context())
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to list api keys")
		errMsg = "Could not load API keys."
	}
	s.render(w, "keys.html", pageData{Title: "API keys", Data: keys, Flash: flash, Error: errMsg})
}

func (s *Server) webhooks(w http.ResponseWriter, r *http.Request) {
	s.renderWebhooks(w, r, "")
}

func (s *Server) createWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	url := r.PostFormValue("url")
	events := r.PostForm["events"]
	if len(events) == 0 {
		events = []string{"prediction.completed"}
	}

	_, err := s.api.CreateWebhook(r.Context(), url, events)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("failed to create webhook")
		s.renderWebhooks(w, r, "Could not create the webhook.")
		return
	}
	http.Redirect(w, r, "/webhooks", http.StatusSeeOther)
}

func (s *Server) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "webhookID")
	err := s.api.DeleteWebhook(r.Context(), webhookID)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("webhookId", webhookID).Msg("failed to delete webhook")
	}
	http.Redirect(w, r, "/webhooks", http.StatusSeeOther)
}

func (s *Server) renderWebhooks(w http.ResponseWriter, r *http.Request, errMsg string) {
	hooks, err := s.api.ListWebhooks(r.Context())
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to list webhooks")
		errMsg = "Could not load webhooks."
	}
	s.render(w, "webhooks.html", pageData{Title: "Webhooks", Data: hooks, Error: errMsg})
}

func flashText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}
