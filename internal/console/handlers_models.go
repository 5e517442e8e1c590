package console

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/inferx-io/inferx-console/internal/api"
)

type dashboardView struct {
	User   api.User
	Models []api.Model
}

type modelView struct {
	Model  api.Model
	Shares []api.Share
	Usage  api.UsageStats
	Output string
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	models, err := s.api.ListModels(r.Context())
	if s.handleAPIError(w, r, err) {
		return
	}
	data := pageData{Title: "Dashboard"}
	if err != nil {
		log.Error().Err(err).Msg("failed to list models")
		data.Error = "Could not load models from the backend."
	}
	view := dashboardView{Models: models}
	user, err := s.api.Me(r.Context())
	if err != nil {
		// Greet from the persisted record instead.
		rec := s.sessions.Snapshot()
		user = api.User{Email: rec.UserEmail, Name: rec.UserName}
	}
	view.User = user
	data.Data = view
	s.render(w, "dashboard.html", data)
}

func (s *Server) models(w http.ResponseWriter, r *http.Request) {
	models, err := s.api.ListModels(r.Context())
	if s.handleAPIError(w, r, err) {
		return
	}
	data := pageData{Title: "Models", Data: models}
	if err != nil {
		log.Error().Err(err).Msg("failed to list models")
		data.Error = "Could not load models from the backend."
	}
	s.render(w, "models.html", data)
}

func (s *Server) uploadModel(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.render(w, "models.html", pageData{Title: "Models", Data: []api.Model{}, Error: "Choose a model file to upload."})
		return
	}
	defer file.Close()

	model, err := s.api.UploadModel(r.Context(), r.PostFormValue("name"), r.PostFormValue("framework"), header.Filename, file)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("model upload failed")
		s.render(w, "models.html", pageData{Title: "Models", Data: []api.Model{}, Error: "Upload failed: " + err.Error()})
		return
	}
	http.Redirect(w, r, "/models/"+model.ID, http.StatusSeeOther)
}

func (s *Server) modelDetail(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")

	model, err := s.api.GetModel(r.Context(), modelID)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	view := modelView{Model: model}
	if shares, err := s.api.ListShares(r.Context(), modelID); err == nil {
		view.Shares = shares
	} else {
		log.Warn().Err(err).Str("modelId", modelID).Msg("failed to list shares")
	}
	if usage, err := s.api.UsageStats(r.Context(), modelID, "7d"); err == nil {
		view.Usage = usage
	} else {
		log.Warn().Err(err).Str("modelId", modelID).Msg("failed to load usage stats")
	}

	s.render(w, "model.html", pageData{Title: model.Name, Data: view})
}

func (s *Server) deleteModel(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	err := s.api.DeleteModel(r.Context(), modelID)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("modelId", modelID).Msg("failed to delete model")
	}
	http.Redirect(w, r, "/models", http.StatusSeeOther)
}

// predict runs an ad-hoc prediction with the JSON typed into the form and
// re-renders the model page with the output inline.
func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	input := r.PostFormValue("input")

	model, err := s.api.GetModel(r.Context(), modelID)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}
	view := modelView{Model: model}

	if !json.Valid([]byte(input)) {
		s.render(w, "model.html", pageData{Title: model.Name, Data: view, Error: "Input must be valid JSON."})
		return
	}

	prediction, err := s.api.Predict(r.Context(), modelID, json.RawMessage(input))
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("modelId", modelID).Msg("prediction failed")
		s.render(w, "model.html", pageData{Title: model.Name, Data: view, Error: "Prediction failed: " + err.Error()})
		return
	}

	view.Output = string(prediction.Output)
	s.render(w, "model.html", pageData{Title: model.Name, Data: view})
}

func (s *Server) createShare(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	email := r.PostFormValue("email")
	role := r.PostFormValue("role")
	if role == "" {
		role = "viewer"
	}

	_, err := s.api.CreateShare(r.Context(), modelID, email, role)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("modelId", modelID).Msg("failed to share model")
	}
	http.Redirect(w, r, "/models/"+modelID, http.StatusSeeOther)
}

func (s *Server) revokeShare(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	shareID := chi.URLParam(r, "shareID")

	err := s.api.RevokeShare(r.Context(), modelID, shareID)
	if s.handleAPIError(w, r, err) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("shareId", shareID).Msg("failed to revoke share")
	}
	http.Redirect(w, r, "/models/"+modelID, http.StatusSeeOther)
}
