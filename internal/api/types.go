package api

import (
	"encoding/json"
	"time"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Model struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Framework string    `json:"framework"`
	Status    string    `json:"status"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type Prediction struct {
	ID        string          `json:"id"`
	ModelID   string          `json:"model_id"`
	Output    json.RawMessage `json:"output"`
	LatencyMs float64         `json:"latency_ms"`
}

type APIKey struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Prefix     string    `json:"prefix"`
	Secret     string    `json:"secret,omitempty"` // only present on creation
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

type Webhook struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
}

type Share struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type UsagePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Requests  int64     `json:"requests"`
	Errors    int64     `json:"errors"`
	LatencyMs float64   `json:"latency_ms"`
}

type UsageStats struct {
	ModelID   string       `json:"model_id"`
	Window    string       `json:"window"`
	Requests  int64        `json:"requests"`
	ErrorRate float64      `json:"error_rate"`
	Series    []UsagePoint `json:"series"`
}

// LoginResult is what the auth endpoints hand back on success. The console
// seeds the session manager with these values.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Response envelopes. The backend wraps collection and entity payloads in a
// data field.
type modelsResponse struct {
	Data []Model `json:"data"`
}

type modelResponse struct {
	Data Model `json:"data"`
}

type predictionResponse struct {
	Data Prediction `json:"data"`
}

type apiKeysResponse struct {
	Data []APIKey `json:"data"`
}

type apiKeyResponse struct {
	Data APIKey `json:"data"`
}

type webhooksResponse struct {
	Data []Webhook `json:"data"`
}

type webhookResponse struct {
	Data Webhook `json:"data"`
}

type sharesResponse struct {
	Data []Share `json:"data"`
}

type shareResponse struct {
	Data Share `json:"data"`
}

type usageStatsResponse struct {
	Data UsageStats `json:"data"`
}

type userResponse struct {
	Data User `json:"data"`
}

type loginResponse struct {
	Data LoginResult `json:"data"`
}

// refreshResponse tolerates both a bare token pair and one nested under a
// data envelope.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Data         struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"data"`
}

func (r *refreshResponse) accessToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Data.AccessToken
}

func (r *refreshResponse) refreshToken() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.Data.RefreshToken
}
