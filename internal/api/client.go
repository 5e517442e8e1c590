// Package api is the REST client for the InferX backend. Every authenticated
// request pulls its bearer token through a TokenSource, so a token inside the
// refresh margin is renewed before it goes on the wire.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"

	"github.com/inferx-io/inferx-console/internal/session"
)

const DefaultBaseURL = "https://api.inferx.io"

// TokenSource supplies the bearer token for outbound requests. An empty
// token with nil error means unauthenticated; the request goes out without
// an Authorization header and the backend answers 401.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type ClientOpts struct {
	BaseURL     string
	TokenSource TokenSource
}

type Client struct {
	httpClient *resty.Client
	baseURL    string
	tokens     TokenSource
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: DefaultBaseURL, tokens: opts.TokenSource}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "inferx-console/1",
		})
	return &c
}

// SetTokenSource wires the session manager in after construction. The
// manager needs this client for refreshes, so the two reference each other.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// req builds an authenticated request. Fails when the token source does,
// i.e. when a stale token could not be refreshed.
func (c *Client) req(ctx context.Context, result any) (*resty.Request, error) {
	request := c.httpClient.NewRequest().SetContext(ctx)
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
		if token != "" {
			request.SetHeader("Authorization", "Bearer "+token)
		}
	}
	if result != nil {
		request.SetResult(result)
	}
	return request, nil
}

// anonReq builds a request that deliberately skips the token source: login,
// register and refresh itself must not recurse into token acquisition.
func (c *Client) anonReq(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.NewRequest().SetContext(ctx)
	if result != nil {
		request.SetResult(result)
	}
	return request
}

// --- Auth ---

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result := &loginResponse{}
	_, err := handleError(c.anonReq(ctx, result).
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/api/v1/auth/login"))
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*LoginResult, error) {
	result := &loginResponse{}
	_, err := handleError(c.anonReq(ctx, result).
		SetBody(map[string]string{"email": email, "password": password, "name": name}).
		Post("/api/v1/auth/register"))
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// RefreshSession implements session.Refresher. A non-2xx status is a
// terminal failure; the session manager reacts by tearing the session down.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	result := &refreshResponse{}
	_, err := handleError(c.anonReq(ctx, result).
		SetBody(map[string]string{"refresh_token": refreshToken}).
		Post("/api/v1/auth/refresh"))
	if err != nil {
		return session.TokenPair{}, err
	}
	if result.accessToken() == "" {
		return session.TokenPair{}, fmt.Errorf("refresh response contained no access token")
	}
	return session.TokenPair{
		AccessToken:  result.accessToken(),
		RefreshToken: result.refreshToken(),
	}, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	result := &userResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return User{}, err
	}
	_, err = handleError(req.Get("/api/v1/auth/me"))
	return result.Data, err
}

// --- Models ---

func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	result := &modelsResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return nil, err
	}
	_, err = handleError(req.Get("/api/v1/models"))
	return result.Data, err
}

func (c *Client) GetModel(ctx context.Context, modelID string) (Model, error) {
	result := &modelResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return Model{}, err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"modelId": modelID}).
		Get("/api/v1/models/{modelId}"))
	return result.Data, err
}

func (c *Client) UploadModel(ctx context.Context, name, framework, filename string, file io.Reader) (Model, error) {
	result := &modelResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return Model{}, err
	}
	_, err = handleError(req.
		SetFileReader("file", filename, file).
		SetFormData(map[string]string{"name": name, "framework": framework}).
		Post("/api/v1/models"))
	return result.Data, err
}

func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	req, err := c.req(ctx, nil)
	if err != nil {
		return err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"modelId": modelID}).
		Delete("/api/v1/models/{modelId}"))
	return err
}

// --- Predictions ---

// Predict runs an ad-hoc inference call against a deployed model. The input
// is passed through verbatim; the backend validates it against the model's
// schema.
func (c *Client) Predict(ctx context.Context, modelID string, input json.RawMessage) (Prediction, error) {
	result := &predictionResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return Prediction{}, err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"modelId": modelID}).
		SetBody(map[string]json.RawMessage{"input": input}).
		Post("/api/v1/models/{modelId}/predict"))
	return result.Data, err
}

// --- Analytics ---

func (c *Client) UsageStats(ctx context.Context, modelID, window string) (UsageStats, error) {
	result := &usageStatsResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return UsageStats{}, err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"modelId": modelID}).
		SetQueryParam("window", window).
		Get("/api/v1/models/{modelId}/usage"))
	return result.Data, err
}

// --- API keys ---

func (c *Client) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	result := &apiKeysResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return nil, err
	}
	_, err = handleError(req.Get("/api/v1/api-keys"))
	return result.Data, err
}

func (c *Client) CreateAPIKey(ctx context.Context, name string) (APIKey, error) {
	result := &apiKeyResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return APIKey{}, err
	}
	_, err = handleError(req.
		SetBody(map[string]string{"name": name}).
		Post("/api/v1/api-keys"))
	return result.Data, err
}

func (c *Client) RevokeAPIKey(ctx context.Context, keyID string) error {
	req, err := c.req(ctx, nil)
	if err != nil {
		return err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"keyId": keyID}).
		Delete("/api/v1/api-keys/{keyId}"))
	return err
}

// --- Webhooks ---

func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	result := &webhooksResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return nil, err
	}
	_, err = handleError(req.Get("/api/v1/webhooks"))
	return result.Data, err
}

func (c *Client) CreateWebhook(ctx context.Context, url string, events []string) (Webhook, error) {
	result := &webhookResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return Webhook{}, err
	}
	_, err = handleError(req.
		SetBody(map[string]any{"url": url, "events": events}).
		Post("/api/v1/webhooks"))
	return result.Data, err
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	req, err := c.req(ctx, nil)
	if err != nil {
		return err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"webhookId": webhookID}).
		Delete("/api/v1/webhooks/{webhookId}"))
	return err
}

// --- Sharing ---

func (c *Client) ListShares(ctx context.Context, modelID string) ([]Share, error) {
	result := &sharesResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return nil, err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"modelId": modelID}).
		Get("/api/v1/models/{modelId}/shares"))
	return result.Data, err
}

func (c *Client) CreateShare(ctx context.Context, modelID, email, role string) (Share, error) {
	result := &shareResponse{}
	req, err := c.req(ctx, result)
	if err != nil {
		return Share{}, err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"modelId": modelID}).
		SetBody(map[string]string{"email": email, "role": role}).
		Post("/api/v1/models/{modelId}/shares"))
	return result.Data, err
}

func (c *Client) RevokeShare(ctx context.Context, modelID, shareID string) error {
	req, err := c.req(ctx, nil)
	if err != nil {
		return err
	}
	_, err = handleError(req.
		SetPathParams(map[string]string{"modelId": modelID, "shareId": shareID}).
		Delete("/api/v1/models/{modelId}/shares/{shareId}"))
	return err
}

// handleError is a generic error handler for failing responses (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}
