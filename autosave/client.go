package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"sesi/internal/session/model"
	"sesi/pkg/httpx"
)

// Client issues session API calls with an explicit credential. Nothing in
// this package reads tokens from process-wide state; callers construct a
// Client per authenticated user and pass it into the scheduler.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{},
	}
}

func (c *Client) CreateSession(ctx context.Context, req model.SaveSessionRequest) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodPost, "/sessions", req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *Client) UpdateSession(ctx context.Context, id string, req model.SaveSessionRequest) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodPut, "/sessions/"+id, req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil)
}

func (c *Client) ListOwned(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) ListPublished(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/published", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Success    bool            `json:"success"`
		StatusCode int             `json:"statusCode"`
		Data       json.RawMessage `json:"data"`
		Message    string          `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}

	if !env.Success {
		statusCode := env.StatusCode
		if statusCode == 0 {
			statusCode = resp.StatusCode
		}
		return &httpx.APIError{StatusCode: statusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
