// Package rest is the client for the Calixio backend API. It owns the one
// in-memory copy of the stored credentials and performs the single
// refresh-and-retry cycle on authorization failures.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/core"
	"github.com/calixio/calixio-client/internal/domain"
)

// Error carries the HTTP status and the parsed error body of a failed call.
type Error struct {
	Status  int
	Payload map[string]any
	Message string
}

func (e *Error) Error() string { return e.Message }

func errorMessage(payload map[string]any) string {
	if s, ok := payload["error"].(string); ok && s != "" {
		return s
	}
	return "request_failed"
}

type Client struct {
	base  string
	httpc *http.Client
	store core.TokenStore

	mu    sync.Mutex
	creds domain.Credentials
}

func NewClient(base string, timeout time.Duration, store core.TokenStore) (*Client, error) {
	creds, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Client{
		base:  base,
		httpc: &http.Client{Timeout: timeout},
		store: store,
		creds: creds,
	}, nil
}

func (c *Client) Credentials() domain.Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

// Authed reports whether any token is held; guest flows stay unauthenticated.
func (c *Client) Authed() bool {
	return c.Credentials().HasAny()
}

func (c *Client) UpdateTokens(access, refresh string) error {
	c.mu.Lock()
	c.creds = domain.Credentials{AccessToken: access, RefreshToken: refresh}
	c.mu.Unlock()
	return c.store.Save(access, refresh)
}

func (c *Client) ClearTokens() error {
	c.mu.Lock()
	c.creds = domain.Credentials{}
	c.mu.Unlock()
	return c.store.Clear()
}

// Do issues one unauthenticated request. Any non-2xx response comes back as
// *Error with the status and the parsed body.
func (c *Client) Do(ctx context.Context, method, path string, body any) (map[string]any, error) {
	return c.do(ctx, method, path, body, "")
}

// DoAuth issues an authenticated request. If no access token is held but a
// refresh token is, the refresh runs proactively before the first attempt.
// On a 401 with a refresh token available it refreshes once and retries
// once; a failed refresh clears all credentials and propagates the refresh
// error instead of the original 401.
func (c *Client) DoAuth(ctx context.Context, method, path string, body any) (map[string]any, error) {
	creds := c.Credentials()
	token := creds.AccessToken
	if token == "" && creds.RefreshToken != "" {
		var err error
		if token, err = c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.do(ctx, method, path, body, token)
	if err == nil {
		return resp, nil
	}
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Status != http.StatusUnauthorized || c.Credentials().RefreshToken == "" {
		return nil, err
	}

	token, rerr := c.refresh(ctx)
	if rerr != nil {
		if cerr := c.ClearTokens(); cerr != nil {
			log.Error().Err(cerr).Str("module", "adapters.rest").Msg("clear tokens")
		}
		return nil, rerr
	}
	return c.do(ctx, method, path, body, token)
}

// refresh exchanges the refresh token for a fresh token pair.
func (c *Client) refresh(ctx context.Context) (string, error) {
	creds := c.Credentials()
	if creds.RefreshToken == "" {
		return "", &Error{Status: http.StatusUnauthorized, Message: "missing_refresh"}
	}
	data, err := c.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": creds.RefreshToken,
	}, "")
	if err != nil {
		return "", err
	}
	access, _ := data["access_token"].(string)
	refresh, _ := data["refresh_token"].(string)
	if err := c.UpdateTokens(access, refresh); err != nil {
		return "", err
	}
	log.Info().Str("module", "adapters.rest").Msg("access token refreshed")
	return access, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, bearer string) (map[string]any, error) {
	var payload *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(b)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data := map[string]any{}
	// a malformed body on an otherwise valid response is treated as empty
	_ = json.NewDecoder(res.Body).Decode(&data)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &Error{
			Status:  res.StatusCode,
			Payload: data,
			Message: errorMessage(data),
		}
	}
	return data, nil
}
