package rest

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/domain"
)

// Register creates the account; the backend does not issue tokens here,
// the caller still has to log in.
func (c *Client) Register(ctx context.Context, account *domain.Account) error {
	_, err := c.Do(ctx, http.MethodPost, "/auth/register", account)
	return err
}

// Login exchanges email+password for a token pair and persists it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	data, err := c.Do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	access, _ := data["access_token"].(string)
	refresh, _ := data["refresh_token"].(string)
	if err := c.UpdateTokens(access, refresh); err != nil {
		return err
	}
	log.Info().Str("module", "adapters.rest").Msg("logged in")
	return nil
}

// Logout drops both tokens; there is no server-side call to make.
func (c *Client) Logout() error {
	log.Info().Str("module", "adapters.rest").Msg("logged out")
	return c.ClearTokens()
}
