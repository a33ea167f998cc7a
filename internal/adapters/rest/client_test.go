package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calixio/calixio-client/internal/domain"
)

type memStore struct {
	creds domain.Credentials
}

func (m *memStore) Load() (domain.Credentials, error) { return m.creds, nil }
func (m *memStore) Save(access, refresh string) error {
	m.creds = domain.Credentials{AccessToken: access, RefreshToken: refresh}
	return nil
}
func (m *memStore) Clear() error {
	m.creds = domain.Credentials{}
	return nil
}

func newTestClient(t *testing.T, handler http.Handler, creds domain.Credentials) (*Client, *memStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	st := &memStore{creds: creds}
	c, err := NewClient(srv.URL, 5*time.Second, st)
	require.NoError(t, err)
	return c, st
}

func TestDoAuthRefreshesOnceOn401(t *testing.T) {
	var refreshCalls, protectedCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ref-old", body["refresh_token"])
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "acc-new",
			"refresh_token": "ref-new",
		})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		protectedCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "token_expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "room-1", "name": "demo"})
	})

	c, st := newTestClient(t, mux, domain.Credentials{AccessToken: "acc-old", RefreshToken: "ref-old"})

	data, err := c.DoAuth(context.Background(), http.MethodPost, "/rooms", map[string]string{"name": "demo"})
	require.NoError(t, err)
	assert.Equal(t, "room-1", data["id"])

	assert.Equal(t, int64(1), refreshCalls.Load())
	assert.Equal(t, int64(2), protectedCalls.Load())
	assert.Equal(t, "acc-new", st.creds.AccessToken)
}

func TestDoAuthWithoutRefreshPropagates401(t *testing.T) {
	var refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "token_expired"})
	})

	c, _ := newTestClient(t, mux, domain.Credentials{AccessToken: "acc-old"})

	_, err := c.DoAuth(context.Background(), http.MethodPost, "/rooms", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token_expired", apiErr.Message)
	assert.Equal(t, int64(0), refreshCalls.Load())
}

func TestDoAuthFailedRefreshClearsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "refresh_revoked"})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "token_expired"})
	})

	c, st := newTestClient(t, mux, domain.Credentials{AccessToken: "acc-old", RefreshToken: "ref-old"})

	_, err := c.DoAuth(context.Background(), http.MethodPost, "/rooms", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	// the refresh error wins over the original 401
	assert.Equal(t, "refresh_revoked", apiErr.Message)
	assert.True(t, st.creds.Empty())
	assert.True(t, c.Credentials().Empty())
}

func TestDoAuthProactiveRefreshWithoutAccessToken(t *testing.T) {
	var order []string

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "refresh")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "acc-new",
			"refresh_token": "ref-new",
		})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "rooms")
		assert.Equal(t, "Bearer acc-new", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"id": "room-1"})
	})

	c, _ := newTestClient(t, mux, domain.Credentials{RefreshToken: "ref-old"})

	_, err := c.DoAuth(context.Background(), http.MethodPost, "/rooms", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"refresh", "rooms"}, order)
}

func TestDoSurfacesStatusAndPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "room_exists"})
	})

	c, _ := newTestClient(t, mux, domain.Credentials{})

	_, err := c.Do(context.Background(), http.MethodPost, "/rooms", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "room_exists", apiErr.Message)
	assert.Equal(t, "room_exists", apiErr.Payload["error"])
}

func TestLoginStoresTokens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "acc-1",
			"refresh_token": "ref-1",
		})
	})

	c, st := newTestClient(t, mux, domain.Credentials{})
	require.NoError(t, c.Login(context.Background(), "a@b.c", "pw"))
	assert.Equal(t, "acc-1", st.creds.AccessToken)
	assert.True(t, c.Authed())

	require.NoError(t, c.Logout())
	assert.False(t, c.Authed())
}
