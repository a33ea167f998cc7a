package app

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

	"github.com/calixio/calixio-client/internal/adapters/rest"
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

func newRooms(t *testing.T, handler http.Handler, creds domain.Credentials) (*Rooms, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	counting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler.ServeHTTP(w, r)
	})
	srv := httptest.NewServer(counting)
	t.Cleanup(srv.Close)
	api, err := rest.NewClient(srv.URL, 5*time.Second, &memStore{creds: creds})
	require.NoError(t, err)
	return NewRooms(api, "https://host/path"), &hits
}

func TestMediaTokenWithoutRoomIDFailsLocally(t *testing.T) {
	rooms, hits := newRooms(t, http.NewServeMux(), domain.Credentials{})

	_, err := rooms.MediaToken(context.Background())
	assert.ErrorIs(t, err, ErrRoomIDMissing)
	assert.Equal(t, int64(0), hits.Load(), "no network call expected")
}

func TestMediaTokenGuestJoinSkipsAuth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/room-42/join", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"token": "media-1"})
	})
	rooms, _ := newRooms(t, mux, domain.Credentials{})
	rooms.SetRoomID("room-42")

	token, err := rooms.MediaToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "media-1", token)
}

func TestMediaTokenAuthedJoinCarriesBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/room-42/join", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer acc-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"token": "media-1"})
	})
	rooms, _ := newRooms(t, mux, domain.Credentials{AccessToken: "acc-1"})
	rooms.SetRoomID("room-42")

	_, err := rooms.MediaToken(context.Background())
	require.NoError(t, err)
}

func TestMediaTokenReusesHeldToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/room-42/join", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "media-1"})
	})
	rooms, hits := newRooms(t, mux, domain.Credentials{})
	rooms.SetRoomID("room-42")

	_, err := rooms.MediaToken(context.Background())
	require.NoError(t, err)
	_, err = rooms.MediaToken(context.Background())
	require.NoError(t, err)
	// opaque non-JWT token with no expiry claim counts as usable
	assert.Equal(t, int64(1), hits.Load())
}

func TestCreateAndShareLink(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "room-42", "name": "demo"})
	})
	rooms, _ := newRooms(t, mux, domain.Credentials{AccessToken: "acc-1"})

	assert.Empty(t, rooms.ShareLink())

	room, err := rooms.Create(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("room-42"), room.ID)

	link := rooms.ShareLink()
	assert.Equal(t, "https://host/path?tab=video&roomId=room-42", link)
	assert.NotContains(t, link, "token")
}

func TestAdoptShareLink(t *testing.T) {
	rooms, _ := newRooms(t, http.NewServeMux(), domain.Credentials{})

	require.NoError(t, rooms.AdoptShareLink("https://host/path?tab=video&roomId=room-7&livekitToken=leak"))
	assert.Equal(t, domain.RoomID("room-7"), rooms.Room().ID)
	// a leaked token param in the pasted link never reaches the rebuilt one
	assert.Equal(t, "https://host/path?tab=video&roomId=room-7", rooms.ShareLink())

	assert.ErrorIs(t, rooms.AdoptShareLink("https://host/path?tab=api"), ErrRoomIDMissing)
}

func TestEndRoomRequiresRoomID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/room-42/end", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{})
	})
	rooms, _ := newRooms(t, mux, domain.Credentials{AccessToken: "acc-1"})

	assert.ErrorIs(t, rooms.End(context.Background()), ErrRoomIDMissing)

	rooms.SetRoomID("room-42")
	require.NoError(t, rooms.End(context.Background()))
}
