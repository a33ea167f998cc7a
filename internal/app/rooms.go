// Package app holds the controllers that sit between the console and the
// adapters: room session state here, the media connection in app/media.
package app

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/adapters/rest"
	"github.com/calixio/calixio-client/internal/domain"
)

var ErrRoomIDMissing = errors.New("room id missing")

// Rooms tracks the active room, the held media session token, and the
// shareable join link.
type Rooms struct {
	api       *rest.Client
	shareBase string

	mu         sync.Mutex
	room       domain.Room
	mediaToken string
}

func NewRooms(api *rest.Client, shareBase string) *Rooms {
	return &Rooms{api: api, shareBase: strings.TrimRight(shareBase, "?&")}
}

// Create makes a new room via the backend and switches this session to it.
func (r *Rooms) Create(ctx context.Context, name string) (domain.Room, error) {
	data, err := r.api.DoAuth(ctx, http.MethodPost, "/rooms", map[string]string{"name": name})
	if err != nil {
		return domain.Room{}, err
	}
	id, _ := data["id"].(string)
	roomName, _ := data["name"].(string)

	r.mu.Lock()
	r.room = domain.Room{ID: domain.RoomID(id), Name: domain.RoomName(roomName)}
	r.mediaToken = ""
	r.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room_id", id).Str("name", roomName).Msg("room created")
	return r.Room(), nil
}

// End closes the active room on the backend. The room id stays set so the
// caller can still see what was ended; the held token is dropped.
func (r *Rooms) End(ctx context.Context) error {
	room := r.Room()
	if room.ID == "" {
		return ErrRoomIDMissing
	}
	if _, err := r.api.DoAuth(ctx, http.MethodPost, "/rooms/"+string(room.ID)+"/end", nil); err != nil {
		return err
	}
	r.mu.Lock()
	r.mediaToken = ""
	r.mu.Unlock()
	log.Info().Str("module", "app.rooms").Str("room_id", string(room.ID)).Msg("room ended")
	return nil
}

func (r *Rooms) Room() domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room
}

// SetRoomID switches to a room joined by id (guest or pasted link). Any held
// token belongs to the previous room and is discarded.
func (r *Rooms) SetRoomID(id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room.ID == id {
		return
	}
	r.room = domain.Room{ID: id}
	r.mediaToken = ""
}

// MediaToken resolves a media session token for the active room: the held
// one if still usable, otherwise a fresh one from the backend. With no room
// id set it fails locally without a network call. The join endpoint accepts
// guests, so the call only carries auth when tokens are held.
func (r *Rooms) MediaToken(ctx context.Context) (string, error) {
	room := r.Room()
	if room.ID == "" {
		return "", ErrRoomIDMissing
	}

	r.mu.Lock()
	held := r.mediaToken
	r.mu.Unlock()
	if held != "" && !tokenStale(held) {
		return held, nil
	}

	var (
		data map[string]any
		err  error
	)
	path := "/rooms/" + string(room.ID) + "/join"
	if r.api.Authed() {
		data, err = r.api.DoAuth(ctx, http.MethodPost, path, nil)
	} else {
		data, err = r.api.Do(ctx, http.MethodPost, path, nil)
	}
	if err != nil {
		return "", err
	}
	token, _ := data["token"].(string)

	r.mu.Lock()
	r.mediaToken = token
	r.mu.Unlock()
	log.Info().Str("module", "app.rooms").Str("room_id", string(room.ID)).Msg("media token issued")
	return token, nil
}

// ShareLink builds the join URL for the active room. Session tokens are
// never part of it: the link is rebuilt from scratch with only the view
// marker and the room id.
func (r *Rooms) ShareLink() string {
	room := r.Room()
	if room.ID == "" {
		return ""
	}
	return r.shareBase + "?tab=video&roomId=" + url.QueryEscape(string(room.ID))
}

// AdoptShareLink extracts the room id from a pasted join link.
func (r *Rooms) AdoptShareLink(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	id := u.Query().Get("roomId")
	if id == "" {
		return ErrRoomIDMissing
	}
	r.SetRoomID(domain.RoomID(id))
	return nil
}
