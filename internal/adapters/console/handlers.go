package console

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calixio/calixio-client/internal/adapters/rest"
	"github.com/calixio/calixio-client/internal/app"
	"github.com/calixio/calixio-client/internal/domain"
)

type handlers struct {
	deps Deps
}

// fail maps controller errors onto HTTP statuses: backend failures keep
// their status, local validation is a 400.
func fail(c *gin.Context, err error) {
	var apiErr *rest.Error
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message, "payload": apiErr.Payload})
		return
	}
	if errors.Is(err, app.ErrRoomIDMissing) {
		c.JSON(http.StatusBadRequest, gin.H{"error": app.ErrRoomIDMissing.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func (h *handlers) state(c *gin.Context) {
	room := h.deps.Rooms.Room()
	c.JSON(http.StatusOK, gin.H{
		"authed":     h.deps.API.Authed(),
		"room_id":    room.ID,
		"room_name":  room.Name,
		"share_link": h.deps.Rooms.ShareLink(),
		"media":      h.deps.Media.State(),
		"local":      h.deps.Media.LocalSurface().Snapshot(),
		"remote":     h.deps.Media.RemoteSurface().Snapshot(),
	})
}

func (h *handlers) register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	account, err := domain.NewAccount(req.Name, req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.deps.API.Register(c.Request.Context(), account); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

func (h *handlers) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	if err := h.deps.API.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_in"})
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.deps.API.Logout(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (h *handlers) createRoom(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	room, err := h.deps.Rooms.Create(c.Request.Context(), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":    room.ID,
		"room_name":  room.Name,
		"share_link": h.deps.Rooms.ShareLink(),
	})
}

// joinRoom accepts either a bare room id or a pasted share link.
func (h *handlers) joinRoom(c *gin.Context) {
	var req struct {
		RoomID string `json:"room_id"`
		Link   string `json:"link"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	switch {
	case req.RoomID != "":
		h.deps.Rooms.SetRoomID(domain.RoomID(req.RoomID))
	case req.Link != "":
		if err := h.deps.Rooms.AdoptShareLink(req.Link); err != nil {
			fail(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": app.ErrRoomIDMissing.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":    h.deps.Rooms.Room().ID,
		"share_link": h.deps.Rooms.ShareLink(),
	})
}

func (h *handlers) endRoom(c *gin.Context) {
	if err := h.deps.Rooms.End(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (h *handlers) connect(c *gin.Context) {
	if err := h.deps.Media.Connect(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"media": h.deps.Media.State()})
}

func (h *handlers) disconnect(c *gin.Context) {
	h.deps.Media.Disconnect()
	c.JSON(http.StatusOK, gin.H{"media": h.deps.Media.State()})
}

func (h *handlers) toggleMic(c *gin.Context) {
	enabled, err := h.deps.Media.ToggleMic()
	if err != nil {
		// the optimistic flag already flipped; report both
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "enabled": enabled})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *handlers) toggleCamera(c *gin.Context) {
	enabled, err := h.deps.Media.ToggleCamera()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "enabled": enabled})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *handlers) setGain(c *gin.Context) {
	var req struct {
		Value *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	h.deps.Media.SetMicGain(*req.Value)
	c.JSON(http.StatusOK, gin.H{"media": h.deps.Media.State()})
}

func (h *handlers) setVolume(c *gin.Context) {
	var req struct {
		Value *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	h.deps.Media.SetOutputVolume(*req.Value)
	c.JSON(http.StatusOK, gin.H{"media": h.deps.Media.State()})
}
