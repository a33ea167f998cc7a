// Package console is the local view layer: a small gin server that renders
// controller state as JSON and forwards user intents. It owns no session or
// media state of its own.
package console

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/adapters/rest"
	"github.com/calixio/calixio-client/internal/app"
	"github.com/calixio/calixio-client/internal/app/media"
	"github.com/calixio/calixio-client/internal/config"
)

// Deps are the controllers the console renders and drives.
type Deps struct {
	API   *rest.Client
	Rooms *app.Rooms
	Media *media.Controller
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CalixioConsole", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.console").Int("port", cfg.ConsolePort).Msg("router setup")

	h := &handlers{deps: deps}

	api := r.Group("/api")
	api.GET("/state", h.state)

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/logout", h.logout)

	rooms := api.Group("/rooms")
	rooms.POST("", h.createRoom)
	rooms.POST("/join", h.joinRoom)
	rooms.POST("/end", h.endRoom)

	md := api.Group("/media")
	md.POST("/connect", h.connect)
	md.POST("/disconnect", h.disconnect)
	md.POST("/mic", h.toggleMic)
	md.POST("/camera", h.toggleCamera)
	md.POST("/gain", h.setGain)
	md.POST("/volume", h.setVolume)

	return r
}
