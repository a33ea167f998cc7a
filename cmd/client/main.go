package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/adapters/capture"
	"github.com/calixio/calixio-client/internal/adapters/console"
	"github.com/calixio/calixio-client/internal/adapters/rest"
	"github.com/calixio/calixio-client/internal/adapters/rtc"
	"github.com/calixio/calixio-client/internal/adapters/store"
	"github.com/calixio/calixio-client/internal/app"
	"github.com/calixio/calixio-client/internal/app/media"
	"github.com/calixio/calixio-client/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	tokens, err := store.NewFileStore(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open credential store")
	}
	api, err := rest.NewClient(cfg.APIBase, cfg.HTTPTimeout, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build api client")
	}

	rooms := app.NewRooms(api, cfg.ShareBase)
	device := capture.NewDevice(cfg.AudioFile, cfg.VideoFile)
	ctrl := media.NewController(rooms, rtc.NewFactory(), device, cfg.MediaWS)

	r := console.SetupRouter(cfg, console.Deps{API: api, Rooms: rooms, Media: ctrl})
	addr := fmt.Sprintf(":%d", cfg.ConsolePort)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Calixio console started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("console error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	ctrl.Disconnect()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Console forced to shutdown")
	}
	log.Info().Msg("Client exited gracefully")
}
