// Package media owns the lifecycle of one real-time media session: connect,
// local capture and publish, remote track mirroring, mute and volume
// controls, disconnect. At most one live transport handle exists at a time.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/core"
	"github.com/calixio/calixio-client/internal/domain"
	"github.com/calixio/calixio-client/internal/render"
)

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

const localParticipant = "local"

// TokenSource resolves a media session token per connection attempt.
type TokenSource interface {
	MediaToken(ctx context.Context) (string, error)
}

// State is the observable connection state for views.
type State struct {
	Status        Status  `json:"status"`
	MicEnabled    bool    `json:"mic_enabled"`
	CameraEnabled bool    `json:"camera_enabled"`
	MicGain       float64 `json:"mic_gain"`
	OutputVolume  float64 `json:"output_volume"`
}

type Controller struct {
	tokens    TokenSource
	factory   core.TransportFactory
	capture   core.CaptureDevice
	signalURL string

	local  *render.Surface
	remote *render.Surface

	mu            sync.Mutex
	status        Status
	gen           uint64
	handle        core.MediaTransport
	micEnabled    bool
	cameraEnabled bool
	micGain       float64
	outputVolume  float64
	pipeline      *Pipeline
}

func NewController(tokens TokenSource, factory core.TransportFactory, capture core.CaptureDevice, signalURL string) *Controller {
	return &Controller{
		tokens:        tokens,
		factory:       factory,
		capture:       capture,
		signalURL:     signalURL,
		local:         render.NewSurface(),
		remote:        render.NewSurface(),
		status:        StatusDisconnected,
		micEnabled:    true,
		cameraEnabled: true,
		micGain:       1,
		outputVolume:  1,
	}
}

func (c *Controller) LocalSurface() *render.Surface  { return c.local }
func (c *Controller) RemoteSurface() *render.Surface { return c.remote }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Status:        c.status,
		MicEnabled:    c.micEnabled,
		CameraEnabled: c.cameraEnabled,
		MicGain:       c.micGain,
		OutputVolume:  c.outputVolume,
	}
}

// Connect brings up one media session: resolve a token, build a handle with
// observers attached, open the transport, capture and publish local tracks.
// A no-op while already connected or while another connect is in flight.
// Any failure after the handle exists tears it down; no half-connected
// state is left observable.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	token, err := c.tokens.MediaToken(ctx)
	if err != nil {
		c.fail(gen)
		return fmt.Errorf("resolve media token: %w", err)
	}

	events := core.TransportEvents{
		OnTrackSubscribed: func(tr domain.RemoteTrack) {
			c.onTrackSubscribed(gen, tr)
		},
		OnTrackUnsubscribed: func(tr domain.RemoteTrack) {
			c.onTrackUnsubscribed(gen, tr)
		},
		OnParticipantDisconnected: func(sid, identity string) {
			c.onParticipantDisconnected(gen, sid, identity)
		},
	}
	handle, err := c.factory(core.TransportOptions{AdaptiveStream: true, Dynacast: true}, events)
	if err != nil {
		c.fail(gen)
		return fmt.Errorf("build transport: %w", err)
	}

	if err := handle.Connect(ctx, c.signalURL, token); err != nil {
		handle.Disconnect()
		c.fail(gen)
		return fmt.Errorf("transport connect: %w", err)
	}

	tracks, err := c.capture.Acquire(ctx)
	if err != nil {
		handle.Disconnect()
		c.fail(gen)
		return fmt.Errorf("acquire capture: %w", err)
	}

	var (
		pipeline *Pipeline
		elements []render.Element
	)
	for _, track := range tracks {
		pub, err := handle.Publish(ctx, track)
		if err != nil {
			handle.Disconnect()
			c.fail(gen)
			return fmt.Errorf("publish %s track: %w", track.Kind, err)
		}
		if track.Kind == domain.TrackKindAudio {
			pipeline = c.installGain(pub, track)
		}
		// local monitor elements stay muted, no self echo
		elements = append(elements, render.Element{
			TrackID: track.ID,
			Kind:    track.Kind,
			Volume:  0,
		})
	}

	c.mu.Lock()
	if c.gen != gen {
		// a disconnect won the race; this handle must not survive
		c.mu.Unlock()
		handle.Disconnect()
		return errors.New("connect superseded by disconnect")
	}
	c.handle = handle
	c.pipeline = pipeline
	c.status = StatusConnected
	for _, el := range elements {
		c.local.Attach(localParticipant, localParticipant, el)
	}
	c.mu.Unlock()

	log.Info().Str("module", "app.media").Str("url", c.signalURL).Msg("connected")
	return nil
}

// installGain wires the gain stage in front of the publication. Failures are
// reported but never abort the connect sequence.
func (c *Controller) installGain(pub core.PublishedTrack, track *core.LocalTrack) *Pipeline {
	pipeline, err := NewPipeline(track.Source, c.State().MicGain)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.media").Str("track_id", string(track.ID)).Msg("gain stage skipped")
		return nil
	}
	if err := pub.ReplaceSource(pipeline); err != nil {
		log.Warn().Err(err).Str("module", "app.media").Str("track_id", string(track.ID)).Msg("in-place replace failed, publishing raw track")
		return nil
	}
	return pipeline
}

// Disconnect closes the transport, discards the handle, and empties both
// rendering surfaces synchronously with the state transition. Bumping the
// generation makes any event from the old handle a no-op.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	if c.handle == nil && c.status == StatusDisconnected {
		c.mu.Unlock()
		return
	}
	handle := c.handle
	c.handle = nil
	c.pipeline = nil
	c.gen++
	c.status = StatusDisconnected
	c.local.Clear()
	c.remote.Clear()
	c.mu.Unlock()

	if handle != nil {
		handle.Disconnect()
	}
	log.Info().Str("module", "app.media").Msg("disconnected")
}

func (c *Controller) fail(gen uint64) {
	c.mu.Lock()
	if c.gen == gen && c.status == StatusConnecting {
		c.status = StatusDisconnected
	}
	c.mu.Unlock()
}

// ToggleMic flips the flag optimistically and asks the transport to follow.
// On transport failure the flag is intentionally left flipped and the error
// surfaced to the caller. Without a handle the flip alone is a safe no-op.
func (c *Controller) ToggleMic() (bool, error) {
	c.mu.Lock()
	c.micEnabled = !c.micEnabled
	enabled := c.micEnabled
	handle := c.handle
	c.mu.Unlock()

	if handle == nil {
		return enabled, nil
	}
	if err := handle.SetMicrophoneEnabled(enabled); err != nil {
		return enabled, fmt.Errorf("mic toggle: %w", err)
	}
	return enabled, nil
}

func (c *Controller) ToggleCamera() (bool, error) {
	c.mu.Lock()
	c.cameraEnabled = !c.cameraEnabled
	enabled := c.cameraEnabled
	handle := c.handle
	c.mu.Unlock()

	if handle == nil {
		return enabled, nil
	}
	if err := handle.SetCameraEnabled(enabled); err != nil {
		return enabled, fmt.Errorf("camera toggle: %w", err)
	}
	return enabled, nil
}

// SetMicGain updates the live gain value in place when a gain pipeline is
// active. Range [0,2], 1.0 = unity.
func (c *Controller) SetMicGain(v float64) {
	v = clamp(v, MinGain, MaxGain)
	c.mu.Lock()
	c.micGain = v
	pipeline := c.pipeline
	c.mu.Unlock()
	if pipeline != nil {
		pipeline.SetGain(v)
	}
}

// SetOutputVolume updates every element rendered for remote participants.
// Range [0,1]. Local monitoring stays muted regardless.
func (c *Controller) SetOutputVolume(v float64) {
	v = clamp(v, 0, 1)
	c.mu.Lock()
	c.outputVolume = v
	c.mu.Unlock()
	c.remote.SetVolumeAll(v)
}

func (c *Controller) onTrackSubscribed(gen uint64, tr domain.RemoteTrack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		log.Debug().Str("module", "app.media").Str("track_id", string(tr.TrackID)).Msg("subscribed event from stale handle ignored")
		return
	}
	c.remote.Attach(tr.ParticipantSID, tr.ParticipantIdentity, render.Element{
		TrackID: tr.TrackID,
		Kind:    tr.Kind,
		Volume:  c.outputVolume,
	})
	log.Info().Str("module", "app.media").Str("track_id", string(tr.TrackID)).Str("kind", string(tr.Kind)).Msg("remote track subscribed")
}

func (c *Controller) onTrackUnsubscribed(gen uint64, tr domain.RemoteTrack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.remote.RemoveTrack(tr.TrackID)
	log.Info().Str("module", "app.media").Str("track_id", string(tr.TrackID)).Msg("remote track unsubscribed")
}

func (c *Controller) onParticipantDisconnected(gen uint64, sid, identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.remote.RemoveParticipant(sid, identity)
	log.Info().Str("module", "app.media").Str("sid", sid).Msg("participant disconnected")
}
