// Package rtc is the pion-backed implementation of the media transport
// boundary: one websocket signaling connection plus one PeerConnection per
// session.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/core"
)

const answerTimeout = 10 * time.Second

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

type Transport struct {
	opts   core.TransportOptions
	events core.TransportEvents

	answers chan webrtc.SessionDescription

	mu        sync.Mutex
	pc        *webrtc.PeerConnection
	sig       *signalConn
	cancel    context.CancelFunc
	connected bool
	closed    bool
	pubs      []*publishedTrack
}

// NewFactory returns the transport factory used at the application
// boundary. Observers are attached at build time, before any Connect.
func NewFactory() core.TransportFactory {
	return func(opts core.TransportOptions, events core.TransportEvents) (core.MediaTransport, error) {
		return &Transport{
			opts:    opts,
			events:  events,
			answers: make(chan webrtc.SessionDescription, 1),
		}, nil
	}
}

// Connect dials the signaling endpoint with the media token, brings up the
// PeerConnection, and completes the initial join. Any failure leaves the
// transport closed; the handle is not reusable.
func (t *Transport) Connect(ctx context.Context, rawURL, token string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("signal url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial signal: %w", err)
	}

	pc, err := webrtc.NewPeerConnection(DefaultWebRTCConfig())
	if err != nil {
		ws.Close()
		return err
	}

	sig := newSignalConn(ws)
	runCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.pc = pc
	t.sig = sig
	t.cancel = cancel
	t.mu.Unlock()

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		ci := cand.ToJSON()
		msg := candidatePayload{Type: "candidate", Candidate: ci.Candidate}
		if ci.SDPMid != nil {
			msg.SDPMid = *ci.SDPMid
		}
		if ci.SDPMLineIndex != nil {
			msg.SDPMLineIndex = *ci.SDPMLineIndex
		}
		sig.sendJSON(msg)
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "adapters.rtc").Str("peer_connection_state", s.String()).Msg("Peer state")
	})

	go sig.writePump(runCtx)
	go t.readPump(runCtx, sig)

	sig.sendJSON(joinPayload{
		Type:           "join",
		Token:          token,
		AdaptiveStream: t.opts.AdaptiveStream,
		Dynacast:       t.opts.Dynacast,
	})

	if err := t.negotiate(ctx, pc, sig); err != nil {
		t.Disconnect()
		return fmt.Errorf("join negotiation: %w", err)
	}

	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	log.Info().Str("module", "adapters.rtc").Str("url", rawURL).Msg("transport connected")
	return nil
}

// negotiate runs one offer/answer round trip over the signal connection.
func (t *Transport) negotiate(ctx context.Context, pc *webrtc.PeerConnection, sig *signalConn) error {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return err
	}
	sig.sendJSON(sdpPayload{Type: "offer", SDP: offer.SDP})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(answerTimeout):
		return errors.New("answer timeout")
	case answer := <-t.answers:
		return pc.SetRemoteDescription(answer)
	}
}

// Publish adds the local track to the PeerConnection, renegotiates, and
// starts the sample pump feeding it.
func (t *Transport) Publish(ctx context.Context, track *core.LocalTrack) (core.PublishedTrack, error) {
	t.mu.Lock()
	pc, sig := t.pc, t.sig
	closed := t.closed
	t.mu.Unlock()
	if closed || pc == nil {
		return nil, errors.New("transport not connected")
	}

	pub, err := newPublishedTrack(track)
	if err != nil {
		return nil, err
	}
	if _, err := pc.AddTrack(pub.local); err != nil {
		return nil, err
	}
	if err := t.negotiate(ctx, pc, sig); err != nil {
		return nil, fmt.Errorf("publish negotiation: %w", err)
	}

	t.mu.Lock()
	t.pubs = append(t.pubs, pub)
	t.mu.Unlock()

	go pub.pump()
	log.Info().Str("module", "adapters.rtc").Str("track_id", string(track.ID)).Str("kind", string(track.Kind)).Msg("track published")
	return pub, nil
}

// SetMicrophoneEnabled pauses or resumes local audio publications and tells
// the server about the mute so it can fan the flag out.
func (t *Transport) SetMicrophoneEnabled(enabled bool) error {
	return t.setKindEnabled("audio", enabled)
}

func (t *Transport) SetCameraEnabled(enabled bool) error {
	return t.setKindEnabled("video", enabled)
}

func (t *Transport) setKindEnabled(kind string, enabled bool) error {
	t.mu.Lock()
	sig := t.sig
	connected := t.connected && !t.closed
	pubs := make([]*publishedTrack, len(t.pubs))
	copy(pubs, t.pubs)
	t.mu.Unlock()

	if !connected {
		return errors.New("transport not connected")
	}
	for _, pub := range pubs {
		if string(pub.kind) == kind {
			pub.setMuted(!enabled)
		}
	}
	sig.sendJSON(mutePayload{Type: "mute", Kind: kind, Mute: !enabled})
	return nil
}

// Disconnect tears the session down: leave message best effort, pumps
// stopped, PeerConnection and websocket closed. Safe to call repeatedly.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.connected = false
	pc, sig, cancel := t.pc, t.sig, t.cancel
	pubs := t.pubs
	t.pubs = nil
	t.mu.Unlock()

	if sig != nil {
		sig.sendJSON(memberPayload{Type: "leave"})
	}
	for _, pub := range pubs {
		pub.stop()
	}
	if cancel != nil {
		cancel()
	}
	if pc != nil {
		if err := pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "adapters.rtc").Msg("close error")
		}
	}
	if sig != nil {
		sig.close()
	}
	log.Info().Str("module", "adapters.rtc").Msg("transport closed")
}
