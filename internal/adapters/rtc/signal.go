package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const writeDeadline = 5 * time.Second

// signalConn is the websocket leg of the transport: a buffered send queue
// drained by the write pump, a read pump dispatching server envelopes.
type signalConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newSignalConn(conn *websocket.Conn) *signalConn {
	return &signalConn{conn: conn, send: make(chan []byte, 32)}
}

func (c *signalConn) trySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *signalConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *signalConn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Err(err).Str("module", "adapters.rtc").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.rtc").Msg("writePump write error")
				return
			}
		}
	}
}

func (c *signalConn) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("sendJSON marshal")
		return
	}
	_ = c.trySend(b)
}

// Server envelopes. The type field selects the payload shape.
type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type candidatePayload struct {
	Type          string `json:"type"`
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

type joinPayload struct {
	Type           string `json:"type"`
	Token          string `json:"token"`
	AdaptiveStream bool   `json:"adaptive_stream"`
	Dynacast       bool   `json:"dynacast"`
}

type mutePayload struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	Mute bool   `json:"mute"`
}

type trackPayload struct {
	Type                string `json:"type"`
	ParticipantSID      string `json:"participant_sid"`
	ParticipantIdentity string `json:"participant_identity,omitempty"`
	TrackID             string `json:"track_id"`
	Kind                string `json:"kind"`
}

type memberPayload struct {
	Type     string `json:"type"`
	SID      string `json:"sid"`
	Identity string `json:"identity,omitempty"`
}

func (t *Transport) readPump(ctx context.Context, c *signalConn) {
	defer func() {
		log.Info().Str("module", "adapters.rtc").Msg("readPump closing")
		c.close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Str("module", "adapters.rtc").Msg("readPump read error")
				}
				return
			}
			t.handleSignal(data)
		}
	}
}

func (t *Transport) handleSignal(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("bad json")
		return
	}

	switch env.Type {
	case "answer":
		t.handleAnswer(data)
	case "candidate":
		t.handleCandidate(data)
	case "track_added":
		t.handleTrackAdded(data)
	case "track_removed":
		t.handleTrackRemoved(data)
	case "member_left":
		t.handleMemberLeft(data)
	case "error":
		var p struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &p)
		log.Error().Str("module", "adapters.rtc").Str("error", p.Error).Msg("server error")
	default:
		log.Warn().Str("module", "adapters.rtc").Str("type", env.Type).Msg("unknown signal")
	}
}

func (t *Transport) handleAnswer(data []byte) {
	var p sdpPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("bad answer payload")
		return
	}
	select {
	case t.answers <- webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}:
	default:
		log.Warn().Str("module", "adapters.rtc").Msg("unexpected answer dropped")
	}
}

func (t *Transport) handleCandidate(data []byte) {
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("bad candidate payload")
		return
	}
	cand := webrtc.ICECandidateInit{Candidate: p.Candidate}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}
	cand.SDPMLineIndex = &p.SDPMLineIndex

	t.mu.Lock()
	pc := t.pc
	t.mu.Unlock()
	if pc == nil {
		return
	}
	if err := pc.AddICECandidate(cand); err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("add ice candidate")
	}
}

func (t *Transport) handleTrackAdded(data []byte) {
	var p trackPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("bad track payload")
		return
	}
	if t.events.OnTrackSubscribed != nil {
		t.events.OnTrackSubscribed(domain.RemoteTrack{
			ParticipantSID:      p.ParticipantSID,
			ParticipantIdentity: p.ParticipantIdentity,
			TrackID:             domain.TrackID(p.TrackID),
			Kind:                domain.TrackKind(p.Kind),
		})
	}
}

func (t *Transport) handleTrackRemoved(data []byte) {
	var p trackPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("bad track payload")
		return
	}
	if t.events.OnTrackUnsubscribed != nil {
		t.events.OnTrackUnsubscribed(domain.RemoteTrack{
			ParticipantSID:      p.ParticipantSID,
			ParticipantIdentity: p.ParticipantIdentity,
			TrackID:             domain.TrackID(p.TrackID),
			Kind:                domain.TrackKind(p.Kind),
		})
	}
}

func (t *Transport) handleMemberLeft(data []byte) {
	var p memberPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Msg("bad member payload")
		return
	}
	if t.events.OnParticipantDisconnected != nil {
		t.events.OnParticipantDisconnected(p.SID, p.Identity)
	}
}
