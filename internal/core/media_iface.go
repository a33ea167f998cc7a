package core

import (
	"context"
	"errors"

	"github.com/calixio/calixio-client/internal/domain"
)

var ErrReplaceUnsupported = errors.New("in-place source replacement unsupported")

// TransportOptions mirror the media server's per-connection features.
type TransportOptions struct {
	AdaptiveStream bool
	Dynacast       bool
}

// TransportEvents are registered before Connect so no early event is lost.
// Callbacks fire from the transport's read loop at any time while connected.
type TransportEvents struct {
	OnTrackSubscribed         func(domain.RemoteTrack)
	OnTrackUnsubscribed       func(domain.RemoteTrack)
	OnParticipantDisconnected func(sid, identity string)
}

// PublishedTrack is one live publication on the transport.
type PublishedTrack interface {
	ID() domain.TrackID
	Kind() domain.TrackKind
	// ReplaceSource substitutes the sample source feeding this publication
	// without renegotiating. Returns ErrReplaceUnsupported when the
	// publication cannot be swapped in place.
	ReplaceSource(SampleSource) error
}

// MediaTransport is the narrow boundary in front of the real-time SDK.
// One handle is one live session; a closed handle is never reused.
type MediaTransport interface {
	Connect(ctx context.Context, url, token string) error
	Publish(ctx context.Context, track *LocalTrack) (PublishedTrack, error)
	SetMicrophoneEnabled(enabled bool) error
	SetCameraEnabled(enabled bool) error
	Disconnect()
}

// TransportFactory builds a fresh handle with observers already attached.
type TransportFactory func(opts TransportOptions, events TransportEvents) (MediaTransport, error)
