package core

import (
	"context"
	"time"

	"github.com/calixio/calixio-client/internal/domain"
)

type SampleFormat int

const (
	SampleFormatPCM16 SampleFormat = iota
	SampleFormatOpus
	SampleFormatVP8
)

// Sample is one timed chunk of media, encoded or raw depending on the
// source format.
type Sample struct {
	Data     []byte
	Duration time.Duration
}

// SampleSource yields media samples until io.EOF. Sources are single-reader;
// the publish pump is the only consumer.
type SampleSource interface {
	Format() SampleFormat
	Next() (Sample, error)
	Close() error
}

// LocalTrack is one captured stream ready to publish.
type LocalTrack struct {
	ID     domain.TrackID
	Kind   domain.TrackKind
	Source SampleSource
}

// CaptureDevice acquires local audio/video tracks. Acquisition failure
// (missing device, unreadable file) is an error, not a panic.
type CaptureDevice interface {
	Acquire(ctx context.Context) ([]*LocalTrack, error)
}
