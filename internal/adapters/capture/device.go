// Package capture acquires local media tracks for publishing. A headless
// client has no camera or microphone, so capture is file-based: .ogg for
// opus audio, .ivf for VP8 video, .pcm/.raw for 8kHz s16le audio. With no audio
// file configured a generated test tone stands in, which keeps the gain
// stage live-adjustable.
package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/core"
	"github.com/calixio/calixio-client/internal/domain"
)

type Device struct {
	audioPath string
	videoPath string
}

func NewDevice(audioPath, videoPath string) *Device {
	return &Device{audioPath: audioPath, videoPath: videoPath}
}

// Acquire opens the configured sources. A missing or unreadable file is the
// headless equivalent of a denied device permission.
func (d *Device) Acquire(ctx context.Context) ([]*core.LocalTrack, error) {
	audio, err := d.audioSource()
	if err != nil {
		return nil, fmt.Errorf("acquire audio: %w", err)
	}
	tracks := []*core.LocalTrack{{
		ID:     domain.TrackID("TR_" + uuid.NewString()),
		Kind:   domain.TrackKindAudio,
		Source: audio,
	}}

	if d.videoPath == "" {
		log.Warn().Str("module", "adapters.capture").Msg("no video file configured, audio only")
		return tracks, nil
	}
	video, err := newIVFSource(d.videoPath)
	if err != nil {
		audio.Close()
		return nil, fmt.Errorf("acquire video: %w", err)
	}
	tracks = append(tracks, &core.LocalTrack{
		ID:     domain.TrackID("TR_" + uuid.NewString()),
		Kind:   domain.TrackKindVideo,
		Source: video,
	})
	return tracks, nil
}

func (d *Device) audioSource() (core.SampleSource, error) {
	if d.audioPath == "" {
		return NewToneSource(), nil
	}
	switch strings.ToLower(filepath.Ext(d.audioPath)) {
	case ".ogg":
		return newOggSource(d.audioPath)
	case ".pcm", ".raw":
		return newPCMFileSource(d.audioPath)
	default:
		return nil, fmt.Errorf("unsupported audio file %q", d.audioPath)
	}
}
