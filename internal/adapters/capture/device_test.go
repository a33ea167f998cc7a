package capture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calixio/calixio-client/internal/core"
	"github.com/calixio/calixio-client/internal/domain"
)

func TestAcquireToneFallback(t *testing.T) {
	d := NewDevice("", "")

	tracks, err := d.Acquire(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, domain.TrackKindAudio, tracks[0].Kind)
	assert.Equal(t, core.SampleFormatPCM16, tracks[0].Source.Format())
}

func TestAcquireMissingVideoFileFails(t *testing.T) {
	d := NewDevice("", filepath.Join(t.TempDir(), "missing.ivf"))

	_, err := d.Acquire(context.Background())
	assert.Error(t, err)
}

func TestAcquireUnsupportedAudioExtension(t *testing.T) {
	d := NewDevice("clip.mp3", "")

	_, err := d.Acquire(context.Background())
	assert.Error(t, err)
}

func TestPCMFileSourceFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mic.pcm")
	// one full 20ms frame plus a short tail
	data := make([]byte, pcmFrameBytes+100)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))

	src, err := newPCMFileSource(path)
	require.NoError(t, err)
	defer src.Close()

	first, err := src.Next()
	require.NoError(t, err)
	assert.Len(t, first.Data, pcmFrameBytes)
	assert.Equal(t, 20*time.Millisecond, first.Duration)

	tail, err := src.Next()
	require.NoError(t, err)
	assert.Len(t, tail.Data, 100)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestToneSourceProducesBoundedSignal(t *testing.T) {
	src := NewToneSource()
	for i := 0; i < 3; i++ {
		s, err := src.Next()
		require.NoError(t, err)
		assert.Len(t, s.Data, pcmFrameBytes)
	}
	// the generator never ends
	_, err := src.Next()
	assert.NoError(t, err)
}
