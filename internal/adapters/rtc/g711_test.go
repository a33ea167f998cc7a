package rtc

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calixio/calixio-client/internal/adapters/capture"
)

// One 20ms capture frame must compand to exactly 160 bytes, one per tick of
// the 8kHz PCMU RTP clock. Anything else desynchronizes payload and
// timestamp on the receiver.
func TestCaptureFrameCompandsToPCMUClockRate(t *testing.T) {
	tone := capture.NewToneSource()
	sample, err := tone.Next()
	require.NoError(t, err)
	require.Equal(t, 20*time.Millisecond, sample.Duration)

	out := encodeULaw(sample.Data)
	assert.Len(t, out, 160)
	assert.Len(t, sample.Data, 320)
}

func TestULawKnownValues(t *testing.T) {
	cases := []struct {
		name   string
		sample int16
		want   byte
	}{
		{"silence", 0, 0xFF},
		{"negative silence boundary", -1, 0x7F},
		{"positive full scale", 32767, 0x80},
		{"negative full scale", -32768, 0x00},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ulawByte(tc.sample))
		})
	}
}

func TestEncodeULawHalvesByteCount(t *testing.T) {
	pcm := make([]byte, 8)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i*1000)))
	}
	assert.Len(t, encodeULaw(pcm), 4)
}
