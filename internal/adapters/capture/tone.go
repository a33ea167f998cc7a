package capture

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/calixio/calixio-client/internal/core"
)

const (
	toneFrequency = 440.0
	toneAmplitude = 8000
)

// ToneSource generates an endless 440Hz sine in 20ms s16le frames. It is
// the stand-in microphone when no audio file is configured.
type ToneSource struct {
	phase float64
}

func NewToneSource() *ToneSource {
	return &ToneSource{}
}

func (s *ToneSource) Format() core.SampleFormat { return core.SampleFormatPCM16 }

func (s *ToneSource) Next() (core.Sample, error) {
	data := make([]byte, pcmFrameBytes)
	step := 2 * math.Pi * toneFrequency / pcmSampleRate
	for i := 0; i < len(data); i += 2 {
		v := int16(toneAmplitude * math.Sin(s.phase))
		binary.LittleEndian.PutUint16(data[i:], uint16(v))
		s.phase += step
	}
	// keep the phase bounded over long sessions
	s.phase = math.Mod(s.phase, 2*math.Pi)
	return core.Sample{Data: data, Duration: 20 * time.Millisecond}, nil
}

func (s *ToneSource) Close() error { return nil }
