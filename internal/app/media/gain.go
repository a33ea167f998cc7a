package media

import (
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"

	"github.com/calixio/calixio-client/internal/core"
)

// ErrGainUnsupported means the captured audio is pre-encoded and cannot be
// scaled sample by sample; the raw publication stays as-is.
var ErrGainUnsupported = errors.New("gain stage requires a pcm source")

const (
	MinGain = 0.0
	MaxGain = 2.0
)

// Pipeline is the client-side gain stage inserted between the raw captured
// audio source and the published track. The publication swaps to reading
// from the pipeline in place, so the remote side hears the post-gain signal
// without a renegotiation. Gain updates apply live to the next sample.
type Pipeline struct {
	src  core.SampleSource
	gain atomic.Uint64
}

func NewPipeline(src core.SampleSource, gain float64) (*Pipeline, error) {
	if src.Format() != core.SampleFormatPCM16 {
		return nil, ErrGainUnsupported
	}
	p := &Pipeline{src: src}
	p.SetGain(gain)
	return p, nil
}

func (p *Pipeline) Format() core.SampleFormat { return core.SampleFormatPCM16 }

func (p *Pipeline) Gain() float64 {
	return math.Float64frombits(p.gain.Load())
}

func (p *Pipeline) SetGain(v float64) {
	p.gain.Store(math.Float64bits(clamp(v, MinGain, MaxGain)))
}

func (p *Pipeline) Next() (core.Sample, error) {
	s, err := p.src.Next()
	if err != nil {
		return core.Sample{}, err
	}
	g := p.Gain()
	if g == 1 {
		return s, nil
	}
	out := make([]byte, len(s.Data))
	for i := 0; i+1 < len(s.Data); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(s.Data[i:]))) * g
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(v)))
	}
	return core.Sample{Data: out, Duration: s.Duration}, nil
}

func (p *Pipeline) Close() error { return p.src.Close() }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
