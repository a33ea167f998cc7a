package rtc

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/calixio/calixio-client/internal/core"
	"github.com/calixio/calixio-client/internal/domain"
)

// publishedTrack feeds one local sample track from a swappable source. The
// pump reads whatever source is current, so ReplaceSource takes effect on
// the next sample without renegotiating the publication.
type publishedTrack struct {
	id    domain.TrackID
	kind  domain.TrackKind
	local *webrtc.TrackLocalStaticSample

	format core.SampleFormat
	muted  atomic.Bool
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	src core.SampleSource
}

func newPublishedTrack(track *core.LocalTrack) (*publishedTrack, error) {
	mime, err := mimeFor(track.Source.Format())
	if err != nil {
		return nil, err
	}
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime},
		string(track.ID),
		"calixio-"+uuid.NewString(),
	)
	if err != nil {
		return nil, err
	}
	return &publishedTrack{
		id:     track.ID,
		kind:   track.Kind,
		local:  local,
		format: track.Source.Format(),
		done:   make(chan struct{}),
		src:    track.Source,
	}, nil
}

func mimeFor(format core.SampleFormat) (string, error) {
	switch format {
	case core.SampleFormatPCM16:
		// raw capture goes out as G.711; companding happens in the pump
		return webrtc.MimeTypePCMU, nil
	case core.SampleFormatOpus:
		return webrtc.MimeTypeOpus, nil
	case core.SampleFormatVP8:
		return webrtc.MimeTypeVP8, nil
	default:
		return "", errors.New("unknown sample format")
	}
}

func (p *publishedTrack) ID() domain.TrackID     { return p.id }
func (p *publishedTrack) Kind() domain.TrackKind { return p.kind }

// ReplaceSource swaps the sample source in place. The replacement must keep
// the negotiated codec, so only a same-format source is accepted.
func (p *publishedTrack) ReplaceSource(src core.SampleSource) error {
	if src.Format() != p.format {
		return core.ErrReplaceUnsupported
	}
	p.mu.Lock()
	p.src = src
	p.mu.Unlock()
	return nil
}

func (p *publishedTrack) setMuted(muted bool) {
	p.muted.Store(muted)
}

func (p *publishedTrack) stop() {
	p.once.Do(func() { close(p.done) })
}

func (p *publishedTrack) source() core.SampleSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

// pump moves samples from the current source into the RTP track, pacing by
// each sample's duration. Muted publications keep consuming so a later
// unmute resumes in real time.
func (p *publishedTrack) pump() {
	defer func() {
		if err := p.source().Close(); err != nil {
			log.Error().Err(err).Str("module", "adapters.rtc").Str("track_id", string(p.id)).Msg("close source")
		}
	}()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		sample, err := p.source().Next()
		if err != nil {
			if err != io.EOF {
				log.Error().Err(err).Str("module", "adapters.rtc").Str("track_id", string(p.id)).Msg("read sample")
			}
			return
		}

		if !p.muted.Load() {
			data := sample.Data
			if p.format == core.SampleFormatPCM16 {
				data = encodeULaw(data)
			}
			if err := p.local.WriteSample(media.Sample{Data: data, Duration: sample.Duration}); err != nil {
				log.Error().Err(err).Str("module", "adapters.rtc").Str("track_id", string(p.id)).Msg("write sample")
				return
			}
		}

		if sample.Duration > 0 {
			select {
			case <-p.done:
				return
			case <-time.After(sample.Duration):
			}
		}
	}
}
