package capture

import (
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"

	"github.com/calixio/calixio-client/internal/core"
)

const oggSampleRate = 48000

// oggSource streams opus pages from an ogg container. Pre-encoded, so the
// gain stage cannot attach to it.
type oggSource struct {
	file        *os.File
	ogg         *oggreader.OggReader
	lastGranule uint64
}

func newOggSource(path string) (*oggSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ogg, _, err := oggreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &oggSource{file: file, ogg: ogg}, nil
}

func (s *oggSource) Format() core.SampleFormat { return core.SampleFormatOpus }

func (s *oggSource) Next() (core.Sample, error) {
	pageData, pageHeader, err := s.ogg.ParseNextPage()
	if err != nil {
		return core.Sample{}, err
	}
	// granule delta is the number of samples in this page
	sampleCount := pageHeader.GranulePosition - s.lastGranule
	s.lastGranule = pageHeader.GranulePosition
	return core.Sample{
		Data:     pageData,
		Duration: time.Duration(sampleCount) * time.Second / oggSampleRate,
	}, nil
}

func (s *oggSource) Close() error { return s.file.Close() }

// ivfSource streams VP8 frames from an IVF file at the file's timebase.
type ivfSource struct {
	file     *os.File
	ivf      *ivfreader.IVFReader
	interval time.Duration
}

func newIVFSource(path string) (*ivfSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ivf, header, err := ivfreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	interval := time.Millisecond * time.Duration(
		(float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator))*1000)
	return &ivfSource{file: file, ivf: ivf, interval: interval}, nil
}

func (s *ivfSource) Format() core.SampleFormat { return core.SampleFormatVP8 }

func (s *ivfSource) Next() (core.Sample, error) {
	frame, _, err := s.ivf.ParseNextFrame()
	if err != nil {
		return core.Sample{}, err
	}
	return core.Sample{Data: frame, Duration: s.interval}, nil
}

func (s *ivfSource) Close() error { return s.file.Close() }

// pcmFileSource reads raw s16le mono audio in 20ms frames, the one format
// the gain pipeline can scale in place.
type pcmFileSource struct {
	file *os.File
}

// Raw PCM goes out as G.711, whose RTP clock is 8kHz. Capturing at the same
// rate keeps one companded byte per timestamp tick; a 20ms frame is exactly
// 160 samples on the wire.
const (
	pcmSampleRate    = 8000
	pcmFrameDuration = 20 * time.Millisecond
	pcmFrameBytes    = pcmSampleRate / 50 * 2
)

func newPCMFileSource(path string) (*pcmFileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &pcmFileSource{file: file}, nil
}

func (s *pcmFileSource) Format() core.SampleFormat { return core.SampleFormatPCM16 }

func (s *pcmFileSource) Next() (core.Sample, error) {
	buf := make([]byte, pcmFrameBytes)
	n, err := io.ReadFull(s.file, buf)
	if err == io.ErrUnexpectedEOF && n > 0 {
		return core.Sample{Data: buf[:n], Duration: pcmFrameDuration}, nil
	}
	if err != nil {
		return core.Sample{}, io.EOF
	}
	return core.Sample{Data: buf, Duration: pcmFrameDuration}, nil
}

func (s *pcmFileSource) Close() error { return s.file.Close() }
