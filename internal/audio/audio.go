// Package audio feeds recorded speech into the recognizer. Live capture
// needs a platform backend that is not bundled, so the file source doubles
// as the offline test path.
package audio

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ErrNoCaptureBackend reports that live microphone capture is unavailable.
var ErrNoCaptureBackend = errors.New("audio: no capture backend compiled in")

// Device describes a capture device.
type Device struct {
	ID   int
	Name string
}

// ListDevices enumerates capture devices. Without a native backend there is
// nothing to list.
func ListDevices() ([]Device, error) {
	return nil, ErrNoCaptureBackend
}

// Source yields mono float32 sample buffers, one utterance at a time.
type Source interface {
	SampleRate() int
	Next() ([]float32, error)
}

// WAVSource reads a whole WAV file as a single utterance. Multi-channel
// files are downmixed by averaging.
type WAVSource struct {
	path       string
	sampleRate int
	samples    []float32
	consumed   bool
}

// OpenWAV decodes the file up front so malformed input fails at open time.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("audio: decode %s: empty stream", path)
	}

	fl := buf.AsFloat32Buffer()
	channels := buf.Format.NumChannels
	frames := len(fl.Data) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += fl.Data[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}

	return &WAVSource{
		path:       path,
		sampleRate: buf.Format.SampleRate,
		samples:    mono,
	}, nil
}

func (s *WAVSource) SampleRate() int { return s.sampleRate }

// Next returns the full file once, then io-style exhaustion via ErrDrained.
func (s *WAVSource) Next() ([]float32, error) {
	if s.consumed {
		return nil, ErrDrained
	}
	s.consumed = true
	return s.samples, nil
}

// ErrDrained reports that a source has no more utterances.
var ErrDrained = errors.New("audio: source drained")
