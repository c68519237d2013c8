package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const SampleRate = 16000

var ErrNoSpeech = errors.New("no speech recorded")

type Recorder struct {
	// RMS above which a 20ms frame counts as speech.
	Threshold float64
	// Trailing silence that ends an utterance.
	Silence time.Duration
	// Hard cap on one recording.
	MaxLength time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		Threshold: 0.015,
		Silence:   600 * time.Millisecond,
		MaxLength: 10 * time.Second,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordAuto records mono 16 kHz audio from the default input, starting at
// the first loud frame and ending after the configured trailing silence,
// the length cap, or ctx cancellation.
func (r *Recorder) RecordAuto(ctx context.Context) ([]float32, error) {
	const frameSize = SampleRate / 50 // 20ms

	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	maxFrames := int(r.MaxLength / (20 * time.Millisecond))
	silenceLimit := int(r.Silence / (20 * time.Millisecond))

	for i := 0; i < maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.Threshold {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}
		if !speaking {
			continue
		}

		silenceFrames++
		if silenceFrames >= silenceLimit {
			break
		}
		out = append(out, buf...)
	}

	if !speaking {
		return nil, ErrNoSpeech
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
