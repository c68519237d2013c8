package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Beeper plays a short mp3 cue and blocks until it finishes.
type Beeper struct {
	path string

	once    sync.Once
	initErr error
}

// NewBeeper returns nil for an empty path; a nil Beeper is silent.
func NewBeeper(path string) *Beeper {
	if path == "" {
		return nil
	}
	return &Beeper{path: path}
}

func (b *Beeper) Beep() error {
	if b == nil {
		return nil
	}

	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode cue: %w", err)
	}
	defer streamer.Close()

	b.once.Do(func() {
		b.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if b.initErr != nil {
		return fmt.Errorf("init speaker: %w", b.initErr)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
