// Package capture runs ambient speech capture as a restartable loop.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	log "log/slog"
)

// DefaultBackoff is the pause between a finished session and the next one.
const DefaultBackoff = 500 * time.Millisecond

type State int

const (
	Stopped State = iota
	Listening
	Restarting
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Listening:
		return "listening"
	case Restarting:
		return "restarting"
	default:
		return "unknown"
	}
}

var ErrRunning = errors.New("capture already running")

// Source runs one recognition session and returns its transcript once the
// session reaches a terminal event.
type Source interface {
	Listen(ctx context.Context) (string, error)
}

// Handler receives a non-empty transcript. Its context is not cancelled by Stop.
type Handler func(ctx context.Context, text string)

// Passive keeps a Source listening until stopped, restarting it after every
// session with a fixed backoff.
type Passive struct {
	src     Source
	handle  Handler
	backoff time.Duration

	// OnState, if set before Start, observes every transition. It runs with
	// the state lock held and must not call back into Passive.
	OnState func(State)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPassive(src Source, handle Handler, backoff time.Duration) *Passive {
	if backoff < 0 {
		backoff = DefaultBackoff
	}
	return &Passive{src: src, handle: handle, backoff: backoff}
}

func (p *Passive) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Passive) Running() bool {
	return p.State() != Stopped
}

// Start moves Stopped -> Listening and begins the loop.
func (p *Passive) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.setStateLocked(Listening)
	p.mu.Unlock()

	go p.run(ctx, done)
	return nil
}

// Stop cancels the current session and waits for the loop to exit. No
// session is started after Stop returns. Stopping a stopped capture is a no-op.
func (p *Passive) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Passive) run(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.done = nil
		p.setStateLocked(Stopped)
		p.mu.Unlock()
		close(done)
	}()

	detached := context.WithoutCancel(ctx)

	for {
		text, err := p.src.Listen(ctx)
		if ctx.Err() != nil {
			return
		}

		switch {
		case err != nil:
			log.Warn("Passive capture session failed", "err", err)
		case text != "":
			go p.handle(detached, text)
		}

		if !p.transition(ctx, Restarting) {
			return
		}

		t := time.NewTimer(p.backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if !p.transition(ctx, Listening) {
			return
		}
	}
}

// transition sets s unless the loop is being stopped.
func (p *Passive) transition(ctx context.Context, s State) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	p.setStateLocked(s)
	return true
}

func (p *Passive) setStateLocked(s State) {
	if p.state == s {
		return
	}
	p.state = s
	if p.OnState != nil {
		p.OnState(s)
	}
}
