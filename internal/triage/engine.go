// Package triage decides, for every piece of heard text, whether the
// assistant should query the completion service and with which prompt.
package triage

import (
	"strings"
	"sync"
	"time"

	"sage/internal/config"
)

// ThrottleWindow is the minimum gap between two passive triggers.
const ThrottleWindow = 2000 * time.Millisecond

type Mode int

const (
	ModeExplicit Mode = iota + 1
	ModeInferred
)

func (m Mode) String() string {
	switch m {
	case ModeExplicit:
		return "explicit"
	case ModeInferred:
		return "inferred"
	default:
		return "none"
	}
}

type Action int

const (
	Ignore Action = iota
	Query
)

// Decision reasons, for logs.
const (
	ReasonTooShort     = "too_short"
	ReasonThrottled    = "throttled"
	ReasonNotAddressed = "not_addressed"
	ReasonNotRelevant  = "not_relevant"
	ReasonExplicit     = "explicit"
	ReasonQuestion     = "question"
	ReasonKeyword      = "keyword"
	ReasonWakeWord     = "wake_word"
)

type Decision struct {
	Action Action
	Mode   Mode
	Reason string
}

func (d Decision) Query() bool { return d.Action == Query }

// Utterance is one piece of recognized text. Explicit is set when the user
// started the capture themselves.
type Utterance struct {
	Text     string
	Explicit bool
}

type ThrottleState struct {
	LastTrigger time.Time
}

func ignore(reason string) Decision {
	return Decision{Action: Ignore, Reason: reason}
}

func query(mode Mode, reason string) Decision {
	return Decision{Action: Query, Mode: mode, Reason: reason}
}

// Evaluate classifies u. The returned state carries LastTrigger = now when
// the decision is a query and is st unchanged otherwise.
func Evaluate(u Utterance, s config.Settings, st ThrottleState, now time.Time) (Decision, ThrottleState) {
	d := decide(u, s, st, now)
	if d.Query() {
		st.LastTrigger = now
	}
	return d, st
}

func decide(u Utterance, s config.Settings, st ThrottleState, now time.Time) Decision {
	text := strings.TrimSpace(u.Text)
	if len([]rune(text)) < 2 {
		return ignore(ReasonTooShort)
	}

	if !u.Explicit && now.Sub(st.LastTrigger) < ThrottleWindow {
		return ignore(ReasonThrottled)
	}

	wake := strings.TrimSpace(s.WakeWord)
	if !u.Explicit && wake != "" && !containsFold(text, wake) {
		return ignore(ReasonNotAddressed)
	}

	if u.Explicit {
		return query(ModeExplicit, ReasonExplicit)
	}
	if IsQuestionLike(text) {
		return query(ModeExplicit, ReasonQuestion)
	}

	if s.PassiveMode {
		if HasKeyword(text) {
			return query(ModeInferred, ReasonKeyword)
		}
		if wake != "" && containsFold(text, wake) {
			return query(ModeInferred, ReasonWakeWord)
		}
	}

	return ignore(ReasonNotRelevant)
}

// Engine keeps the throttle state between evaluations.
type Engine struct {
	mu sync.Mutex
	st ThrottleState
}

func NewEngine() *Engine { return &Engine{} }

// Evaluate runs the triage rules and records the trigger time on a query.
func (e *Engine) Evaluate(u Utterance, s config.Settings, now time.Time) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, st := Evaluate(u, s, e.st, now)
	e.st = st
	return d
}

func (e *Engine) State() ThrottleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st
}
