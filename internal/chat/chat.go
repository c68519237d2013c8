// Package chat models the conversation shown to the user.
package chat

import (
	log "log/slog"
	"time"
)

type Role string

const (
	User Role = "user"
	Bot  Role = "bot"
)

type Kind string

const (
	KindTranscript Kind = "transcript" // explicit capture, shown as a user bubble
	KindHeard      Kind = "heard"      // passive capture, shown as status only
	KindThinking   Kind = "thinking"
	KindReply      Kind = "reply"
	KindError      Kind = "error"
	KindDismiss    Kind = "dismiss" // drop the pending thinking bubble
)

type Message struct {
	From Role
	Kind Kind
	Text string
	At   time.Time
}

type Renderer interface {
	Render(Message)
}

// Multi fans a message out to every renderer.
type Multi []Renderer

func (m Multi) Render(msg Message) {
	for _, r := range m {
		r.Render(msg)
	}
}

// LogRenderer prints the conversation through slog.
type LogRenderer struct {
	Logger *log.Logger
}

func (r LogRenderer) Render(msg Message) {
	l := r.Logger
	if l == nil {
		l = log.Default()
	}

	switch msg.Kind {
	case KindHeard:
		l.Debug("Heard", "text", clip(msg.Text, 80))
	case KindTranscript:
		l.Info("You", "text", msg.Text)
	case KindThinking:
		l.Info("Thinking...")
	case KindDismiss:
		l.Debug("Nothing to say")
	case KindError:
		l.Warn("──────── SAGE ────────")
		l.Warn(msg.Text)
		l.Warn("──────────────────────")
	default:
		l.Info("──────── SAGE ────────")
		l.Info(msg.Text)
		l.Info("──────────────────────")
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
