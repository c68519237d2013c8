// Package assistant turns heard text into rendered, optionally spoken replies.
//
// One Assistant is one conversation. At most one completion request is in
// flight per conversation: explicit queries wait their turn, passive queries
// that arrive while the conversation is busy are dropped.
package assistant

import (
	"context"
	"time"

	log "log/slog"

	"golang.org/x/sync/semaphore"

	"sage/internal/chat"
	"sage/internal/completion"
	"sage/internal/config"
	"sage/internal/triage"
)

// Speaker plays plain text aloud, replacing anything still playing.
type Speaker interface {
	Speak(text string) error
}

type Options struct {
	Settings  *config.Store
	Completer completion.Completer
	Renderer  chat.Renderer
	Speaker   Speaker // nil disables playback
	Model     string
	Now       func() time.Time
}

type Assistant struct {
	settings  *config.Store
	engine    *triage.Engine
	completer completion.Completer
	renderer  chat.Renderer
	speaker   Speaker
	model     string
	now       func() time.Time
	inflight  *semaphore.Weighted
}

func New(opts Options) *Assistant {
	a := &Assistant{
		settings:  opts.Settings,
		engine:    triage.NewEngine(),
		completer: opts.Completer,
		renderer:  opts.Renderer,
		speaker:   opts.Speaker,
		model:     opts.Model,
		now:       opts.Now,
		inflight:  semaphore.NewWeighted(1),
	}
	if a.settings == nil {
		a.settings = config.NewStore(config.Settings{})
	}
	if a.renderer == nil {
		a.renderer = chat.LogRenderer{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *Assistant) Settings() *config.Store { return a.settings }

// Hear triages u and, when it warrants a reply, queries the completion
// service and renders the outcome. It reports false when nothing was asked.
// Cancelling ctx never aborts a request that is already in flight.
func (a *Assistant) Hear(ctx context.Context, u triage.Utterance) (completion.Result, bool) {
	if u.Explicit {
		a.render(chat.User, chat.KindTranscript, u.Text)
	} else {
		a.render(chat.User, chat.KindHeard, u.Text)
	}

	s := a.settings.Load()
	d := a.engine.Evaluate(u, s, a.now())
	if !d.Query() {
		log.Debug("Ignored utterance", "reason", d.Reason, "explicit", u.Explicit)
		return completion.Result{}, false
	}

	if u.Explicit {
		if err := a.inflight.Acquire(ctx, 1); err != nil {
			log.Warn("Explicit query abandoned while waiting", "err", err)
			return completion.Result{}, false
		}
	} else if !a.inflight.TryAcquire(1) {
		log.Info("Dropped passive query", "reason", "busy", "mode", d.Mode)
		return completion.Result{}, false
	}
	defer a.inflight.Release(1)

	log.Info("Querying", "mode", d.Mode, "reason", d.Reason)

	a.render(chat.Bot, chat.KindThinking, "**Thinking...**")

	req := triage.BuildRequest(a.model, d.Mode, u.Text)
	res := completion.Ask(context.WithoutCancel(ctx), a.completer, s.APIKey, req)

	if res.Failed() {
		log.Warn("Query failed", "kind", res.Kind, "err", res.Err)
	}

	// an inferred query may legitimately come back empty
	if d.Mode == triage.ModeInferred && res.Empty() {
		a.render(chat.Bot, chat.KindDismiss, "")
		return res, true
	}

	kind := chat.KindReply
	if res.Failed() {
		kind = chat.KindError
	}
	a.render(chat.Bot, kind, res.Text)

	if a.speaker != nil && a.settings.Load().SpeakReplies {
		if err := a.speaker.Speak(triage.StripMarkdown(res.Text)); err != nil {
			log.Error("Failed to voice out", "err", err)
		}
	}

	return res, true
}

func (a *Assistant) render(from chat.Role, kind chat.Kind, text string) {
	a.renderer.Render(chat.Message{From: from, Kind: kind, Text: text, At: a.now()})
}
