package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "log/slog"

	"sage/internal/assistant"
	"sage/internal/bus"
	"sage/internal/capture"
	"sage/internal/config"
	"sage/internal/ipc"
	"sage/internal/triage"
)

const captureTimeout = 60 * time.Second

// audioInput is satisfied by *audio.Listener.
type audioInput interface {
	capture.Source
	TranscribeFile(ctx context.Context, path string) (string, error)
}

// cue is satisfied by *notify.Beeper.
type cue interface {
	Beep() error
}

// playback is satisfied by *tts.Speaker.
type playback interface {
	Stop()
}

type daemon struct {
	ctx      context.Context
	asst     *assistant.Assistant
	listener audioInput
	passive  *capture.Passive
	beeper   cue
	voice    playback

	// serializes microphone ownership between explicit and passive capture,
	// and settings updates with the capture state they imply
	micMu sync.Mutex
}

func newDaemon(ctx context.Context, asst *assistant.Assistant, l audioInput, c cue, v playback, backoff time.Duration) *daemon {
	d := &daemon{ctx: ctx, asst: asst, listener: l, beeper: c, voice: v}
	d.passive = capture.NewPassive(l, d.onHeard, backoff)
	d.passive.OnState = func(s capture.State) {
		log.Debug("Passive capture", "state", s)
	}
	return d
}

func (d *daemon) handle(msg ipc.ControlMessage) ipc.ControlReply {
	switch msg.Cmd {
	case ipc.CmdTrigger:
		return d.trigger()
	case ipc.CmdAsk:
		return d.hear(triage.Utterance{Text: msg.Text, Explicit: true})
	case ipc.CmdHear:
		return d.hear(triage.Utterance{Text: msg.Text})
	case ipc.CmdFile:
		return d.file(msg.Path)
	case ipc.CmdSettings:
		if msg.Settings == nil || msg.Settings.Empty() {
			return ipc.ControlReply{Text: "no settings given"}
		}
		return d.applySettings(*msg.Settings)
	case ipc.CmdClearKey:
		empty := ""
		d.applySettings(config.Patch{APIKey: &empty})
		return ipc.ControlReply{OK: true, Text: "API key cleared from memory."}
	case ipc.CmdStatus:
		return ipc.ControlReply{OK: true, Text: d.status()}
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.ControlReply{Text: "unknown command: " + msg.Cmd}
	}
}

func (d *daemon) hear(u triage.Utterance) ipc.ControlReply {
	res, asked := d.asst.Hear(d.ctx, u)
	if !asked {
		return ipc.ControlReply{OK: true, Kind: "ignored"}
	}
	return ipc.ControlReply{OK: !res.Failed(), Kind: res.Kind.String(), Text: res.Text}
}

// trigger records one explicit utterance from the microphone. Passive
// capture is paused while the microphone is in use.
func (d *daemon) trigger() ipc.ControlReply {
	text, err := d.recordExplicit()
	if err != nil {
		log.Error("Failed to record", "err", err)
		return ipc.ControlReply{Text: err.Error()}
	}
	if text == "" {
		return ipc.ControlReply{OK: true, Kind: "ignored", Text: "nothing heard"}
	}
	return d.hear(triage.Utterance{Text: text, Explicit: true})
}

func (d *daemon) recordExplicit() (string, error) {
	d.micMu.Lock()
	defer d.micMu.Unlock()

	resume := d.passive.Running()
	if resume {
		d.passive.Stop()
	}
	defer func() {
		if resume && d.asst.Settings().Load().PassiveMode {
			d.startPassiveLocked()
		}
	}()

	d.voice.Stop()
	if err := d.beeper.Beep(); err != nil {
		log.Warn("Failed to play cue", "err", err)
	}

	log.Info("Starting listening")

	ctx, cancel := context.WithTimeout(d.ctx, captureTimeout)
	defer cancel()
	return d.listener.Listen(ctx)
}

func (d *daemon) file(path string) ipc.ControlReply {
	if path == "" {
		return ipc.ControlReply{Text: "no file given"}
	}

	ctx, cancel := context.WithTimeout(d.ctx, captureTimeout)
	defer cancel()

	text, err := d.listener.TranscribeFile(ctx, path)
	if err != nil {
		log.Error("Failed to transcribe file", "path", path, "err", err)
		return ipc.ControlReply{Text: err.Error()}
	}
	return d.hear(triage.Utterance{Text: text, Explicit: true})
}

func (d *daemon) applySettings(p config.Patch) ipc.ControlReply {
	d.micMu.Lock()
	old, next := d.asst.Settings().Update(p)
	d.syncPassiveLocked(next)
	d.micMu.Unlock()

	log.Info("Settings saved",
		"passive", next.PassiveMode,
		"wake_word", next.WakeWord,
		"speak", next.SpeakReplies,
		"key_set", next.APIKey != "",
	)

	if old.SpeakReplies && !next.SpeakReplies {
		d.voice.Stop()
	}

	return ipc.ControlReply{OK: true, Text: d.status()}
}

// syncPassive starts or stops ambient capture to match the stored settings.
func (d *daemon) syncPassive() {
	d.micMu.Lock()
	defer d.micMu.Unlock()

	d.syncPassiveLocked(d.asst.Settings().Load())
}

func (d *daemon) syncPassiveLocked(s config.Settings) {
	switch {
	case s.PassiveMode && !d.passive.Running():
		d.startPassiveLocked()
	case !s.PassiveMode && d.passive.Running():
		d.passive.Stop()
		log.Info("Passive listening stopped")
	}
}

func (d *daemon) startPassiveLocked() {
	if err := d.passive.Start(d.ctx); err != nil {
		log.Warn("Failed to start passive capture", "err", err)
		return
	}
	log.Info("Passive listening active")
}

func (d *daemon) onHeard(ctx context.Context, text string) {
	d.asst.Hear(ctx, triage.Utterance{Text: text})
}

func (d *daemon) pumpBus(b *bus.Bus) {
	for {
		m, err := b.Read()
		if err != nil {
			if d.ctx.Err() == nil {
				log.Error("Bus read failed", "err", err)
			}
			return
		}

		u, ok := bus.Utterance(m)
		if !ok {
			continue
		}
		go d.asst.Hear(d.ctx, u)
	}
}

func (d *daemon) status() string {
	s := d.asst.Settings().Load()

	key := "unset"
	if s.APIKey != "" {
		key = "set"
	}
	wake := s.WakeWord
	if wake == "" {
		wake = "-"
	}

	return strings.Join([]string{
		fmt.Sprintf("passive: %s", d.passive.State()),
		fmt.Sprintf("wake word: %s", wake),
		fmt.Sprintf("speak replies: %t", s.SpeakReplies),
		fmt.Sprintf("api key: %s", key),
	}, "\n")
}
