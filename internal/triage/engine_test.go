package triage

import (
	"strings"
	"testing"
	"time"

	"sage/internal/config"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	recent := ThrottleState{LastTrigger: t0.Add(-500 * time.Millisecond)}
	stale := ThrottleState{LastTrigger: t0.Add(-5 * time.Second)}

	tests := []struct {
		name     string
		u        Utterance
		s        config.Settings
		st       ThrottleState
		want     Action
		wantMode Mode
		reason   string
	}{
		{
			name:   "empty explicit",
			u:      Utterance{Text: "", Explicit: true},
			st:     stale,
			want:   Ignore,
			reason: ReasonTooShort,
		},
		{
			name:   "single char passive",
			u:      Utterance{Text: "  a  "},
			s:      config.Settings{PassiveMode: true},
			st:     stale,
			want:   Ignore,
			reason: ReasonTooShort,
		},
		{
			name:   "passive inside throttle window",
			u:      Utterance{Text: "what is my password?"},
			s:      config.Settings{PassiveMode: true},
			st:     recent,
			want:   Ignore,
			reason: ReasonThrottled,
		},
		{
			name:     "explicit inside throttle window",
			u:        Utterance{Text: "reset my password", Explicit: true},
			st:       recent,
			want:     Query,
			wantMode: ModeExplicit,
			reason:   ReasonExplicit,
		},
		{
			name:   "wake word missing",
			u:      Utterance{Text: "what is the wifi password"},
			s:      config.Settings{PassiveMode: true, WakeWord: "Sage"},
			st:     stale,
			want:   Ignore,
			reason: ReasonNotAddressed,
		},
		{
			name:     "wake word present and question",
			u:        Utterance{Text: "sage, what is the wifi password?"},
			s:        config.Settings{WakeWord: "SAGE"},
			st:       stale,
			want:     Query,
			wantMode: ModeExplicit,
			reason:   ReasonQuestion,
		},
		{
			name:     "explicit ignores wake word",
			u:        Utterance{Text: "printer jammed", Explicit: true},
			s:        config.Settings{WakeWord: "sage"},
			st:       stale,
			want:     Query,
			wantMode: ModeExplicit,
			reason:   ReasonExplicit,
		},
		{
			name:     "passive question without passive mode",
			u:        Utterance{Text: "how do I reset it"},
			st:       stale,
			want:     Query,
			wantMode: ModeExplicit,
			reason:   ReasonQuestion,
		},
		{
			name:     "keyword with passive mode",
			u:        Utterance{Text: "my outlook keeps crashing"},
			s:        config.Settings{PassiveMode: true},
			st:       stale,
			want:     Query,
			wantMode: ModeInferred,
			reason:   ReasonKeyword,
		},
		{
			name:   "keyword without passive mode",
			u:      Utterance{Text: "my outlook keeps crashing"},
			st:     stale,
			want:   Ignore,
			reason: ReasonNotRelevant,
		},
		{
			name:     "wake word statement with passive mode",
			u:        Utterance{Text: "hey sage the printer jammed"},
			s:        config.Settings{PassiveMode: true, WakeWord: "sage"},
			st:       stale,
			want:     Query,
			wantMode: ModeInferred,
			reason:   ReasonWakeWord,
		},
		{
			name:   "plain chatter with passive mode",
			u:      Utterance{Text: "see you at lunch"},
			s:      config.Settings{PassiveMode: true},
			st:     stale,
			want:   Ignore,
			reason: ReasonNotRelevant,
		},
		{
			name:     "zero throttle state",
			u:        Utterance{Text: "is the server down"},
			want:     Query,
			wantMode: ModeExplicit,
			reason:   ReasonQuestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, st := Evaluate(tt.u, tt.s, tt.st, t0)

			if d.Action != tt.want {
				t.Fatalf("action = %v, want %v (reason %s)", d.Action, tt.want, d.Reason)
			}
			if d.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.reason)
			}
			if tt.want == Query {
				if d.Mode != tt.wantMode {
					t.Errorf("mode = %s, want %s", d.Mode, tt.wantMode)
				}
				if !st.LastTrigger.Equal(t0) {
					t.Errorf("LastTrigger = %v, want %v", st.LastTrigger, t0)
				}
			} else if st != tt.st {
				t.Errorf("state changed on ignore: %v -> %v", tt.st, st)
			}
		})
	}
}

func TestEvaluate_ShortTextAlwaysIgnored(t *testing.T) {
	t.Parallel()

	settings := []config.Settings{
		{},
		{PassiveMode: true},
		{PassiveMode: true, WakeWord: "x"},
		{APIKey: "sk", SpeakReplies: true},
	}
	texts := []string{"", " ", "?", " x ", "\n?\t"}

	for _, s := range settings {
		for _, text := range texts {
			for _, explicit := range []bool{true, false} {
				d, _ := Evaluate(Utterance{Text: text, Explicit: explicit}, s, ThrottleState{}, t0)
				if d.Action != Ignore {
					t.Errorf("Evaluate(%q, explicit=%v, %+v) = %v, want Ignore", text, explicit, s, d.Action)
				}
			}
		}
	}
}

func TestEvaluate_PassiveThrottleBoundary(t *testing.T) {
	t.Parallel()

	s := config.Settings{PassiveMode: true}
	u := Utterance{Text: "what is ost?"}

	for _, gap := range []time.Duration{0, time.Millisecond, 1999 * time.Millisecond} {
		d, _ := Evaluate(u, s, ThrottleState{LastTrigger: t0.Add(-gap)}, t0)
		if d.Action != Ignore {
			t.Errorf("gap %s: action = %v, want Ignore", gap, d.Action)
		}
	}

	d, _ := Evaluate(u, s, ThrottleState{LastTrigger: t0.Add(-ThrottleWindow)}, t0)
	if d.Action != Query {
		t.Errorf("gap %s: action = %v, want Query", ThrottleWindow, d.Action)
	}
}

func TestEngine_ThrottleSequence(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	s := config.Settings{PassiveMode: true}

	if d := e.Evaluate(Utterance{Text: "server is slow"}, s, t0); !d.Query() {
		t.Fatalf("first passive trigger ignored: %s", d.Reason)
	}
	if got := e.State().LastTrigger; !got.Equal(t0) {
		t.Fatalf("LastTrigger = %v, want %v", got, t0)
	}

	// ignored passive utterances do not move the throttle
	if d := e.Evaluate(Utterance{Text: "lunch?"}, s, t0.Add(time.Second)); d.Query() {
		t.Fatal("passive trigger inside window should be ignored")
	}
	if got := e.State().LastTrigger; !got.Equal(t0) {
		t.Errorf("LastTrigger moved on ignore: %v", got)
	}

	// back-to-back explicit utterances are never throttled
	for i := range 3 {
		now := t0.Add(time.Duration(i) * time.Millisecond)
		if d := e.Evaluate(Utterance{Text: "reset vpn", Explicit: true}, s, now); !d.Query() {
			t.Fatalf("explicit #%d ignored: %s", i, d.Reason)
		}
	}

	if d := e.Evaluate(Utterance{Text: "wifi is down"}, s, t0.Add(2*time.Millisecond+ThrottleWindow)); !d.Query() {
		t.Errorf("passive after window ignored: %s", d.Reason)
	}
}

func TestBuildRequest(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"X", "my outlook keeps crashing", `he said "hi"`} {
		explicit := BuildRequest("", ModeExplicit, text)
		inferred := BuildRequest("gpt-4o-mini", ModeInferred, text)

		if got := explicit.Messages[1].Content; !strings.Contains(got, `User said: "`+text+`"`) {
			t.Errorf("explicit user message = %q", got)
		}
		if got := inferred.Messages[1].Content; !strings.Contains(got, `User utterance (passive overheard): "`+text+`"`) {
			t.Errorf("inferred user message = %q", got)
		}
		if !strings.Contains(inferred.Messages[1].Content, "If no, reply with nothing.") {
			t.Error("inferred prompt should allow an empty reply")
		}
		if explicit.Model != DefaultModel || inferred.Model != "gpt-4o-mini" {
			t.Errorf("models = %q, %q", explicit.Model, inferred.Model)
		}
	}

	req := BuildRequest("", ModeExplicit, "X")
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v, want system then user", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "source of truth") {
		t.Error("system persona should treat the transcript as ground truth")
	}
	if req.MaxTokens != 400 || req.Temperature != 0.2 {
		t.Errorf("params = %d/%v, want 400/0.2", req.MaxTokens, req.Temperature)
	}
}

func TestStripMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"**Restart** the app\n- step one", "Restart the app\nstep one"},
		{"* **Open** Outlook\n* Run <b>scanpst</b>", "Open Outlook\nRun scanpst"},
		{"plain text", "plain text"},
		{"unclosed <br", "unclosed "},
	}

	for _, tt := range tests {
		got := StripMarkdown(tt.in)
		if got != tt.want {
			t.Errorf("StripMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.Contains(got, "**") {
			t.Errorf("StripMarkdown(%q) kept bold markers", tt.in)
		}
	}
}
