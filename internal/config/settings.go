package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
)

// Env var names read at boot.
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvPassive  = "SAGE_PASSIVE"
	EnvWakeWord = "SAGE_WAKE_WORD"
	EnvSpeak    = "SAGE_SPEAK"
)

// Settings is the user-facing configuration every triage decision reads.
type Settings struct {
	APIKey       string
	PassiveMode  bool
	WakeWord     string
	SpeakReplies bool
}

// Normalize trims the credential and the wake word.
func (s Settings) Normalize() Settings {
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.WakeWord = strings.TrimSpace(s.WakeWord)
	return s
}

// Patch carries a partial settings update. Nil fields are left untouched.
type Patch struct {
	APIKey       *string `json:"api_key,omitempty"`
	PassiveMode  *bool   `json:"passive,omitempty"`
	WakeWord     *string `json:"wake_word,omitempty"`
	SpeakReplies *bool   `json:"speak,omitempty"`
}

func (p Patch) Empty() bool {
	return p.APIKey == nil && p.PassiveMode == nil && p.WakeWord == nil && p.SpeakReplies == nil
}

// Apply returns a copy of s with the non-nil fields of p applied.
func (s Settings) Apply(p Patch) Settings {
	if p.APIKey != nil {
		s.APIKey = *p.APIKey
	}
	if p.PassiveMode != nil {
		s.PassiveMode = *p.PassiveMode
	}
	if p.WakeWord != nil {
		s.WakeWord = *p.WakeWord
	}
	if p.SpeakReplies != nil {
		s.SpeakReplies = *p.SpeakReplies
	}
	return s.Normalize()
}

// Store holds the current Settings. Readers always see a whole snapshot.
type Store struct {
	v atomic.Pointer[Settings]
}

func NewStore(s Settings) *Store {
	st := &Store{}
	st.Save(s)
	return st
}

func (st *Store) Load() Settings {
	return *st.v.Load()
}

func (st *Store) Save(s Settings) {
	s = s.Normalize()
	st.v.Store(&s)
}

// Update applies p on top of the current snapshot and returns old and new values.
func (st *Store) Update(p Patch) (Settings, Settings) {
	for {
		old := st.v.Load()
		next := old.Apply(p)
		if st.v.CompareAndSwap(old, &next) {
			return *old, next
		}
	}
}

// InitialSettings builds boot settings from the process environment, falling
// back to envFile. A missing env file is not an error.
func InitialSettings(envFile string, getenv func(string) string) (Settings, error) {
	file := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Settings{}, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return file[key]
	}

	var errs []error
	parseBool := func(key string) bool {
		raw := lookup(key)
		if raw == "" {
			return false
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, raw, err))
		}
		return b
	}

	s := Settings{
		APIKey:       lookup(EnvAPIKey),
		PassiveMode:  parseBool(EnvPassive),
		WakeWord:     lookup(EnvWakeWord),
		SpeakReplies: parseBool(EnvSpeak),
	}
	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	return s.Normalize(), nil
}
