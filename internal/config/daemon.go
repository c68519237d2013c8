package config

import (
	"errors"
	"fmt"
	"time"

	cli "github.com/spf13/pflag"
)

// Daemon holds boot-time options of sage-daemon.
type Daemon struct {
	EnvFile        string
	LogLevel       string
	Socket         string
	Proxy          string
	Model          string
	BaseURL        string
	RequestTimeout time.Duration
	PassiveBackoff time.Duration
	BusURL         string
	WhisperModel   string
	Language       string
	Voice          string
	BeepFile       string
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// RegisterFlags binds Daemon fields to fs with defaults inline.
func (d *Daemon) RegisterFlags(fs *cli.FlagSet) {
	fs.StringVarP(&d.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&d.LogLevel, "log", "l", "info", "Log level (debug|info|warn|error)")
	fs.StringVarP(&d.Socket, "socket", "s", "/tmp/sage.sock", "Control socket path")
	fs.StringVarP(&d.Proxy, "proxy", "p", "", "Socks proxy address (empty = direct)")
	fs.StringVarP(&d.Model, "model", "m", "gpt-3.5-turbo", "Completion model")
	fs.StringVar(&d.BaseURL, "base-url", "", "Completion API base URL (empty = OpenAI)")
	fs.DurationVar(&d.RequestTimeout, "timeout", 30*time.Second, "Completion request timeout")
	fs.DurationVar(&d.PassiveBackoff, "backoff", 500*time.Millisecond, "Delay before passive capture restarts")
	fs.StringVarP(&d.BusURL, "bus", "b", "", "Websocket bus url for chat rendering (empty = log only)")
	fs.StringVarP(&d.WhisperModel, "whisper", "w", "third_party/whisper.cpp/models/ggml-base.en.bin", "Whisper model path")
	fs.StringVar(&d.Language, "lang", "en", "Transcription language")
	fs.StringVar(&d.Voice, "voice", "en", "Voice playback language")
	fs.StringVar(&d.BeepFile, "beep", "beep.mp3", "Cue played when explicit capture starts (empty = none)")
}

func (d *Daemon) Validate() error {
	var errs []error

	if !logLevels[d.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log level %q (debug|info|warn|error)", d.LogLevel))
	}
	if d.Socket == "" {
		errs = append(errs, errors.New("socket path is required"))
	}
	if d.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if d.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid timeout %s (must be > 0)", d.RequestTimeout))
	}
	if d.PassiveBackoff < 0 {
		errs = append(errs, fmt.Errorf("invalid backoff %s (must be >= 0)", d.PassiveBackoff))
	}
	if d.WhisperModel == "" {
		errs = append(errs, errors.New("whisper model path is required"))
	}

	return errors.Join(errs...)
}
