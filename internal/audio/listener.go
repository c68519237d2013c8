package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "log/slog"

	"sage/pkg/audioconv"
	"sage/pkg/stt"
)

// Transcriber is satisfied by *stt.Transcriber.
type Transcriber interface {
	TranscribePCM(ctx context.Context, pcm16k []float32, opt stt.Options) (stt.Result, error)
}

// Listener turns microphone input or audio files into text.
// One Listen call is one recognition session. Transcriptions run one at a
// time since the whisper model is shared.
type Listener struct {
	rec  *Recorder
	tr   Transcriber
	opts stt.Options

	trMu sync.Mutex
}

func NewListener(rec *Recorder, tr Transcriber, opts stt.Options) *Listener {
	return &Listener{rec: rec, tr: tr, opts: opts}
}

// Listen records one utterance and transcribes it. Silence yields "" and no error.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	pcm, err := l.rec.RecordAuto(ctx)
	if errors.Is(err, ErrNoSpeech) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}

	log.Debug("Recorded", "samples", len(pcm))

	return l.transcribe(ctx, pcm)
}

func (l *Listener) TranscribeFile(ctx context.Context, path string) (string, error) {
	pcm, err := audioconv.ConvertFileToPCM16k(ctx, path, audioconv.Options{
		MaxSamples: int(l.rec.MaxLength.Seconds() * SampleRate * 3),
	})
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return l.transcribe(ctx, pcm)
}

func (l *Listener) transcribe(ctx context.Context, pcm []float32) (string, error) {
	l.trMu.Lock()
	res, err := l.tr.TranscribePCM(ctx, pcm, l.opts)
	l.trMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	log.Debug("Transcribed", "text", text, "lang", res.Language)
	return text, nil
}
