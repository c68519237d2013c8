package audioconv

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConvertWAV_StereoUpsampled(t *testing.T) {
	t.Parallel()

	const frames = 800 // 0.1s at 8 kHz
	data := make([]int, frames*2)
	for i := range frames {
		data[2*i] = 16384
		data[2*i+1] = -16384
	}

	path := filepath.Join(t.TempDir(), "clip.wav")
	writeWAV(t, path, 8000, 2, data)

	pcm, err := ConvertFileToPCM16k(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(pcm) != 2*frames {
		t.Errorf("len = %d, want %d", len(pcm), 2*frames)
	}
	for i, v := range pcm {
		if math.Abs(float64(v)) > 1e-6 {
			t.Fatalf("sample %d = %v, want opposite channels to cancel", i, v)
		}
	}
}

func TestConvertWAV_SniffedAndCapped(t *testing.T) {
	t.Parallel()

	data := make([]int, 16000)
	for i := range data {
		data[i] = 8192
	}

	path := filepath.Join(t.TempDir(), "clip.bin")
	writeWAV(t, path, 16000, 1, data)

	pcm, err := ConvertFileToPCM16k(context.Background(), path, Options{MaxSamples: 1000})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(pcm) != 1000 {
		t.Errorf("len = %d, want capped 1000", len(pcm))
	}
	if math.Abs(float64(pcm[0])-0.25) > 1e-6 {
		t.Errorf("pcm[0] = %v, want 0.25", pcm[0])
	}
}

func TestConvert_Unsupported(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ConvertFileToPCM16k(context.Background(), path, Options{}); err == nil {
		t.Error("expected error for unsupported file")
	}
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	got := downmix([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	mono := []float32{0.1, 0.2}
	if got := downmix(mono, 1); &got[0] != &mono[0] {
		t.Error("mono input should be returned as is")
	}
}

func TestResampleLinear(t *testing.T) {
	t.Parallel()

	got := resampleLinear([]float32{0, 1}, 8000, 16000)
	want := []float32{0, 0.5, 1, 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if got := resampleLinear(nil, 44100, 16000); got != nil {
		t.Errorf("empty input should stay empty, got %v", got)
	}
	if got := resampleLinear(make([]float32, 48), 48000, 16000); len(got) != 16 {
		t.Errorf("48k->16k len = %d, want 16", len(got))
	}
}
