package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
sage_init(const char *lang)
{
	if (espeak_Initialize(AUDIO_OUTPUT_PLAYBACK, 500, NULL, 0) < 0)
	{ return -1; }

	espeak_VOICE spec;
	memset(&spec, 0, sizeof(spec));
	spec.languages = lang;
	return espeak_SetVoiceByProperties(&spec) == EE_OK ? 0 : -2;
}

static int
sage_say(const char *text)
{
	espeak_Cancel();
	return (int)espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0,
	                         espeakCHARS_AUTO, NULL, NULL);
}

static void
sage_cancel(void)
{
	espeak_Cancel();
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// Speaker plays text through espeak-ng. Playback is asynchronous and a new
// Speak cuts off whatever is still playing.
type Speaker struct {
	mu    sync.Mutex
	lang  *C.char
	ready bool
}

func NewSpeaker(lang string) *Speaker {
	if lang == "" {
		lang = "en"
	}
	return &Speaker{lang: C.CString(lang)}
}

func (s *Speaker) init() error {
	if s.ready {
		return nil
	}
	if rc := C.sage_init(s.lang); rc != 0 {
		return fmt.Errorf("espeak init failed: %d", int(rc))
	}
	s.ready = true
	return nil
}

func (s *Speaker) Speak(text string) error {
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.init(); err != nil {
		return err
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.sage_say(ctext); rc != 0 {
		return fmt.Errorf("espeak synth failed: %d", int(rc))
	}
	return nil
}

// Stop cancels current playback.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		C.sage_cancel()
	}
}

func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		C.espeak_Terminate()
		s.ready = false
	}
	C.free(unsafe.Pointer(s.lang))
	s.lang = nil
}
