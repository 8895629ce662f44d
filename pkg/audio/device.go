package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Device is the audio output. Play returns immediately; the device pulls samples on its own goroutine.
type Device interface {
	Init(format beep.Format) error
	Play(s beep.Streamer)
	Close() error
}

// DefaultSpeakerBuffer is the amount of audio the speaker buffers ahead.
const DefaultSpeakerBuffer = 250 * time.Millisecond

// Speaker is the system audio output.
type Speaker struct {
	Buffer time.Duration

	initialized bool
}

var _ Device = (*Speaker)(nil)

// Init opens the output at the stream's sample rate.
func (s *Speaker) Init(format beep.Format) error {
	buffer := s.Buffer
	if buffer <= 0 {
		buffer = DefaultSpeakerBuffer
	}
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(buffer)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	s.initialized = true
	return nil
}

// Play queues st for playback.
func (s *Speaker) Play(st beep.Streamer) {
	speaker.Play(st)
}

// Close stops playback and releases the output.
func (s *Speaker) Close() error {
	if !s.initialized {
		return nil
	}
	s.initialized = false
	speaker.Clear()
	speaker.Close()
	return nil
}
