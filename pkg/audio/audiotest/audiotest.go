// Package audiotest builds MP3 bitstreams and output devices for tests.
package audiotest

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// FrameSize is the length of an MPEG-1 Layer III frame at 128 kbps, 44.1 kHz, without padding.
const FrameSize = 417

// SamplesPerFrame is the number of samples an MPEG-1 Layer III frame decodes to.
const SamplesPerFrame = 1152

// FrameSize48k is the length of the same frame at 48 kHz.
const FrameSize48k = 384

// frameHeader: sync, MPEG-1, Layer III, no CRC, 128 kbps, 44.1 kHz, no padding, mono.
var frameHeader = []byte{0xFF, 0xFB, 0x90, 0xC4}

// frameHeader48k differs only in the sample rate index.
var frameHeader48k = []byte{0xFF, 0xFB, 0x94, 0xC4}

// SilentFrames returns n frames whose side information and main data are all zero; they decode to silence.
func SilentFrames(n int) []byte {
	return silentFrames(frameHeader, FrameSize, n)
}

// SilentFrames48k is SilentFrames at 48 kHz.
func SilentFrames48k(n int) []byte {
	return silentFrames(frameHeader48k, FrameSize48k, n)
}

func silentFrames(header []byte, size, n int) []byte {
	b := make([]byte, 0, n*size)
	for i := 0; i < n; i++ {
		frame := make([]byte, size)
		copy(frame, header)
		b = append(b, frame...)
	}
	return b
}

// Device drains whatever it is asked to play on a goroutine, as fast as it can.
type Device struct {
	mu      sync.Mutex
	format  beep.Format
	samples int
	inits   int
	closed  bool
	done    chan struct{}
}

// NewDevice returns a Device.
func NewDevice() *Device {
	return &Device{done: make(chan struct{})}
}

// Init records the format.
func (d *Device) Init(format beep.Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.format = format
	d.inits++
	return nil
}

// Play streams s until it is drained.
func (d *Device) Play(s beep.Streamer) {
	go func() {
		defer close(d.done)
		buf := make([][2]float64, 512)
		for {
			n, ok := s.Stream(buf)
			d.mu.Lock()
			d.samples += n
			d.mu.Unlock()
			if !ok {
				return
			}
		}
	}()
}

// Close marks the device closed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Done is closed once the played streamer is drained.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

// Samples returns the number of samples played.
func (d *Device) Samples() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.samples
}

// Format returns the format passed to Init.
func (d *Device) Format() beep.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
