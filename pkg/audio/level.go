package audio

import (
	"math"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/samber/lo"
)

// Level passes samples through and records the output level of the most recent block.
// Value may be called from any goroutine while the device streams.
type Level struct {
	Streamer beep.Streamer

	bits atomic.Uint64
}

// NewLevel wraps s.
func NewLevel(s beep.Streamer) *Level {
	return &Level{Streamer: s}
}

// Stream implements beep.Streamer.
func (l *Level) Stream(samples [][2]float64) (int, bool) {
	n, ok := l.Streamer.Stream(samples)
	l.bits.Store(math.Float64bits(rmsLevel(samples[:n])))
	return n, ok
}

// Err implements beep.Streamer.
func (l *Level) Err() error {
	return l.Streamer.Err()
}

// Value returns the level in [0, 1]; a full scale sine reads 1.
func (l *Level) Value() float64 {
	return math.Float64frombits(l.bits.Load())
}

func rmsLevel(samples [][2]float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += (s[0]*s[0] + s[1]*s[1]) / 2
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	return lo.Clamp(rms*math.Sqrt2, 0, 1)
}

const (
	volumeCurveExponent = 0.5
	minVolumeDB         = -10.0
)

// Gain applies a volume in percent, 100 leaving samples untouched and 0 muting.
func Gain(s beep.Streamer, percent int) *effects.Volume {
	percent = lo.Clamp(percent, 0, 100)
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   percentToExponent(float64(percent)),
		Silent:   percent == 0,
	}
}

// percentToExponent maps a perceptual percentage to a base 2 exponent.
func percentToExponent(p float64) float64 {
	if p <= 0 {
		return minVolumeDB
	}
	if p >= 100 {
		return 0
	}
	return (1.0 - math.Pow(p/100.0, volumeCurveExponent)) * minVolumeDB
}
