package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/zachfi/radiogo/pkg/audio"
)

// Source is a decoded stream ready for an output device.
type Source interface {
	beep.Streamer
	Format() beep.Format
}

// Renderer draws the output level.
type Renderer interface {
	Draw(level float64) error
}

// Monitor drives playback on a device and reports the output level on every tick.
type Monitor struct {
	device   audio.Device
	renderer Renderer
	interval time.Duration
	volume   int
	logger   *slog.Logger

	level *audio.Level
}

func NewMonitor(device audio.Device, renderer Renderer, interval time.Duration, volume int, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultMeterInterval
	}

	return &Monitor{
		device:   device,
		renderer: renderer,
		interval: interval,
		volume:   volume,
		logger:   logger,
	}
}

// Run submits src to the device and renders the level until ctx is canceled, returning nil, or
// until src ends, returning its error. The device pulls audio on its own goroutine so rendering
// never holds up playback.
func (m *Monitor) Run(ctx context.Context, src Source) error {
	if err := m.device.Init(src.Format()); err != nil {
		return err
	}

	m.level = audio.NewLevel(audio.Gain(src, m.volume))
	end := newEndNotifier(m.level)
	m.device.Play(end)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-end.done:
			m.render(0, src)
			if err := src.Err(); err != nil {
				return err
			}
			return audio.ErrStreamEnded
		case <-ticker.C:
			m.render(m.level.Value(), src)
		}
	}
}

// Level returns the most recent output level, 0 before Run.
func (m *Monitor) Level() float64 {
	if m.level == nil {
		return 0
	}
	return m.level.Value()
}

func (m *Monitor) render(level float64, src Source) {
	metricOutputLevel.Set(level)
	if s, ok := src.(interface{ Skipped() int64 }); ok {
		metricSkippedFrames.Set(float64(s.Skipped()))
	}

	if m.renderer == nil {
		return
	}
	if err := m.renderer.Draw(level); err != nil {
		m.logger.Debug("failed to draw meter", "err", err)
	}
}

// endNotifier closes done the first time the wrapped streamer is drained.
type endNotifier struct {
	beep.Streamer

	once sync.Once
	done chan struct{}
}

func newEndNotifier(s beep.Streamer) *endNotifier {
	return &endNotifier{Streamer: s, done: make(chan struct{})}
}

func (e *endNotifier) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.Streamer.Stream(samples)
	if !ok {
		e.once.Do(func() { close(e.done) })
	}
	return n, ok
}
