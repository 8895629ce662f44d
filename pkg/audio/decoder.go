// Package audio decodes MP3 streams progressively and hands them to an output device.
package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
)

var (
	// ErrDecodeFailed is returned when the stream is not a decodable MP3 bitstream.
	ErrDecodeFailed = errors.New("audio decode failed")

	// ErrStreamEnded is reported by Decoder.Err once the source stops delivering bytes.
	ErrStreamEnded = errors.New("audio stream ended")
)

const (
	// DefaultMaxResyncs is the number of consecutive corrupt frames tolerated before giving up.
	DefaultMaxResyncs = 32

	readBufferSize = 32 * 1024
	maxSyncScan    = 64 * 1024
)

// DecoderOptions tune a Decoder.
type DecoderOptions struct {
	MaxResyncs int
	Logger     *slog.Logger
}

// Decoder is a beep.Streamer over a live MP3 byte stream. Frames are decoded as bytes arrive.
//
// A corrupt frame does not end playback: the decoder skips to the next frame sync word and
// carries on with a fresh frame decoder on the same source.
type Decoder struct {
	src    *bufio.Reader
	closer io.Closer
	frames beep.StreamSeekCloser
	format beep.Format
	logger *slog.Logger

	maxResyncs int
	failures   int
	skipped    atomic.Int64
	err        error
}

// Decode reads the first frame header from rc. If it is not a valid MP3 header rc is closed
// and ErrDecodeFailed returned.
func Decode(rc io.ReadCloser, opts DecoderOptions) (*Decoder, error) {
	if opts.MaxResyncs <= 0 {
		opts.MaxResyncs = DefaultMaxResyncs
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Decoder{
		src:        bufio.NewReaderSize(rc, readBufferSize),
		closer:     rc,
		logger:     opts.Logger,
		maxResyncs: opts.MaxResyncs,
	}

	frames, format, err := mp3.Decode(io.NopCloser(d.src))
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	d.frames = frames
	d.format = format

	return d, nil
}

// Format is the sample format of the first frame.
func (d *Decoder) Format() beep.Format {
	return d.format
}

// Skipped returns the number of corrupt frames skipped so far.
func (d *Decoder) Skipped() int64 {
	return d.skipped.Load()
}

// Stream implements beep.Streamer.
func (d *Decoder) Stream(samples [][2]float64) (int, bool) {
	for d.err == nil {
		n, ok := d.frames.Stream(samples)
		if ok {
			if n > 0 {
				d.failures = 0
			}
			return n, true
		}

		err := d.frames.Err()
		switch {
		case err == nil:
			d.err = ErrStreamEnded
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			d.err = fmt.Errorf("%w: %w", ErrStreamEnded, err)
		default:
			d.resync(err)
		}
	}

	return 0, false
}

// Err implements beep.Streamer. It is ErrStreamEnded or ErrDecodeFailed once Stream returned false.
func (d *Decoder) Err() error {
	return d.err
}

// Close closes the source.
func (d *Decoder) Close() error {
	return d.closer.Close()
}

// resync skips the corrupt frame that caused cause and restarts frame decoding at the next sync
// word. It sets d.err when the stream cannot be recovered.
func (d *Decoder) resync(cause error) {
	d.skipped.Add(1)
	d.logger.Warn("skipping corrupt frame", "err", cause, "skipped", d.skipped.Load())

	for {
		d.failures++
		if d.failures > d.maxResyncs {
			d.err = fmt.Errorf("%w: %d consecutive corrupt frames: %w", ErrDecodeFailed, d.maxResyncs, cause)
			return
		}

		n, err := skipToFrameSync(d.src, maxSyncScan)
		if errors.Is(err, errNoFrameSync) {
			d.err = fmt.Errorf("%w: %w after %d bytes", ErrDecodeFailed, err, n)
			return
		}
		if err != nil {
			d.err = fmt.Errorf("%w: %w", ErrStreamEnded, err)
			return
		}

		frames, format, err := mp3.Decode(io.NopCloser(d.src))
		if err == nil {
			_ = d.frames.Close()
			d.frames = frames
			// The output device was initialised for the first frame's format.
			if format.SampleRate != d.format.SampleRate || format.NumChannels != d.format.NumChannels {
				d.err = fmt.Errorf("%w: format changed from %d Hz to %d Hz after resync", ErrDecodeFailed, d.format.SampleRate, format.SampleRate)
			}
			return
		}

		cause = err
		// Move past this sync word so the next scan finds a different one.
		if _, err := d.src.Discard(1); err != nil {
			d.err = fmt.Errorf("%w: %w", ErrStreamEnded, err)
			return
		}
	}
}
