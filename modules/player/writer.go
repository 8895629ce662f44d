package player

import (
	"io"
	"sync"
)

const channelWriterDepth = 1024

// chunk is either stream data or, when title is set, the start of a new title.
type chunk struct {
	data  []byte
	title string
}

// ChannelWriter hands each write to a reader goroutine over a buffered channel. Writes never
// block: when the reader falls behind the chunk is dropped and counted.
type ChannelWriter struct {
	sync.Mutex
	dataChan chan chunk
	closed   bool
	dropped  int
}

func NewChannelWriter() *ChannelWriter {
	return &ChannelWriter{
		dataChan: make(chan chunk, channelWriterDepth),
	}
}

func (cw *ChannelWriter) Write(p []byte) (n int, err error) {
	// The caller may reuse p once Write returns.
	b := make([]byte, len(p))
	copy(b, p)

	if _, err := cw.send(chunk{data: b}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Mark queues a title change in order with the data written so far. It reports whether the
// marker was queued.
func (cw *ChannelWriter) Mark(title string) bool {
	queued, err := cw.send(chunk{title: title})
	return queued && err == nil
}

func (cw *ChannelWriter) send(c chunk) (bool, error) {
	cw.Lock()
	defer cw.Unlock()

	if cw.closed {
		return false, io.ErrClosedPipe
	}

	select {
	case cw.dataChan <- c:
		return true, nil
	default:
		cw.dropped++
		metricRecorderDropped.Inc()
		return false, nil
	}
}

// Dropped returns the number of chunks dropped so far.
func (cw *ChannelWriter) Dropped() int {
	cw.Lock()
	defer cw.Unlock()
	return cw.dropped
}

func (cw *ChannelWriter) Close() error {
	cw.Lock()
	defer cw.Unlock()

	if !cw.closed {
		close(cw.dataChan)
		cw.closed = true
	}

	return nil
}
