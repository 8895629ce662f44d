package audio

import (
	"bufio"
	"errors"
)

var errNoFrameSync = errors.New("no MP3 frame sync found")

// FindFrameSync returns the position of the first valid MP3 frame sync word.
// MP3 frame sync is: 0xFF followed by 0xE or 0xF in the high nibble.
// Returns -1 if not found.
func FindFrameSync(data []byte) int {
	for i := 0; i < len(data)-1; i++ {
		if isFrameSync(data[i], data[i+1]) {
			return i
		}
	}
	return -1
}

func isFrameSync(b0, b1 byte) bool {
	return b0 == 0xFF && b1&0xE0 == 0xE0
}

// skipToFrameSync discards bytes from r until the next frame sync word is at the head of the
// buffer, giving up after limit bytes. It returns the number of bytes discarded.
func skipToFrameSync(r *bufio.Reader, limit int) (int, error) {
	skipped := 0
	for skipped <= limit {
		n := r.Buffered()
		if n < 2 {
			n = 2
		}

		buf, err := r.Peek(n)
		if len(buf) < 2 {
			if err == nil {
				err = bufio.ErrBufferFull
			}
			return skipped, err
		}

		if i := FindFrameSync(buf); i >= 0 {
			d, _ := r.Discard(i)
			return skipped + d, nil
		}

		// The last byte may be the first half of a sync word split across reads.
		d, _ := r.Discard(len(buf) - 1)
		skipped += d
	}

	return skipped, errNoFrameSync
}
