package shoutcast

import (
	"bytes"
	"strings"
)

// Metadata holds the fields of an ICY metadata block.
type Metadata struct {
	// Title of the current song, usually "Artist - Title"
	StreamTitle string

	// URL sent along with the title, often empty
	StreamURL string
}

// NewMetadata parses a raw metadata block of the form StreamTitle='...';StreamUrl='...';
// The block is NUL padded to a multiple of 16 bytes.
func NewMetadata(b []byte) *Metadata {
	m := &Metadata{}
	s := string(bytes.TrimRight(b, "\x00"))

	for len(s) > 0 {
		eq := strings.Index(s, "='")
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = s[eq+2:]

		// Titles may contain "'" so the value ends at the next "';" or at the end of the block.
		end := strings.Index(s, "';")
		var value string
		if end < 0 {
			value = strings.TrimSuffix(s, "'")
			s = ""
		} else {
			value = s[:end]
			s = s[end+2:]
		}

		switch key {
		case "StreamTitle":
			m.StreamTitle = value
		case "StreamUrl":
			m.StreamURL = value
		}
	}

	return m
}

// Equals reports whether m and other carry the same values.
func (m *Metadata) Equals(other *Metadata) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.StreamTitle == other.StreamTitle && m.StreamURL == other.StreamURL
}
