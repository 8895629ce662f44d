package shoutcast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// MetadataCallbackFunc is the type of the function called when the stream metadata changes
type MetadataCallbackFunc func(m *Metadata)

// Stream represents an open shoutcast stream.
type Stream struct {
	// The name of the server
	Name string

	// What category the server falls under
	Genre string

	// The description of the stream
	Description string

	// Homepage of the server
	URL string

	// Bitrate of the server
	Bitrate int

	// Content type of the audio, e.g. audio/mpeg
	ContentType string

	// Optional function to be executed when stream metadata changes
	MetadataCallbackFunc MetadataCallbackFunc

	// Amount of bytes to read before expecting a metadata block, 0 when the server sends none
	metaint int

	// Stream metadata
	metadata *Metadata

	// The number of bytes read since last metadata block
	pos int

	// The underlying data stream
	rc io.ReadCloser
}

// Open fetches url through f and wraps the final response.
func Open(ctx context.Context, f *Fetcher, url string) (*Stream, *Response, error) {
	slog.Info("opening stream", "url", url)

	resp, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if resp.Hops() > 0 {
		slog.Info("followed redirects", "chain", resp.Chain)
	}

	s, err := NewStream(resp.Response)
	if err != nil {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	return s, resp, nil
}

// NewStream wraps a media response, reading the ICY headers it carries.
func NewStream(resp *http.Response) (*Stream, error) {
	for k, v := range resp.Header {
		slog.Debug("http header", "key", k, "value", v[0])
	}

	var bitrate int
	if rawBitrate := resp.Header.Get("icy-br"); rawBitrate != "" {
		// Some servers send "128,128".
		if i := strings.IndexByte(rawBitrate, ','); i >= 0 {
			rawBitrate = rawBitrate[:i]
		}
		b, err := strconv.Atoi(rawBitrate)
		if err != nil {
			return nil, fmt.Errorf("cannot parse bitrate: %v", err)
		}
		bitrate = b
	}

	var metaint int
	if rawMetaint := resp.Header.Get("icy-metaint"); rawMetaint != "" {
		m, err := strconv.Atoi(rawMetaint)
		if err != nil || m < 0 {
			return nil, fmt.Errorf("cannot parse metaint: %q", rawMetaint)
		}
		metaint = m
	}

	return &Stream{
		Name:        resp.Header.Get("icy-name"),
		Genre:       resp.Header.Get("icy-genre"),
		Description: resp.Header.Get("icy-description"),
		URL:         resp.Header.Get("icy-url"),
		ContentType: resp.Header.Get("Content-Type"),
		Bitrate:     bitrate,
		metaint:     metaint,
		rc:          resp.Body,
	}, nil
}

// Read implements the standard Read interface. Metadata blocks are consumed and never
// returned, so only audio bytes reach buf.
func (s *Stream) Read(buf []byte) (int, error) {
	if s.metaint == 0 {
		return s.rc.Read(buf)
	}

	if s.pos == s.metaint {
		if err := s.readMetadata(); err != nil {
			return 0, err
		}
		s.pos = 0
	}

	if remaining := s.metaint - s.pos; len(buf) > remaining {
		buf = buf[:remaining]
	}

	n, err := s.rc.Read(buf)
	s.pos += n
	return n, err
}

// readMetadata reads one length-prefixed metadata block and reports changes.
func (s *Stream) readMetadata() error {
	var metaLenByte [1]byte
	if _, err := io.ReadFull(s.rc, metaLenByte[:]); err != nil {
		return err
	}

	metaBlockLen := int(metaLenByte[0]) * 16
	if metaBlockLen == 0 {
		return nil
	}

	metaBuf := make([]byte, metaBlockLen)
	if _, err := io.ReadFull(s.rc, metaBuf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}

	if m := NewMetadata(metaBuf); !m.Equals(s.metadata) {
		s.metadata = m
		if s.MetadataCallbackFunc != nil {
			s.MetadataCallbackFunc(s.metadata)
		}
	}

	return nil
}

// Metadata returns the most recent metadata block, nil before the first one.
func (s *Stream) Metadata() *Metadata {
	return s.metadata
}

// Close closes the stream
func (s *Stream) Close() error {
	slog.Debug("closing stream", "name", s.Name)
	return s.rc.Close()
}
