package shoutcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrExtractionFailed is returned when a playlist cannot be fetched or holds no usable stream URL.
var ErrExtractionFailed = errors.New("playlist extraction failed")

// PlaylistKind is the declared format of an indirection file.
type PlaylistKind int

const (
	// KindNone means the URL already addresses the audio stream.
	KindNone PlaylistKind = iota
	KindM3U
	KindPLS
	// KindAuto means the declared kind is unknown and is detected from the response.
	KindAuto
)

func (k PlaylistKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindM3U:
		return "m3u"
	case KindPLS:
		return "pls"
	default:
		return "auto"
	}
}

// ParsePlaylistKind maps a directory's playlist type to a PlaylistKind.
func ParsePlaylistKind(s string) PlaylistKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return KindNone
	case "m3u", "m3u8":
		return KindM3U
	case "pls":
		return KindPLS
	default:
		return KindAuto
	}
}

const (
	maxPlaylistBytes = 1 << 20
	maxPlaylistDepth = 2
)

// parsePLS parses a PLS playlist file and returns the first stream URL
func parsePLS(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "File") || !strings.Contains(line, "=") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if url := strings.TrimSpace(parts[1]); url != "" {
			return url, nil
		}
	}

	return "", fmt.Errorf("no stream URL found in PLS playlist")
}

// parseM3U parses an M3U playlist file and returns the first stream URL
func parseM3U(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isHTTPURL(line) {
			return line, nil
		}
	}

	return "", fmt.Errorf("no stream URL found in M3U playlist")
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// kindFromURL guesses a playlist kind from the URL path suffix.
func kindFromURL(url string) PlaylistKind {
	path := strings.ToLower(url)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch {
	case strings.HasSuffix(path, ".pls"):
		return KindPLS
	case strings.HasSuffix(path, ".m3u"), strings.HasSuffix(path, ".m3u8"):
		return KindM3U
	default:
		return KindNone
	}
}

// Extractor turns a playlist URL into the audio stream URL it points at.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor returns an Extractor using client for playlist reads.
func NewExtractor(client *http.Client, userAgent string) *Extractor {
	if client == nil {
		client = newClient(playlistTransport())
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Extractor{client: client, userAgent: userAgent}
}

// Extract returns the stream URL for url. KindNone returns url unchanged without any network read.
func (e *Extractor) Extract(ctx context.Context, url string, kind PlaylistKind) (string, error) {
	for depth := 0; ; depth++ {
		if kind == KindNone {
			return url, nil
		}

		streamURL, err := e.extractOnce(ctx, url, kind)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrExtractionFailed, url, err)
		}

		next := kindFromURL(streamURL)
		if next == KindNone || depth+1 >= maxPlaylistDepth {
			return streamURL, nil
		}
		url, kind = streamURL, next
	}
}

func (e *Extractor) extractOnce(ctx context.Context, url string, kind PlaylistKind) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("accept", "*/*")
	if e.userAgent != "" {
		req.Header.Add("user-agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if kind == KindAuto {
		// A live stream answering the playlist URL is its own stream URL.
		if resp.Header.Get("icy-metaint") != "" || isStreamContentType(resp.Header.Get("Content-Type")) {
			return url, nil
		}
	}

	bodyData, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	content := string(bodyData)

	if kind == KindAuto {
		kind = detectKind(url, resp.Header.Get("Content-Type"), content)
	}

	switch kind {
	case KindPLS:
		streamURL, err := parsePLS(strings.NewReader(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse PLS playlist: %w", err)
		}
		return streamURL, nil
	case KindM3U:
		streamURL, err := parseM3U(strings.NewReader(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse M3U playlist: %w", err)
		}
		return streamURL, nil
	}

	return "", fmt.Errorf("URL does not appear to be a stream or playlist (Content-Type: %s)", resp.Header.Get("Content-Type"))
}

// detectKind checks if the body is a playlist file by content type, URL or content.
func detectKind(url, contentType, content string) PlaylistKind {
	isPLS := strings.Contains(contentType, "audio/x-scpls") ||
		strings.Contains(contentType, "application/pls+xml") ||
		kindFromURL(url) == KindPLS ||
		strings.Contains(content, "[playlist]") ||
		strings.Contains(content, "File1=")
	if isPLS {
		return KindPLS
	}

	isM3U := strings.Contains(contentType, "audio/mpegurl") ||
		strings.Contains(contentType, "audio/x-mpegurl") ||
		strings.Contains(contentType, "application/vnd.apple.mpegurl") ||
		kindFromURL(url) == KindM3U ||
		strings.Contains(content, "#EXTM3U") ||
		isHTTPURL(strings.TrimSpace(content))
	if isM3U {
		return KindM3U
	}

	return KindAuto
}

func isStreamContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	if !strings.HasPrefix(contentType, "audio/") {
		return false
	}
	return !strings.Contains(contentType, "mpegurl") && !strings.Contains(contentType, "scpls")
}
