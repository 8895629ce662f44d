// Package station resolves a station name or directory ID into the address of its stream.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zachfi/radiogo/pkg/shoutcast"
)

var (
	// ErrNotFound is returned when no playable station matches the identifier.
	ErrNotFound = errors.New("station not found")

	// ErrLookupFailed is returned when the directory service cannot be reached or answers with an error.
	ErrLookupFailed = errors.New("station lookup failed")
)

// ContentTypeAudio is the search result type of a playable station.
const ContentTypeAudio = "audio"

// Candidate describes one stream of a station.
type Candidate struct {
	// MediaURL is the stream or playlist address.
	MediaURL string

	// PlaylistKind tells whether MediaURL needs a playlist extraction hop.
	PlaylistKind shoutcast.PlaylistKind

	// MediaType is the codec announced by the directory, e.g. mp3.
	MediaType string
}

// SearchResult is one entry of a directory text search.
type SearchResult struct {
	// Type is the content type of the entry, "audio" for stations. Empty when absent.
	Type string

	// GuideID references the entry in the directory. Empty when absent.
	GuideID string

	// Text is the display name.
	Text string
}

// Directory is the station directory service.
type Directory interface {
	// GetStation looks up the streams of a station by directory ID.
	GetStation(ctx context.Context, id string) ([]Candidate, error)

	// Search runs a text search.
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Resolver turns an identifier into a Candidate.
type Resolver struct {
	dir    Directory
	logger *slog.Logger
}

// NewResolver returns a Resolver backed by dir.
func NewResolver(dir Directory, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve looks identifier up as a directory ID first, falling back to a text search whose first
// result is looked up again by its ID. The first candidate of the lookup that succeeds is returned.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Candidate, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Candidate{}, fmt.Errorf("%w: empty identifier", ErrNotFound)
	}

	candidates, err := r.dir.GetStation(ctx, identifier)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: get station %q: %w", ErrLookupFailed, identifier, err)
	}

	if len(candidates) == 0 {
		r.logger.Debug("no station with this id, searching", "identifier", identifier)
		candidates, err = r.search(ctx, identifier)
		if err != nil {
			return Candidate{}, err
		}
	}

	c := candidates[0]
	if c.MediaURL == "" {
		return Candidate{}, fmt.Errorf("%w: %q has no stream URL", ErrNotFound, identifier)
	}

	r.logger.Debug("resolved station", "identifier", identifier, "url", c.MediaURL, "playlist", c.PlaylistKind, "media_type", c.MediaType)
	return c, nil
}

// search returns the candidates of the first search result; never an empty slice without an error.
func (r *Resolver) search(ctx context.Context, query string) ([]Candidate, error) {
	results, err := r.dir.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", ErrLookupFailed, query, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no results for %q", ErrNotFound, query)
	}

	first := results[0]
	if first.Type != ContentTypeAudio {
		return nil, fmt.Errorf("%w: first result for %q is %q, not a station", ErrNotFound, query, first.Type)
	}
	if first.GuideID == "" {
		return nil, fmt.Errorf("%w: first result for %q has no directory id", ErrNotFound, query)
	}

	r.logger.Info("found station", "query", query, "name", first.Text, "id", first.GuideID)

	candidates, err := r.dir.GetStation(ctx, first.GuideID)
	if err != nil {
		return nil, fmt.Errorf("%w: get station %q: %w", ErrLookupFailed, first.GuideID, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no streams for %q", ErrNotFound, first.GuideID)
	}

	return candidates, nil
}
