package shoutcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrFetchFailed is returned when the media request cannot be completed.
var ErrFetchFailed = errors.New("stream fetch failed")

// DefaultMaxRedirects is the number of Location hops followed before the response is returned as-is.
const DefaultMaxRedirects = 2

// Response is the final response of a fetch together with the URLs visited to reach it.
type Response struct {
	*http.Response

	// Chain starts with the requested URL and ends with the URL that produced Response.
	Chain []string
}

// Hops returns the number of redirects followed.
func (r *Response) Hops() int {
	return len(r.Chain) - 1
}

// Fetcher issues the media GET and follows Location headers up to MaxRedirects hops.
type Fetcher struct {
	MaxRedirects int
	UserAgent    string

	client *http.Client
}

// NewFetcher returns a Fetcher. A nil client gets the streaming transport.
// The client's own redirect handling is replaced so each hop is visible to the Fetcher.
func NewFetcher(client *http.Client, maxRedirects int) *Fetcher {
	if client == nil {
		client = newClient(streamTransport())
	} else {
		c := *client
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &c
	}
	if maxRedirects < 0 {
		maxRedirects = DefaultMaxRedirects
	}

	return &Fetcher{
		MaxRedirects: maxRedirects,
		UserAgent:    DefaultUserAgent,
		client:       client,
	}
}

// Fetch requests rawURL. A response carrying a Location header is replaced by the response for
// that location until MaxRedirects hops have been made; the response at the cap is returned
// even if it redirects again. The caller owns the returned body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	chain := []string{rawURL}

	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	for hops := 0; hops < f.MaxRedirects; hops++ {
		location := resp.Header.Get("Location")
		if location == "" {
			break
		}

		next, err := resp.Request.URL.Parse(location)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: invalid location %q: %w", ErrFetchFailed, location, err)
		}

		chain = append(chain, next.String())
		resp, err = f.get(ctx, next.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: unexpected status: %d", ErrFetchFailed, chain[len(chain)-1], resp.StatusCode)
	}

	return &Response{Response: resp, Chain: chain}, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("accept", "*/*")
	req.Header.Add("user-agent", f.UserAgent)
	req.Header.Add("icy-metadata", "1")

	return f.client.Do(req)
}
