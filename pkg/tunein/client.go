// Package tunein is a station.Directory backed by the TuneIn OPML API.
package tunein

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zachfi/radiogo/pkg/shoutcast"
	"github.com/zachfi/radiogo/pkg/station"
)

const (
	// DefaultBaseURL is the public OPML endpoint.
	DefaultBaseURL = "https://opml.radiotime.com"

	// DefaultFormats are the stream formats requested from Tune.ashx.
	DefaultFormats = "mp3"

	statusOK = "200"
)

type head struct {
	Status    string `json:"status"`
	Fault     string `json:"fault"`
	FaultCode string `json:"fault_code"`
}

type tuneResponse struct {
	Head head `json:"head"`
	Body []struct {
		Element      string `json:"element"`
		URL          string `json:"url"`
		MediaType    string `json:"media_type"`
		PlaylistType string `json:"playlist_type"`
		Bitrate      int    `json:"bitrate"`
		IsDirect     bool   `json:"is_direct"`
	} `json:"body"`
}

type searchResponse struct {
	Head head `json:"head"`
	Body []struct {
		Element string `json:"element"`
		Type    string `json:"type"`
		Text    string `json:"text"`
		GuideID string `json:"guide_id"`
		Item    string `json:"item"`
	} `json:"body"`
}

// Client queries the directory. It is safe for concurrent use.
type Client struct {
	baseURL   string
	formats   string
	userAgent string
	client    *http.Client
}

var _ station.Directory = (*Client)(nil)

// New returns a Client. Empty baseURL and formats use the defaults; a nil client gets a
// client with a one minute timeout.
func New(baseURL, formats, userAgent string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if formats == "" {
		formats = DefaultFormats
	}
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}

	return &Client{
		baseURL:   baseURL,
		formats:   formats,
		userAgent: userAgent,
		client:    client,
	}
}

// GetStation returns the streams of the station with the given guide ID. An ID the directory does
// not know yields an empty list.
func (c *Client) GetStation(ctx context.Context, id string) ([]station.Candidate, error) {
	q := url.Values{}
	q.Set("id", id)
	q.Set("render", "json")
	q.Set("formats", c.formats)

	var resp tuneResponse
	if err := c.get(ctx, "/Tune.ashx", q, &resp); err != nil {
		return nil, err
	}
	if resp.Head.Status != statusOK {
		return nil, nil
	}

	candidates := make([]station.Candidate, 0, len(resp.Body))
	for _, b := range resp.Body {
		if b.Element != "" && b.Element != "audio" {
			continue
		}
		candidates = append(candidates, station.Candidate{
			MediaURL:     b.URL,
			PlaylistKind: shoutcast.ParsePlaylistKind(b.PlaylistType),
			MediaType:    b.MediaType,
		})
	}

	return candidates, nil
}

// Search runs a text search and returns the results in directory order.
func (c *Client) Search(ctx context.Context, query string) ([]station.SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("render", "json")

	var resp searchResponse
	if err := c.get(ctx, "/Search.ashx", q, &resp); err != nil {
		return nil, err
	}
	if resp.Head.Status != statusOK {
		return nil, nil
	}

	results := make([]station.SearchResult, 0, len(resp.Body))
	for _, b := range resp.Body {
		results = append(results, station.SearchResult{
			Type:    b.Type,
			GuideID: b.GuideID,
			Text:    b.Text,
		})
	}

	return results, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// 4xx answers still carry a head with the fault, e.g. an invalid id.
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}
