package shoutcast

import (
	"net/http"
)

// DefaultUserAgent is sent to stream and playlist servers; some of them only answer known players.
const DefaultUserAgent = "iTunes/12.9.2 (Macintosh; OS X 10.14.3) AppleWebKit/606.4.5"

// streamTransport keeps the default transport's dial and idle behaviour and adds no deadline of
// its own, so a stream can be read indefinitely. Audio is never compressed in transit.
func streamTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DisableCompression = true
	return t
}

func playlistTransport() *http.Transport {
	t := streamTransport()
	t.DisableCompression = false
	return t
}

// newClient returns a client that hands redirect responses back to the caller.
func newClient(t http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: t,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
