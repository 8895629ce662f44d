package shoutcast

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// chainServer serves /a -> /b -> /c -> /d where each step answers with a Location header.
func chainServer(record func(string)) *httptest.Server {
	next := map[string]string{"/a": "/b", "/b": "/c", "/c": "/d"}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		record(r.URL.Path)
		if loc, ok := next[r.URL.Path]; ok {
			w.Header().Set("Location", loc)
			w.WriteHeader(http.StatusFound)
			_, _ = io.WriteString(w, "redirect "+r.URL.Path)
			return
		}
		_, _ = io.WriteString(w, "body "+r.URL.Path)
	}))
}

func TestFetch(t *testing.T) {
	Convey("Given a redirect chain a -> b -> c -> d", t, func() {
		var mu sync.Mutex
		var visited []string
		srv := chainServer(func(p string) {
			mu.Lock()
			defer mu.Unlock()
			visited = append(visited, p)
		})
		defer srv.Close()

		ctx := context.Background()

		Convey("The default fetcher stops after two hops and returns c's response", func() {
			f := NewFetcher(srv.Client(), DefaultMaxRedirects)
			resp, err := f.Fetch(ctx, srv.URL+"/a")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.Request.URL.Path, ShouldEqual, "/c")
			So(resp.Hops(), ShouldEqual, 2)
			So(resp.Chain, ShouldResemble, []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"})
			So(visited, ShouldResemble, []string{"/a", "/b", "/c"})

			body, _ := io.ReadAll(resp.Body)
			So(string(body), ShouldEqual, "redirect /c")
		})

		Convey("A larger cap reaches the end of the chain", func() {
			f := NewFetcher(srv.Client(), 5)
			resp, err := f.Fetch(ctx, srv.URL+"/a")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.Request.URL.Path, ShouldEqual, "/d")
			So(resp.Hops(), ShouldEqual, 3)
		})

		Convey("A zero cap returns the first response", func() {
			f := NewFetcher(srv.Client(), 0)
			resp, err := f.Fetch(ctx, srv.URL+"/a")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.Request.URL.Path, ShouldEqual, "/a")
			So(resp.Hops(), ShouldEqual, 0)
		})

		Convey("A URL without Location is final", func() {
			f := NewFetcher(srv.Client(), DefaultMaxRedirects)
			resp, err := f.Fetch(ctx, srv.URL+"/d")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.Hops(), ShouldEqual, 0)
			So(visited, ShouldResemble, []string{"/d"})
		})
	})

	Convey("Given a media server", t, func() {
		var headers http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers = r.Header.Clone()
			if r.URL.Path == "/missing" {
				http.NotFound(w, r)
				return
			}
			_, _ = io.WriteString(w, "audio")
		}))
		defer srv.Close()

		f := NewFetcher(srv.Client(), DefaultMaxRedirects)

		Convey("ICY metadata is requested", func() {
			resp, err := f.Fetch(context.Background(), srv.URL+"/live")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(headers.Get("icy-metadata"), ShouldEqual, "1")
			So(headers.Get("user-agent"), ShouldEqual, DefaultUserAgent)
		})

		Convey("An error status fails with ErrFetchFailed", func() {
			_, err := f.Fetch(context.Background(), srv.URL+"/missing")
			So(errors.Is(err, ErrFetchFailed), ShouldBeTrue)
		})

		Convey("An empty URL fails with ErrFetchFailed", func() {
			_, err := f.Fetch(context.Background(), "")
			So(errors.Is(err, ErrFetchFailed), ShouldBeTrue)
		})

		Convey("A refused connection fails with ErrFetchFailed", func() {
			_, err := NewFetcher(nil, DefaultMaxRedirects).Fetch(context.Background(), "http://127.0.0.1:1/live")
			So(errors.Is(err, ErrFetchFailed), ShouldBeTrue)
		})
	})
}
