package shoutcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParsePlaylistKind(t *testing.T) {
	Convey("ParsePlaylistKind", t, func() {
		So(ParsePlaylistKind(""), ShouldEqual, KindNone)
		So(ParsePlaylistKind("  "), ShouldEqual, KindNone)
		So(ParsePlaylistKind("pls"), ShouldEqual, KindPLS)
		So(ParsePlaylistKind("M3U"), ShouldEqual, KindM3U)
		So(ParsePlaylistKind("m3u8"), ShouldEqual, KindM3U)
		So(ParsePlaylistKind("asx"), ShouldEqual, KindAuto)
		So(KindPLS.String(), ShouldEqual, "pls")
	})
}

func TestParsePLS(t *testing.T) {
	Convey("Given a PLS body", t, func() {
		body := "[playlist]\nNumberOfEntries=2\nFile1=\nFile2= http://ice.example/live \nTitle2=Live\n"

		Convey("The first non-empty File entry is returned", func() {
			url, err := parsePLS(strings.NewReader(body))
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "http://ice.example/live")
		})

		Convey("A body without entries fails", func() {
			_, err := parsePLS(strings.NewReader("[playlist]\nNumberOfEntries=0\n"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseM3U(t *testing.T) {
	Convey("Given an M3U body", t, func() {
		Convey("Comments and blank lines are skipped", func() {
			url, err := parseM3U(strings.NewReader("#EXTM3U\n\n#EXTINF:-1,Live\r\nhttps://ice.example/live.mp3\r\n"))
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "https://ice.example/live.mp3")
		})

		Convey("Relative entries are not usable", func() {
			_, err := parseM3U(strings.NewReader("#EXTM3U\nlive.mp3\n"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("Given an Extractor", t, func() {
		ctx := context.Background()
		var hits atomic.Int32

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()

		mux.HandleFunc("/station.pls", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "audio/x-scpls")
			fmt.Fprintf(w, "[playlist]\nFile1=%s/live.mp3\n", srv.URL)
		})
		mux.HandleFunc("/station.m3u", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprintf(w, "#EXTM3U\n%s/live.mp3\n", srv.URL)
		})
		mux.HandleFunc("/nested.m3u", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprintf(w, "%s/station.pls\n", srv.URL)
		})
		mux.HandleFunc("/loop.pls", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprintf(w, "[playlist]\nFile1=%s/loop.pls\n", srv.URL)
		})
		mux.HandleFunc("/empty.pls", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "[playlist]\nNumberOfEntries=0\n")
		})
		mux.HandleFunc("/live.mp3", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Header().Set("icy-metaint", "16000")
			_, _ = w.Write([]byte{0xFF, 0xFB})
		})
		mux.HandleFunc("/tune", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "%s/live.mp3\n", srv.URL)
		})
		mux.HandleFunc("/gone.pls", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		})

		e := NewExtractor(srv.Client(), DefaultUserAgent)

		Convey("KindNone returns the URL unchanged without a request", func() {
			url, err := e.Extract(ctx, "http://stream.example/live.mp3", KindNone)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, "http://stream.example/live.mp3")
			So(hits.Load(), ShouldEqual, 0)
		})

		Convey("A PLS playlist is resolved", func() {
			url, err := e.Extract(ctx, srv.URL+"/station.pls", KindPLS)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, srv.URL+"/live.mp3")
		})

		Convey("An M3U playlist is resolved", func() {
			url, err := e.Extract(ctx, srv.URL+"/station.m3u", KindM3U)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, srv.URL+"/live.mp3")
		})

		Convey("A playlist pointing at a playlist takes one more hop", func() {
			url, err := e.Extract(ctx, srv.URL+"/nested.m3u", KindM3U)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, srv.URL+"/live.mp3")
			So(hits.Load(), ShouldEqual, 2)
		})

		Convey("Playlist hops are bounded", func() {
			url, err := e.Extract(ctx, srv.URL+"/loop.pls", KindPLS)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, srv.URL+"/loop.pls")
			So(hits.Load(), ShouldEqual, maxPlaylistDepth)
		})

		Convey("An auto kind pointing at a live stream keeps the URL", func() {
			url, err := e.Extract(ctx, srv.URL+"/live.mp3", KindAuto)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, srv.URL+"/live.mp3")
		})

		Convey("An auto kind sniffs a bare URL body as M3U", func() {
			url, err := e.Extract(ctx, srv.URL+"/tune", KindAuto)
			So(err, ShouldBeNil)
			So(url, ShouldEqual, srv.URL+"/live.mp3")
		})

		Convey("An empty playlist fails with ErrExtractionFailed", func() {
			_, err := e.Extract(ctx, srv.URL+"/empty.pls", KindPLS)
			So(errors.Is(err, ErrExtractionFailed), ShouldBeTrue)
		})

		Convey("A missing playlist fails with ErrExtractionFailed", func() {
			_, err := e.Extract(ctx, srv.URL+"/gone.pls", KindPLS)
			So(errors.Is(err, ErrExtractionFailed), ShouldBeTrue)
		})

		Convey("An unreachable playlist fails with ErrExtractionFailed", func() {
			_, err := e.Extract(ctx, "http://127.0.0.1:1/station.pls", KindPLS)
			So(errors.Is(err, ErrExtractionFailed), ShouldBeTrue)
		})
	})
}
