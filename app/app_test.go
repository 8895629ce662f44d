package app

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zachfi/radiogo/pkg/audio"
	"github.com/zachfi/radiogo/pkg/audio/audiotest"
	"github.com/zachfi/radiogo/pkg/station"
)

type staticDirectory map[string][]station.Candidate

func (d staticDirectory) GetStation(_ context.Context, id string) ([]station.Candidate, error) {
	return d[id], nil
}

func (d staticDirectory) Search(context.Context, string) ([]station.SearchResult, error) {
	return nil, nil
}

func defaultConfig() Config {
	var cfg Config
	cfg.RegisterFlagsAndApplyDefaults("", flag.NewFlagSet("test", flag.PanicOnError))
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfig(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := defaultConfig()

		So(cfg.Target, ShouldEqual, Player)
		So(cfg.Player.MaxRedirects, ShouldEqual, 2)
		So(cfg.Player.MaxResyncs, ShouldEqual, audio.DefaultMaxResyncs)
		So(cfg.Player.MeterWidth, ShouldEqual, 20)
		So(cfg.Player.RecordDir, ShouldBeEmpty)

		level, err := cfg.Level()
		So(err, ShouldBeNil)
		So(level, ShouldEqual, slog.LevelInfo)
	})

	Convey("Given a config file", t, func() {
		file := filepath.Join(t.TempDir(), "radiogo.yaml")
		So(os.WriteFile(file, []byte("target: all\nlog_level: debug\nplayer:\n  max-redirects: 5\n  record-dir: /tmp/rec\n"), 0o644), ShouldBeNil)

		cfg := defaultConfig()
		So(cfg.LoadFile(file), ShouldBeNil)
		So(cfg.Target, ShouldEqual, All)
		So(cfg.Player.MaxRedirects, ShouldEqual, 5)
		So(cfg.Player.RecordDir, ShouldEqual, "/tmp/rec")
		So(cfg.Player.MaxResyncs, ShouldEqual, audio.DefaultMaxResyncs)
		So(cfg.Server.HTTPListenPort, ShouldEqual, 3030)

		level, err := cfg.Level()
		So(err, ShouldBeNil)
		So(level, ShouldEqual, slog.LevelDebug)
	})

	Convey("Unknown keys are rejected", t, func() {
		file := filepath.Join(t.TempDir(), "radiogo.yaml")
		So(os.WriteFile(file, []byte("player:\n  no-such-option: 1\n"), 0o644), ShouldBeNil)

		cfg := defaultConfig()
		So(cfg.LoadFile(file), ShouldNotBeNil)
	})

	Convey("A missing file is an error", t, func() {
		cfg := defaultConfig()
		So(cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")), ShouldNotBeNil)
	})

	Convey("A bad log level is reported", t, func() {
		cfg := Config{LogLevel: "loud"}
		_, err := cfg.Level()
		So(err, ShouldNotBeNil)
	})
}

func TestRun(t *testing.T) {
	Convey("Given an unknown station", t, func() {
		cfg := defaultConfig()
		cfg.Player.Station = "nonexistent-xyz"

		var out bytes.Buffer
		a, err := New(cfg, discardLogger(),
			WithOutput(&out),
			WithDirectory(staticDirectory{}),
			WithDevice(audiotest.NewDevice()),
		)
		So(err, ShouldBeNil)

		err = a.Run()

		So(errors.Is(err, station.ErrNotFound), ShouldBeTrue)
		So(out.Len(), ShouldEqual, 0)
	})

	Convey("Given a station that plays to the end", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write(audiotest.SilentFrames(20))
		}))
		defer srv.Close()

		cfg := defaultConfig()
		cfg.Player.Station = "s1"

		var out bytes.Buffer
		device := audiotest.NewDevice()
		a, err := New(cfg, discardLogger(),
			WithOutput(&out),
			WithDirectory(staticDirectory{"s1": {{MediaURL: srv.URL + "/live"}}}),
			WithDevice(device),
		)
		So(err, ShouldBeNil)

		err = a.Run()

		So(errors.Is(err, audio.ErrStreamEnded), ShouldBeTrue)
		So(strings.SplitN(out.String(), "\n", 2)[0], ShouldEqual, srv.URL+"/live")
		So(device.Samples(), ShouldBeGreaterThan, 0)
	})
}
