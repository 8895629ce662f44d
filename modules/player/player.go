package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/grafana/dskit/services"
	"github.com/zachfi/zkit/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zachfi/radiogo/pkg/audio"
	"github.com/zachfi/radiogo/pkg/meter"
	"github.com/zachfi/radiogo/pkg/shoutcast"
	"github.com/zachfi/radiogo/pkg/station"
	"github.com/zachfi/radiogo/pkg/tunein"
)

var module = "player"

// ErrNoStation is returned when the player is started without a station to play.
var ErrNoStation = errors.New("no station given")

// Player plays one station for the lifetime of the service. Starting resolves the station and
// opens the decoded stream; running plays it while drawing the level meter.
type Player struct {
	services.Service
	cfg    *Config
	logger *slog.Logger
	tracer trace.Tracer
	out    io.Writer

	resolver  *station.Resolver
	extractor *shoutcast.Extractor
	fetcher   *shoutcast.Fetcher
	device    audio.Device
	monitor   *Monitor

	streamURL string
	stream    *shoutcast.Stream
	decoder   *audio.Decoder
	recorder  *Recorder
}

// New creates a Player. A nil dir uses the TuneIn directory, a nil device the system speaker.
// The stream URL and the level meter are written to out.
func New(cfg Config, logger *slog.Logger, dir station.Directory, device audio.Device, out io.Writer) (*Player, error) {
	if out == nil {
		return nil, errors.New("player output is required")
	}
	if dir == nil {
		dir = tunein.New(cfg.DirectoryURL, cfg.DirectoryFormats, cfg.UserAgent, nil)
	}
	if device == nil {
		device = &audio.Speaker{Buffer: cfg.SpeakerBuffer}
	}

	logger = logger.With("module", module)

	fetcher := shoutcast.NewFetcher(nil, cfg.MaxRedirects)
	if cfg.UserAgent != "" {
		fetcher.UserAgent = cfg.UserAgent
	}

	p := &Player{
		cfg:       &cfg,
		logger:    logger,
		tracer:    otel.Tracer(module),
		out:       out,
		resolver:  station.NewResolver(dir, logger),
		extractor: shoutcast.NewExtractor(nil, cfg.UserAgent),
		fetcher:   fetcher,
		device:    device,
		monitor:   NewMonitor(device, meter.New(out, cfg.MeterWidth), cfg.MeterInterval, cfg.Volume, logger),
	}

	p.Service = services.NewBasicService(p.starting, p.running, p.stopping)

	return p, nil
}

// StreamURL is the stream URL being played, empty until the player has started.
func (p *Player) StreamURL() string {
	return p.streamURL
}

func (p *Player) starting(ctx context.Context) (err error) {
	ctx, span := p.tracer.Start(ctx, "starting", trace.WithAttributes(attribute.String("station", p.cfg.Station)))
	defer func() {
		if err != nil {
			p.close()
		}
		_ = tracing.ErrHandler(span, err, "failed to start playback", p.logger)
	}()

	if p.cfg.Station == "" {
		return ErrNoStation
	}

	candidate, err := p.resolve(ctx)
	if err != nil {
		return err
	}

	streamURL, err := p.extract(ctx, candidate)
	if err != nil {
		return err
	}
	p.streamURL = streamURL

	// The stream URL is always the first line of output.
	if _, err := fmt.Fprintln(p.out, streamURL); err != nil {
		return err
	}

	return p.open(ctx, streamURL)
}

func (p *Player) resolve(ctx context.Context) (station.Candidate, error) {
	ctx, span := p.tracer.Start(ctx, "resolve")
	candidate, err := p.resolver.Resolve(ctx, p.cfg.Station)
	if err == nil {
		span.SetAttributes(
			attribute.String("media_url", candidate.MediaURL),
			attribute.String("playlist_kind", candidate.PlaylistKind.String()),
		)
	}
	return candidate, tracing.ErrHandler(span, err, "failed to resolve station", nil)
}

func (p *Player) extract(ctx context.Context, candidate station.Candidate) (string, error) {
	ctx, span := p.tracer.Start(ctx, "extract")
	streamURL, err := p.extractor.Extract(ctx, candidate.MediaURL, candidate.PlaylistKind)
	return streamURL, tracing.ErrHandler(span, err, "failed to extract stream url", nil)
}

// open fetches the stream and builds the decoder over it, teeing the bytes to the recorder.
func (p *Player) open(ctx context.Context, streamURL string) error {
	ctx, span := p.tracer.Start(ctx, "open")

	stream, resp, err := shoutcast.Open(ctx, p.fetcher, streamURL)
	if err != nil {
		return tracing.ErrHandler(span, err, "failed to open stream", nil)
	}
	p.stream = stream
	metricRedirectHops.Set(float64(resp.Hops()))
	span.SetAttributes(
		attribute.StringSlice("redirect_chain", resp.Chain),
		attribute.String("content_type", stream.ContentType),
	)

	p.logger.Info("tuned in", "name", stream.Name, "genre", stream.Genre, "bitrate", stream.Bitrate)
	stream.MetadataCallbackFunc = p.onMetadata

	var src io.Reader = stream
	if p.cfg.RecordDir != "" {
		p.recorder = NewRecorder(p.cfg.RecordDir, stream.Name, p.cfg.WriteBufferSize, p.logger)
		src = io.TeeReader(stream, p.recorder)
	}

	dec, err := audio.Decode(&countingReader{Reader: src, Closer: stream}, audio.DecoderOptions{
		MaxResyncs: p.cfg.MaxResyncs,
		Logger:     p.logger,
	})
	if err != nil {
		p.stream = nil
		return tracing.ErrHandler(span, err, "failed to decode stream", nil)
	}
	p.decoder = dec

	format := dec.Format()
	span.SetAttributes(
		attribute.Int("sample_rate", int(format.SampleRate)),
		attribute.Int("channels", format.NumChannels),
	)

	return tracing.ErrHandler(span, nil, "", nil)
}

func (p *Player) onMetadata(m *shoutcast.Metadata) {
	p.logger.Info("now listening to", "title", m.StreamTitle)
	metricNowPlaying.WithLabelValues(p.stream.Name).Inc()

	if p.recorder != nil {
		p.recorder.OnMetadata(m)
	}
}

func (p *Player) running(ctx context.Context) error {
	err := p.monitor.Run(ctx, p.decoder)
	if err != nil {
		p.logger.Error("playback stopped", "err", err, "skipped_frames", p.decoder.Skipped())
	}
	return err
}

func (p *Player) stopping(_ error) error {
	p.logger.Info("stopping")
	return p.close()
}

// close releases the stream before the device so a device blocked on a read is released.
func (p *Player) close() error {
	var errs []error

	if p.decoder != nil {
		if err := p.decoder.Close(); err != nil {
			errs = append(errs, err)
		}
	} else if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if p.recorder != nil {
		if err := p.recorder.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := p.device.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

type countingReader struct {
	io.Reader
	io.Closer
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.Reader.Read(b)
	metricStreamBytes.Add(float64(n))
	return n, err
}
