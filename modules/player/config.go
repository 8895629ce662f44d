package player

import (
	"flag"
	"time"

	"github.com/zachfi/zkit/pkg/util"

	"github.com/zachfi/radiogo/pkg/audio"
	"github.com/zachfi/radiogo/pkg/meter"
	"github.com/zachfi/radiogo/pkg/shoutcast"
	"github.com/zachfi/radiogo/pkg/tunein"
)

// Recording write sizing (record-write-buffer-size):
// - fewer, larger writes are kinder to SSDs and NFS; 256KiB-1MiB is a good range.
// - clamped to 4MiB to bound memory.
const (
	defaultMeterInterval   = 10 * time.Millisecond
	defaultWriteBufferSize = 256 * 1024 // 256 KiB
	defaultVolume          = 100
)

type Config struct {
	// Station is the name or directory id to play. Set from the command line argument.
	Station string `yaml:"station,omitempty"`

	DirectoryURL     string        `yaml:"directory-url,omitempty"`
	DirectoryFormats string        `yaml:"directory-formats,omitempty"`
	UserAgent        string        `yaml:"user-agent,omitempty"`
	MaxRedirects     int           `yaml:"max-redirects,omitempty"`
	MaxResyncs       int           `yaml:"max-resyncs,omitempty"`
	MeterInterval    time.Duration `yaml:"meter-interval,omitempty"`
	MeterWidth       int           `yaml:"meter-width,omitempty"`
	Volume           int           `yaml:"volume,omitempty"`
	SpeakerBuffer    time.Duration `yaml:"speaker-buffer,omitempty"`
	RecordDir        string        `yaml:"record-dir,omitempty"`
	WriteBufferSize  int           `yaml:"record-write-buffer-size,omitempty"` // bytes to buffer before writing a recording
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Station, util.PrefixConfig(prefix, "station"), "", "The station name or directory id to play")
	f.StringVar(&cfg.DirectoryURL, util.PrefixConfig(prefix, "directory-url"), tunein.DefaultBaseURL, "Base URL of the station directory")
	f.StringVar(&cfg.DirectoryFormats, util.PrefixConfig(prefix, "directory-formats"), tunein.DefaultFormats, "Comma separated stream formats to request from the directory")
	f.StringVar(&cfg.UserAgent, util.PrefixConfig(prefix, "user-agent"), shoutcast.DefaultUserAgent, "User agent sent to the directory and stream servers")
	f.IntVar(&cfg.MaxRedirects, util.PrefixConfig(prefix, "max-redirects"), shoutcast.DefaultMaxRedirects, "Maximum number of redirects followed for the media request")
	f.IntVar(&cfg.MaxResyncs, util.PrefixConfig(prefix, "max-resyncs"), audio.DefaultMaxResyncs, "Consecutive corrupt frames tolerated before playback fails")
	f.DurationVar(&cfg.MeterInterval, util.PrefixConfig(prefix, "meter-interval"), defaultMeterInterval, "How often the level meter is redrawn")
	f.IntVar(&cfg.MeterWidth, util.PrefixConfig(prefix, "meter-width"), meter.DefaultWidth, "Width of the level meter in cells")
	f.IntVar(&cfg.Volume, util.PrefixConfig(prefix, "volume"), defaultVolume, "Playback volume in percent")
	f.DurationVar(&cfg.SpeakerBuffer, util.PrefixConfig(prefix, "speaker-buffer"), audio.DefaultSpeakerBuffer, "Audio buffered ahead by the output device")
	f.StringVar(&cfg.RecordDir, util.PrefixConfig(prefix, "record-dir"), "", "Record the stream into this directory, one file per title. Disabled when empty.")
	f.IntVar(&cfg.WriteBufferSize, util.PrefixConfig(prefix, "record-write-buffer-size"), defaultWriteBufferSize,
		"Bytes to buffer in memory before writing a recording to disk. Reasonable range: 256KiB-1MiB.")
}
