package player

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "radiogo"

var (
	metricOutputLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "output_level",
		Help:      "RMS level of the most recent block handed to the output device, 0 to 1.",
	})

	metricStreamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "stream_bytes_total",
		Help:      "Audio bytes read from the media stream.",
	})

	metricSkippedFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "decoder_skipped_frames",
		Help:      "Corrupt frames skipped by the decoder in this session.",
	})

	metricRedirectHops = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "redirect_hops",
		Help:      "Redirects followed by the media request.",
	})

	metricRecorderDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "recorder_dropped_chunks_total",
		Help:      "Stream chunks the recorder could not keep up with.",
	})

	metricNowPlaying = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "title_changes_total",
		Help:      "Now playing title changes announced by the stream.",
	}, []string{"station"})
)
