package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eleven-am/mediaworker/internal/domain"
)

const namespace = "mediaworker"

// Collectors holds the worker's counters, registered on one registry.
type Collectors struct {
	StreamsDeclared   *prometheus.CounterVec
	StreamsSkipped    prometheus.Counter
	FramesProcessed   *prometheus.CounterVec
	FramePayloadBytes *prometheus.CounterVec
	SubtitleDocuments *prometheus.CounterVec
	SubtitleCues      prometheus.Counter
}

func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		StreamsDeclared: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_declared_total",
			Help:      "Streams declared for processing at init-process, by kind",
		}, []string{"kind"}),
		StreamsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_skipped_total",
			Help:      "Streams of unknown kind left out at init-process",
		}),
		FramesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames handled by process-frame, by kind and status",
		}, []string{"kind", "status"}),
		FramePayloadBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_payload_bytes_total",
			Help:      "Sum of frame plane sizes, by kind",
		}, []string{"kind"}),
		SubtitleDocuments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtitle_documents_total",
			Help:      "Subtitle documents handled by process-subtitle, by status",
		}, []string{"status"}),
		SubtitleCues: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtitle_cues_total",
			Help:      "Cues emitted from subtitle documents",
		}),
	}
}

func (c *Collectors) ObserveStreams(descriptors []domain.StreamDescriptor, skipped int) {
	for _, d := range descriptors {
		c.StreamsDeclared.WithLabelValues(string(d.Kind)).Inc()
	}
	c.StreamsSkipped.Add(float64(skipped))
}

func (c *Collectors) ObserveFrame(res domain.FrameResult) {
	kind := string(res.Kind)
	if kind == "" {
		kind = "invalid"
	}
	c.FramesProcessed.WithLabelValues(kind, string(res.Status)).Inc()
	if res.Status == domain.StatusSuccess {
		c.FramePayloadBytes.WithLabelValues(kind).Add(float64(res.PayloadSize))
	}
}

func (c *Collectors) ObserveSubtitle(res domain.SubtitleResult) {
	c.SubtitleDocuments.WithLabelValues(string(res.Status)).Inc()
	c.SubtitleCues.Add(float64(len(res.Cues)))
}
