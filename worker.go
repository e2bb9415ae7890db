// Package mediaworker is a media worker plugin for an external processing host.
//
// The host drives a job through four lifecycle calls:
//
//  1. InitProcess declares which streams to process and the filters the host
//     should apply to each of them before handing frames over.
//  2. ProcessFrame receives one decoded audio or video frame.
//  3. ProcessSubtitle receives one parsed EBU-TTML-Live document and resolves
//     its timing into cues.
//  4. EndingProcess signals the end of the job.
//
// The worker never decodes media or runs filters itself. It describes filters
// and inspects what the host hands over.
//
// # Basic Usage
//
//	w, err := mediaworker.NewWorker(mediaworker.Options{HWAccel: "auto"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	descriptors, err := w.InitProcess(ctx, jobID, inventory, params)
//	if err != nil {
//	    // the job must stop before any frame is dispatched
//	}
//
//	res := w.ProcessFrame(jobID, frame.StreamIndex, frame)
//	sub := w.ProcessSubtitle(jobID, 2, doc)
//	w.EndingProcess(jobID)
//
// # Concurrency
//
// Lifecycle calls are synchronous and safe to call from several goroutines.
// NewPool returns a dispatch pool that keeps per-stream order while running
// different streams in parallel.
package mediaworker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eleven-am/mediaworker/internal/config"
	"github.com/eleven-am/mediaworker/internal/dispatch"
	"github.com/eleven-am/mediaworker/internal/domain"
	"github.com/eleven-am/mediaworker/internal/events"
	"github.com/eleven-am/mediaworker/internal/ffmpeg"
	"github.com/eleven-am/mediaworker/internal/frame"
	"github.com/eleven-am/mediaworker/internal/hwaccel"
	"github.com/eleven-am/mediaworker/internal/logging"
	"github.com/eleven-am/mediaworker/internal/metrics"
	"github.com/eleven-am/mediaworker/internal/stream"
	"github.com/eleven-am/mediaworker/internal/subtitle"
)

type (
	// StreamInfo is one entry of the host's stream inventory.
	StreamInfo = domain.StreamInfo

	// StreamDescriptor declares a stream to process and the filters to apply to it.
	StreamDescriptor = domain.StreamDescriptor

	FilterDescriptor = domain.FilterDescriptor
	Frame            = domain.Frame
	FrameResult      = domain.FrameResult

	// Document is a parsed EBU-TTML-Live document.
	Document       = domain.Document
	Cue            = domain.Cue
	SubtitleResult = domain.SubtitleResult

	// ProgressReporter publishes job completion percentages.
	ProgressReporter = domain.ProgressReporter

	HWAccelConfig  = domain.HWAccelConfig
	FilterConfig   = ffmpeg.FilterConfig
	Region         = ffmpeg.Region
	Scaling        = ffmpeg.Scaling
	AudioFormat    = ffmpeg.AudioFormat
	SubtitleConfig = subtitle.Config
	Timebase       = subtitle.Timebase
	Loggers        = logging.Loggers
	Config         = config.Config

	Pool       = dispatch.Pool
	Task       = dispatch.Task
	TaskResult = dispatch.Result

	StreamsDeclaredEvent  = events.StreamsDeclaredEvent
	FrameProcessedEvent   = events.FrameProcessedEvent
	SubtitleResolvedEvent = events.SubtitleResolvedEvent
	ProcessEndedEvent     = events.ProcessEndedEvent
	JobProgressEvent      = events.JobProgressEvent
)

const (
	StreamVideo    = domain.StreamVideo
	StreamAudio    = domain.StreamAudio
	StreamSubtitle = domain.StreamSubtitle
	StreamData     = domain.StreamData
	StreamUnknown  = domain.StreamUnknown

	StatusSuccess = domain.StatusSuccess
	StatusError   = domain.StatusError
)

var (
	ErrInitialization  = domain.ErrInitialization
	ErrFrameProcessing = domain.ErrFrameProcessing
	ErrSubtitleParse   = domain.ErrSubtitleParse
	ErrInvalidProgress = domain.ErrInvalidProgress
)

const detectTimeout = 10 * time.Second

// Options configures the Worker.
type Options struct {
	// Filters configures the filter chains declared at init-process.
	// Default: crop 300x200 at (50,50) for video, 16 kHz mono s16 for audio.
	Filters *FilterConfig

	// HWAccel picks the scale filter variant: none, auto, cuda, vaapi, qsv or
	// videotoolbox. "auto" queries the local ffmpeg. Default: none.
	HWAccel string

	// Subtitles configures time code conversion. Default: 25 fps, one tick per frame.
	Subtitles *SubtitleConfig

	// PoolSize is the worker count used by NewPool when it is given zero.
	// Default: 4.
	PoolSize int

	// Loggers supplies per-module loggers. Default: info level text on stderr.
	Loggers *Loggers

	// Registerer receives the worker's Prometheus collectors. When nil a private
	// registry is created and exposed through Gatherer.
	Registerer prometheus.Registerer

	// Gatherer is returned by Worker.Gatherer. It may be left nil when
	// Registerer is nil or is itself a Gatherer, such as *prometheus.Registry.
	// Otherwise it is required.
	Gatherer prometheus.Gatherer
}

func (o *Options) setDefaults() {
	if o.Filters == nil {
		filters := ffmpeg.DefaultFilterConfig()
		o.Filters = &filters
	}
	if o.Subtitles == nil {
		sc := subtitle.DefaultConfig()
		o.Subtitles = &sc
	}
	if o.PoolSize == 0 {
		o.PoolSize = 4
	}
	if o.Loggers == nil {
		o.Loggers, _ = logging.New(logging.DefaultConfig(), os.Stderr)
	}
	if o.Registerer == nil {
		reg := prometheus.NewRegistry()
		o.Registerer = reg
		o.Gatherer = reg
	}
	if o.Gatherer == nil {
		if g, ok := o.Registerer.(prometheus.Gatherer); ok {
			o.Gatherer = g
		}
	}
}

func (o *Options) validate() error {
	if err := o.Filters.Validate(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	if err := o.Subtitles.Timebase.Validate(); err != nil {
		return fmt.Errorf("subtitles: %w", err)
	}
	if o.Gatherer == nil {
		return fmt.Errorf("metrics: Gatherer is required when Registerer cannot gather")
	}
	if o.PoolSize < 0 {
		return fmt.Errorf("pool size must not be negative, got %d", o.PoolSize)
	}
	return nil
}

// OptionsFromConfig builds Options from a loaded configuration file, with logs
// written to out.
func OptionsFromConfig(cfg *Config, out io.Writer) (Options, error) {
	loggers, err := logging.New(cfg.Logging, out)
	if err != nil {
		return Options{}, err
	}
	filters := cfg.Filters
	sc := cfg.Resolver()
	return Options{
		Filters:   &filters,
		HWAccel:   cfg.HWAccel,
		Subtitles: &sc,
		PoolSize:  cfg.Dispatch.Workers,
		Loggers:   loggers,
	}, nil
}

// LoadConfig reads a TOML configuration file with MEDIAWORKER_* overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Worker implements the four lifecycle calls. It keeps no per-job state.
type Worker struct {
	opts       Options
	hw         *domain.HWAccelConfig
	classifier *stream.Classifier
	processor  *frame.Processor
	resolver   *subtitle.Resolver
	bus        *events.Bus
	metrics    *metrics.Collectors
	logger     *slog.Logger
}

func NewWorker(opts Options) (*Worker, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("configure worker: %w", err)
	}

	hw, err := resolveHWAccel(opts.HWAccel)
	if err != nil {
		return nil, fmt.Errorf("configure worker: %w", err)
	}

	logger := opts.Loggers.GetLogger("worker")
	logger.Debug("worker configured", "hwaccel", hw.Accelerator, "scale_filter", hw.ScaleFilter)

	builder := ffmpeg.NewFilterBuilder(*opts.Filters, hw)

	return &Worker{
		opts:       opts,
		hw:         hw,
		classifier: stream.NewClassifier(builder, opts.Loggers.GetLogger("stream")),
		processor:  frame.NewProcessor(opts.Loggers.GetLogger("frame")),
		resolver:   subtitle.NewResolver(*opts.Subtitles, opts.Loggers.GetLogger("subtitle")),
		bus:        events.New(),
		metrics:    metrics.New(opts.Registerer),
		logger:     logger,
	}, nil
}

func resolveHWAccel(value string) (*domain.HWAccelConfig, error) {
	if strings.EqualFold(strings.TrimSpace(value), hwaccel.Auto) {
		ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
		defer cancel()
		return hwaccel.DetectBest(ctx), nil
	}
	accel, err := hwaccel.Parse(value)
	if err != nil {
		return nil, err
	}
	return hwaccel.NewConfig(accel), nil
}

// InitProcess declares the streams the job will process. An error means the
// job must not continue; it wraps ErrInitialization.
func (w *Worker) InitProcess(ctx context.Context, jobID string, inventory []StreamInfo, params map[string]string) ([]StreamDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInitialization, err)
	}

	w.logger.Info("init process", "job_id", jobID, "streams", len(inventory))

	descriptors, err := w.classifier.Classify(inventory, params)
	if err != nil {
		w.logger.Error("init process failed", "job_id", jobID, "error", err)
		return nil, err
	}

	skipped := len(inventory) - len(descriptors)
	w.metrics.ObserveStreams(descriptors, skipped)
	w.bus.Publish(events.StreamsDeclaredEvent{
		JobID:       jobID,
		Descriptors: descriptors,
		Skipped:     skipped,
		Timestamp:   time.Now(),
	})

	return descriptors, nil
}

func (w *Worker) ProcessFrame(jobID string, streamIndex int, f *Frame) FrameResult {
	res := w.processor.Process(jobID, streamIndex, f)

	w.metrics.ObserveFrame(res)
	w.bus.Publish(events.FrameProcessedEvent{
		JobID:       jobID,
		StreamIndex: streamIndex,
		Result:      res,
		Timestamp:   time.Now(),
	})

	return res
}

func (w *Worker) ProcessSubtitle(jobID string, streamIndex int, doc *Document) SubtitleResult {
	res := w.resolver.Resolve(jobID, streamIndex, doc)

	w.metrics.ObserveSubtitle(res)
	w.bus.Publish(events.SubtitleResolvedEvent{
		JobID:       jobID,
		StreamIndex: streamIndex,
		Status:      string(res.Status),
		Cues:        len(res.Cues),
		Detail:      res.Detail,
		Timestamp:   time.Now(),
	})

	return res
}

func (w *Worker) EndingProcess(jobID string) {
	w.logger.Info("ending process", "job_id", jobID)
	w.bus.Publish(events.ProcessEndedEvent{JobID: jobID, Timestamp: time.Now()})
}

// NewPool returns an unstarted dispatch pool whose tasks run through this
// worker. A size of zero uses Options.PoolSize.
func (w *Worker) NewPool(size int) *Pool {
	if size <= 0 {
		size = w.opts.PoolSize
	}
	return dispatch.NewPool(size, w.runTask, w.opts.Loggers.GetLogger("dispatch"))
}

func (w *Worker) runTask(ctx context.Context, task Task) TaskResult {
	if err := ctx.Err(); err != nil {
		return TaskResult{Err: err}
	}

	switch {
	case task.Frame != nil:
		res := w.ProcessFrame(task.JobID, task.StreamIndex, task.Frame)
		return TaskResult{Frame: &res}
	case task.Document != nil:
		res := w.ProcessSubtitle(task.JobID, task.StreamIndex, task.Document)
		return TaskResult{Subtitle: &res}
	default:
		return TaskResult{Err: fmt.Errorf("task for stream %d carries neither frame nor document", task.StreamIndex)}
	}
}

// Progress returns a reporter publishing JobProgressEvents for jobID.
func (w *Worker) Progress(jobID string) ProgressReporter {
	return w.bus.Reporter(jobID)
}

// Subscribe registers a handler for one of the event types, e.g.
// func(mediaworker.FrameProcessedEvent). Delivery is asynchronous.
func (w *Worker) Subscribe(handler any) (func(), error) {
	return w.bus.Subscribe(handler)
}

// Gatherer exposes the registry holding the worker's metrics.
func (w *Worker) Gatherer() prometheus.Gatherer {
	return w.opts.Gatherer
}

// HWAccel reports the accelerator and scale filter in use.
func (w *Worker) HWAccel() HWAccelConfig {
	return *w.hw
}

// RenderFilters formats a filter chain in ffmpeg filtergraph syntax.
func RenderFilters(filters []FilterDescriptor) string {
	return ffmpeg.RenderChain(filters)
}

// DecodeTTML reads one EBU-TTML-Live XML document.
func DecodeTTML(r io.Reader) (*Document, error) {
	return subtitle.DecodeTTML(r)
}

func NewJobID() string {
	return uuid.New().String()
}
