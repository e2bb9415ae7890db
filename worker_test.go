package mediaworker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/eleven-am/mediaworker/internal/logging"
)

func newTestWorker(t *testing.T, opts Options) (*Worker, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	if opts.Loggers == nil {
		loggers, err := logging.New(logging.Config{Level: "debug"}, &logs)
		if err != nil {
			t.Fatalf("loggers: %v", err)
		}
		opts.Loggers = loggers
	}
	w, err := NewWorker(opts)
	if err != nil {
		t.Fatalf("NewWorker() error: %v", err)
	}
	return w, &logs
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		var zero T
		return zero
	}
}

func TestInitProcessDeclaresVideoAndAudio(t *testing.T) {
	w, _ := newTestWorker(t, Options{})

	declared := make(chan StreamsDeclaredEvent, 1)
	unsub, err := w.Subscribe(func(e StreamsDeclaredEvent) { declared <- e })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	inventory := []StreamInfo{
		{Index: 0, Kind: StreamVideo},
		{Index: 1, Kind: StreamAudio},
		{Index: 2, Kind: StreamUnknown},
	}

	descs, err := w.InitProcess(context.Background(), "job-1", inventory, map[string]string{"lang": "fr"})
	if err != nil {
		t.Fatalf("InitProcess() error: %v", err)
	}
	if len(descs) != 2 || descs[0].StreamIndex != 0 || descs[1].StreamIndex != 1 {
		t.Fatalf("unexpected descriptors: %#v", descs)
	}

	crop := descs[0].Filters[0]
	if crop.Name != "crop" || *crop.Label != "crop_filter" || crop.Parameters["out_w"] != "300" {
		t.Fatalf("unexpected crop filter: %#v", crop)
	}
	af := descs[1].Filters[0]
	if af.Name != "aformat" || af.Parameters["sample_rates"] != "16000" || af.Parameters["channel_layouts"] != "mono" {
		t.Fatalf("unexpected aformat filter: %#v", af)
	}

	ev := waitFor(t, declared)
	if ev.JobID != "job-1" || ev.Skipped != 1 {
		t.Fatalf("unexpected event: %#v", ev)
	}

	if got := testutil.ToFloat64(w.metrics.StreamsSkipped); got != 1 {
		t.Fatalf("skipped metric = %v", got)
	}
}

func TestInitProcessRejectsMalformedInventory(t *testing.T) {
	w, _ := newTestWorker(t, Options{})

	_, err := w.InitProcess(context.Background(), "job", []StreamInfo{
		{Index: 1, Kind: StreamVideo},
		{Index: 1, Kind: StreamAudio},
	}, nil)
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
}

func TestInitProcessHonorsCancelledContext(t *testing.T) {
	w, _ := newTestWorker(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.InitProcess(ctx, "job", nil, nil); !errors.Is(err, context.Canceled) || !errors.Is(err, ErrInitialization) {
		t.Fatalf("expected cancelled initialization error, got %v", err)
	}
}

func TestProcessFrameAudio(t *testing.T) {
	w, logs := newTestWorker(t, Options{})

	processed := make(chan FrameProcessedEvent, 1)
	unsub, _ := w.Subscribe(func(e FrameProcessedEvent) { processed <- e })
	defer unsub()

	res := w.ProcessFrame("job", 1, &Frame{
		StreamIndex: 1,
		SampleRate:  16000,
		Channels:    1,
		NbSamples:   512,
		Data:        [][]byte{make([]byte, 1024)},
	})
	if res.Status != StatusSuccess || res.PayloadSize != 1024 || res.Kind != "audio" {
		t.Fatalf("unexpected result: %#v", res)
	}

	ev := waitFor(t, processed)
	if ev.StreamIndex != 1 || ev.Result.PayloadSize != 1024 {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if !strings.Contains(logs.String(), "module=frame") {
		t.Fatalf("expected frame module log, got %s", logs.String())
	}
	if got := testutil.ToFloat64(w.metrics.FramePayloadBytes.WithLabelValues("audio")); got != 1024 {
		t.Fatalf("payload metric = %v", got)
	}
}

func TestProcessSubtitleAndEnding(t *testing.T) {
	w, _ := newTestWorker(t, Options{})

	ended := make(chan ProcessEndedEvent, 1)
	unsub, _ := w.Subscribe(func(e ProcessEndedEvent) { ended <- e })
	defer unsub()

	doc, err := DecodeTTML(strings.NewReader(`<tt><body begin="0ms"><div><p end="123f"><span>A</span><span>B</span></p></div></body></tt>`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	res := w.ProcessSubtitle("job", 2, doc)
	if res.Status != StatusSuccess || len(res.Cues) != 2 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.Cues[1].Text != "AB" || res.Cues[1].End != "00:00:04:23" || res.Cues[1].Begin != "00:00:00:00" {
		t.Fatalf("unexpected cue: %#v", res.Cues[1])
	}

	w.EndingProcess("job")
	if ev := waitFor(t, ended); ev.JobID != "job" {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestPoolRunsTasksThroughWorker(t *testing.T) {
	w, _ := newTestWorker(t, Options{PoolSize: 2})
	pool := w.NewPool(0)
	if pool.Size() != 2 {
		t.Fatalf("expected pool size from options, got %d", pool.Size())
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	tasks := []Task{
		{JobID: "job", StreamIndex: 0, Frame: &Frame{Width: 2, Height: 2, Data: [][]byte{{1, 2, 3, 4}}}},
		{JobID: "job", StreamIndex: 2, Document: &Document{}},
		{JobID: "job", StreamIndex: 3},
	}
	for _, task := range tasks {
		if err := pool.Submit(context.Background(), task); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	var frames, subtitles, failures int
	for i := 0; i < len(tasks); i++ {
		res := waitFor(t, pool.Results())
		switch {
		case res.Frame != nil:
			frames++
		case res.Subtitle != nil:
			subtitles++
		case res.Err != nil:
			failures++
		}
	}
	if frames != 1 || subtitles != 1 || failures != 1 {
		t.Fatalf("frames=%d subtitles=%d failures=%d", frames, subtitles, failures)
	}

	if err := pool.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestProgressReporter(t *testing.T) {
	w, _ := newTestWorker(t, Options{})

	progress := make(chan JobProgressEvent, 1)
	unsub, _ := w.Subscribe(func(e JobProgressEvent) { progress <- e })
	defer unsub()

	if err := w.Progress("job").PublishProgress(101); !errors.Is(err, ErrInvalidProgress) {
		t.Fatalf("expected ErrInvalidProgress, got %v", err)
	}
	if err := w.Progress("job").PublishProgress(40); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ev := waitFor(t, progress); ev.Percent != 40 {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestNewWorkerRejectsInvalidOptions(t *testing.T) {
	if _, err := NewWorker(Options{Loggers: logging.Discard(), Filters: &FilterConfig{Scale: &Scaling{}}}); err == nil {
		t.Fatalf("expected error for scale without sides")
	}
	if _, err := NewWorker(Options{Loggers: logging.Discard(), HWAccel: "opencl"}); err == nil {
		t.Fatalf("expected error for unknown accelerator")
	}
}

func TestHardwareScaleFilterInDescriptors(t *testing.T) {
	width := 1280
	w, _ := newTestWorker(t, Options{HWAccel: "vaapi", Filters: &FilterConfig{Scale: &Scaling{Width: &width}}})

	if w.HWAccel().ScaleFilter != "scale_vaapi" {
		t.Fatalf("unexpected accelerator: %#v", w.HWAccel())
	}

	descs, err := w.InitProcess(context.Background(), "job", []StreamInfo{{Index: 0, Kind: StreamVideo}}, nil)
	if err != nil {
		t.Fatalf("InitProcess() error: %v", err)
	}
	want := "scale_vaapi@scale_filter=format=nv12:height=-1:width=1280"
	if got := RenderFilters(descs[0].Filters); got != want {
		t.Fatalf("RenderFilters() = %q, want %q", got, want)
	}
}

func TestMetricsOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	w, _ := newTestWorker(t, Options{Registerer: reg})

	w.ProcessFrame("job", 0, &Frame{Width: 4, Height: 4, Data: [][]byte{make([]byte, 16)}})

	if w.Gatherer() != prometheus.Gatherer(reg) {
		t.Fatalf("gatherer should be the supplied registry")
	}
	if n, err := testutil.GatherAndCount(reg, "mediaworker_frames_processed_total"); err != nil || n != 1 {
		t.Fatalf("frames series = %d, err %v", n, err)
	}
}

func TestGathererRequiredForWrappedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"worker": "a"}, reg)

	_, err := NewWorker(Options{Loggers: logging.Discard(), Registerer: wrapped})
	if err == nil || !strings.Contains(err.Error(), "Gatherer is required") {
		t.Fatalf("expected missing gatherer error, got %v", err)
	}

	w, _ := newTestWorker(t, Options{Registerer: wrapped, Gatherer: reg})
	w.ProcessFrame("job", 0, &Frame{Width: 4, Height: 4, Data: [][]byte{make([]byte, 16)}})

	if w.Gatherer() != prometheus.Gatherer(reg) {
		t.Fatalf("gatherer should be the supplied one")
	}
	if n, err := testutil.GatherAndCount(reg, "mediaworker_frames_processed_total"); err != nil || n != 1 {
		t.Fatalf("frames series = %d, err %v", n, err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediaworker.toml")
	content := "[dispatch]\nworkers = 3\n[subtitles]\nreset_text_per_paragraph = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	opts, err := OptionsFromConfig(cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("OptionsFromConfig() error: %v", err)
	}
	if opts.PoolSize != 3 || !opts.Subtitles.ResetTextPerParagraph {
		t.Fatalf("unexpected options: %#v", opts)
	}

	w, err := NewWorker(opts)
	if err != nil {
		t.Fatalf("NewWorker() error: %v", err)
	}
	if w.NewPool(0).Size() != 3 {
		t.Fatalf("pool size should come from config")
	}
}

func TestNewJobIDIsUnique(t *testing.T) {
	if NewJobID() == NewJobID() {
		t.Fatalf("expected distinct job ids")
	}
}
