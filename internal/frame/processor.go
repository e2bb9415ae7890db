package frame

import (
	"fmt"
	"log/slog"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// Processor inspects decoded frames. It holds no per-job state and is safe
// for concurrent use.
type Processor struct {
	logger *slog.Logger
}

func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{logger: logger}
}

func (p *Processor) Process(jobID string, streamIndex int, f *domain.Frame) (result domain.FrameResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", domain.ErrFrameProcessing, r)
			p.logger.Error("frame processing panicked", "job_id", jobID, "stream_index", streamIndex, "error", err)
			result = domain.FrameError(err)
		}
	}()

	if err := validate(f); err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrFrameProcessing, err)
		p.logger.Warn("rejecting frame", "job_id", jobID, "stream_index", streamIndex, "error", err)
		return domain.FrameError(err)
	}

	if f.StreamIndex != streamIndex {
		p.logger.Warn("frame stream index differs from call",
			"job_id", jobID,
			"stream_index", streamIndex,
			"frame_stream_index", f.StreamIndex)
	}

	kind := f.Kind()
	size := f.PayloadSize()

	attrs := []any{
		"job_id", jobID,
		"stream_index", streamIndex,
		"pts", f.PTS,
		"kind", kind,
	}
	if kind == domain.FrameVideo {
		attrs = append(attrs, "size", fmt.Sprintf("%dx%d", f.Width, f.Height))
	} else {
		attrs = append(attrs,
			"sample_rate", f.SampleRate,
			"channels", f.Channels,
			"samples", f.NbSamples)
	}
	attrs = append(attrs, "payload_size", size, "planes", len(f.Data))
	p.logger.Info("frame processed", attrs...)

	return domain.FrameResult{
		Status:      domain.StatusSuccess,
		Kind:        kind,
		PayloadSize: size,
		PTS:         f.PTS,
	}
}

func validate(f *domain.Frame) error {
	if f == nil {
		return fmt.Errorf("frame is nil")
	}
	if f.Width < 0 || f.Height < 0 {
		return fmt.Errorf("negative dimensions %dx%d", f.Width, f.Height)
	}
	if f.SampleRate < 0 || f.Channels < 0 || f.NbSamples < 0 {
		return fmt.Errorf("negative audio layout: rate %d, channels %d, samples %d", f.SampleRate, f.Channels, f.NbSamples)
	}
	return nil
}
