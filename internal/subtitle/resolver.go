package subtitle

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/eleven-am/mediaworker/internal/domain"
)

type Config struct {
	Timebase Timebase `toml:"timebase"`
	// ResetTextPerParagraph clears the accumulated span text at every new
	// paragraph. Off by default, so text carries across the whole document.
	ResetTextPerParagraph bool `toml:"reset_text_per_paragraph"`
}

func DefaultConfig() Config {
	return Config{Timebase: DefaultTimebase()}
}

type Resolver struct {
	cfg    Config
	logger *slog.Logger
}

func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	if cfg.Timebase.Validate() != nil {
		cfg.Timebase = DefaultTimebase()
	}
	return &Resolver{cfg: cfg, logger: logger}
}

func (r *Resolver) Timebase() Timebase {
	return r.cfg.Timebase
}

// Resolve turns a document into cues, one per span, each carrying the
// paragraph's effective timing and the text accumulated so far.
func (r *Resolver) Resolve(jobID string, streamIndex int, doc *domain.Document) (result domain.SubtitleResult) {
	log := r.logger.With("job_id", jobID, "stream_index", streamIndex)

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%w: panic: %v", domain.ErrSubtitleParse, rec)
			log.Error("subtitle resolution panicked", "error", err)
			result = domain.SubtitleError(err)
		}
	}()

	if doc == nil {
		err := fmt.Errorf("%w: document is nil", domain.ErrSubtitleParse)
		log.Warn("rejecting subtitle", "error", err)
		return domain.SubtitleError(err)
	}

	r.logDocument(log, doc)

	cues := []domain.Cue{}
	if doc.Body == nil {
		log.Info("subtitle document has no body")
		return domain.SubtitleResult{Status: domain.StatusSuccess, Cues: cues}
	}

	body := doc.Body
	log.Debug("body timing",
		"begin", r.cfg.Timebase.TimeCode(body.Begin),
		"end", r.cfg.Timebase.TimeCode(body.End),
		"duration", r.cfg.Timebase.TimeCode(body.Duration))

	var text strings.Builder
	for i, div := range body.Divs {
		if len(div.Paragraphs) == 0 {
			log.Debug("empty div", "div", i)
			continue
		}
		for j, p := range div.Paragraphs {
			if len(p.Spans) == 0 {
				log.Debug("empty paragraph", "div", i, "paragraph", j)
				continue
			}
			if r.cfg.ResetTextPerParagraph {
				text.Reset()
			}

			begin := inherit(p.Begin, body.Begin)
			end := inherit(p.End, body.End)
			duration := inherit(p.Duration, body.Duration)

			for _, span := range p.Spans {
				text.WriteString(span.Text)
				cues = append(cues, domain.Cue{
					Begin:        r.cfg.Timebase.TimeCode(begin),
					End:          r.cfg.Timebase.TimeCode(end),
					Duration:     r.cfg.Timebase.TimeCode(duration),
					Text:         text.String(),
					BeginTime:    begin,
					EndTime:      end,
					DurationTime: duration,
				})
			}
		}
	}

	log.Info("subtitle resolved", "cues", len(cues))
	return domain.SubtitleResult{Status: domain.StatusSuccess, Cues: cues}
}

func inherit(own, parent *domain.TimeExpression) *domain.TimeExpression {
	if own != nil {
		return own
	}
	return parent
}

func (r *Resolver) logDocument(log *slog.Logger, doc *domain.Document) {
	attrs := []any{}
	if doc.SequenceIdentifier != nil {
		attrs = append(attrs, "sequence_identifier", *doc.SequenceIdentifier)
	}
	if doc.SequenceNumber != nil {
		attrs = append(attrs, "sequence_number", *doc.SequenceNumber)
	}
	if doc.Language != nil {
		attrs = append(attrs, "language", *doc.Language)
	}
	if doc.ClockMode != nil {
		attrs = append(attrs, "clock_mode", *doc.ClockMode)
	}
	if doc.TimeBase != nil {
		attrs = append(attrs, "time_base", *doc.TimeBase)
	}
	if h := doc.Head; h != nil {
		attrs = append(attrs, slog.Group("head",
			"title", h.Title,
			"agent", h.Agent,
			"styling_lang", h.StylingLang))
	}
	log.Debug("subtitle document", attrs...)
}
