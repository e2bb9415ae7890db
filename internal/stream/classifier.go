package stream

import (
	"fmt"
	"log/slog"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// FilterSource builds the filter chain for one stream.
type FilterSource interface {
	For(info domain.StreamInfo) []domain.FilterDescriptor
}

type Classifier struct {
	filters FilterSource
	logger  *slog.Logger
}

func NewClassifier(filters FilterSource, logger *slog.Logger) *Classifier {
	return &Classifier{filters: filters, logger: logger}
}

// Classify declares which streams the job will process. Descriptors follow
// inventory order; unknown streams are skipped. A malformed inventory yields
// no descriptors at all.
func (c *Classifier) Classify(inventory []domain.StreamInfo, params map[string]string) ([]domain.StreamDescriptor, error) {
	if len(params) > 0 {
		c.logger.Debug("job parameters", "params", params)
	}

	if err := ValidateInventory(inventory); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInitialization, err)
	}

	descriptors := make([]domain.StreamDescriptor, 0, len(inventory))
	if len(inventory) == 0 {
		c.logger.Warn("stream inventory is empty")
		return descriptors, nil
	}

	for _, info := range inventory {
		switch info.Kind {
		case domain.StreamVideo, domain.StreamAudio, domain.StreamSubtitle, domain.StreamData:
			filters := c.filters.For(info)
			if filters == nil {
				filters = []domain.FilterDescriptor{}
			}
			descriptors = append(descriptors, domain.StreamDescriptor{
				StreamIndex: info.Index,
				Kind:        info.Kind,
				Filters:     filters,
			})
			c.logger.Info("stream declared",
				"stream_index", info.Index,
				"kind", info.Kind,
				"codec", info.Codec,
				"filters", len(filters))
		default:
			c.logger.Warn("skipping stream of unknown kind",
				"stream_index", info.Index,
				"codec", info.Codec)
		}
	}

	return descriptors, nil
}

// ValidateInventory checks every stream and requires strictly increasing indices.
func ValidateInventory(inventory []domain.StreamInfo) error {
	last := -1
	for i, info := range inventory {
		if err := info.Validate(); err != nil {
			return fmt.Errorf("inventory entry %d: %w", i, err)
		}
		if info.Index == last {
			return fmt.Errorf("inventory entry %d: duplicate stream index %d", i, info.Index)
		}
		if info.Index < last {
			return fmt.Errorf("inventory entry %d: stream index %d follows %d", i, info.Index, last)
		}
		last = info.Index
	}
	return nil
}
