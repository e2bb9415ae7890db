package subtitle

import (
	"fmt"
	"math"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// Timebase converts time expressions to frame counts. TickRate is ticks per
// second; zero means it follows FrameRate, so one tick is one frame.
type Timebase struct {
	FrameRate float64 `toml:"frame_rate"`
	TickRate  float64 `toml:"tick_rate"`
}

func DefaultTimebase() Timebase {
	return Timebase{FrameRate: 25}
}

func (tb Timebase) Validate() error {
	if tb.FrameRate <= 0 {
		return fmt.Errorf("frame rate must be positive, got %v", tb.FrameRate)
	}
	if tb.TickRate < 0 {
		return fmt.Errorf("tick rate must not be negative, got %v", tb.TickRate)
	}
	return nil
}

// Frames returns the exact, possibly fractional, frame position of t.
func (tb Timebase) Frames(t *domain.TimeExpression) float64 {
	if t == nil {
		return 0
	}
	fps := tb.FrameRate

	switch {
	case t.Clock != nil:
		c := t.Clock
		seconds := float64(c.Hours)*3600 + float64(c.Minutes)*60 + float64(c.Seconds)
		return seconds*fps + float64(c.Frames) + c.Fraction*fps
	case t.Offset != nil:
		v := t.Offset.Value
		switch t.Offset.Unit {
		case domain.UnitHours:
			return v * 3600 * fps
		case domain.UnitMinutes:
			return v * 60 * fps
		case domain.UnitSeconds:
			return v * fps
		case domain.UnitMilliseconds:
			return v * fps / 1000
		case domain.UnitTicks:
			tickRate := tb.TickRate
			if tickRate <= 0 {
				tickRate = fps
			}
			return v * fps / tickRate
		default:
			return v
		}
	default:
		return 0
	}
}

func (tb Timebase) Seconds(t *domain.TimeExpression) float64 {
	if tb.FrameRate <= 0 {
		return 0
	}
	return tb.Frames(t) / tb.FrameRate
}

// TimeCode renders t as HH:MM:SS:FF. Partial frames are dropped, negative
// positions clamp to zero, positions past MaxFrames saturate and a nil
// expression renders as "".
func (tb Timebase) TimeCode(t *domain.TimeExpression) string {
	if t == nil {
		return ""
	}

	total := clampFrames(tb.Frames(t))
	fps := clampFrames(math.Round(tb.FrameRate))
	if fps == 0 {
		fps = 1
	}

	frames := total % fps
	seconds := total / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60, frames)
}

// MaxFrames is the largest frame position TimeCode renders. Anything beyond it
// saturates, so the result does not depend on platform float conversion.
const MaxFrames = 1 << 53

func clampFrames(f float64) int64 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= MaxFrames:
		return MaxFrames
	default:
		// epsilon absorbs float error such as 4.92s landing at 122.99999 frames
		return int64(math.Floor(f + 1e-9))
	}
}
