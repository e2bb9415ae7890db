package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/eleven-am/mediaworker/internal/domain"
)

var offsetUnits = []domain.TimeUnit{
	domain.UnitMilliseconds,
	domain.UnitHours,
	domain.UnitMinutes,
	domain.UnitSeconds,
	domain.UnitFrames,
	domain.UnitTicks,
}

// Accepted positions stay below maxHours. Frame and tick offsets have no
// rate here, so they are bounded by count instead.
const (
	maxHours  = 1_000_000
	maxFrames = maxHours * 3600 * 1000
	maxTicks  = MaxFrames
)

// ParseTimeExpression parses a TTML time expression: clock times such as
// 00:00:04:23, 00:00:04.5 or 00:00:04, and offsets such as 12.5s, 100ms,
// 5832f, 257257t, 1h or 2m. Errors wrap domain.ErrSubtitleParse.
func ParseTimeExpression(value string) (*domain.TimeExpression, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil, fmt.Errorf("%w: empty time expression", domain.ErrSubtitleParse)
	}

	var expr *domain.TimeExpression
	var err error
	if strings.Contains(s, ":") {
		expr, err = parseClock(s)
	} else {
		expr, err = parseOffset(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSubtitleParse, err)
	}
	return expr, nil
}

func parseClock(s string) (*domain.TimeExpression, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("clock time %q: expected HH:MM:SS or HH:MM:SS:FF", s)
	}

	hours, err := parseUint(parts[0])
	if err != nil {
		return nil, fmt.Errorf("clock time %q hours: %w", s, err)
	}
	if hours >= maxHours {
		return nil, fmt.Errorf("clock time %q: hours out of range", s)
	}
	minutes, err := parseUint(parts[1])
	if err != nil || minutes > 59 {
		return nil, fmt.Errorf("clock time %q: invalid minutes", s)
	}

	clock := &domain.ClockTime{Hours: hours, Minutes: minutes}

	secPart := parts[2]
	if len(parts) == 3 {
		if whole, frac, ok := strings.Cut(secPart, "."); ok {
			secPart = whole
			fraction, err := strconv.ParseFloat("0."+frac, 64)
			if err != nil || frac == "" {
				return nil, fmt.Errorf("clock time %q: invalid fraction", s)
			}
			clock.Fraction = fraction
		}
	}

	seconds, err := parseUint(secPart)
	if err != nil || seconds > 60 {
		return nil, fmt.Errorf("clock time %q: invalid seconds", s)
	}
	clock.Seconds = seconds

	if len(parts) == 4 {
		// sub-frames (FF.sub) are below frame resolution and dropped
		framePart, _, _ := strings.Cut(parts[3], ".")
		frames, err := parseUint(framePart)
		if err != nil {
			return nil, fmt.Errorf("clock time %q frames: %w", s, err)
		}
		if int64(frames) >= maxFrames {
			return nil, fmt.Errorf("clock time %q: frames out of range", s)
		}
		clock.Frames = frames
	}

	return &domain.TimeExpression{Clock: clock}, nil
}

func parseOffset(s string) (*domain.TimeExpression, error) {
	for _, unit := range offsetUnits {
		number, ok := strings.CutSuffix(s, string(unit))
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return nil, fmt.Errorf("offset time %q: %w", s, err)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || v >= offsetLimit(unit) {
			return nil, fmt.Errorf("offset time %q is out of range", s)
		}
		return domain.Offset(v, unit), nil
	}
	return nil, fmt.Errorf("offset time %q: missing or unknown unit", s)
}

func offsetLimit(unit domain.TimeUnit) float64 {
	switch unit {
	case domain.UnitHours:
		return maxHours
	case domain.UnitMinutes:
		return maxHours * 60
	case domain.UnitSeconds:
		return maxHours * 3600
	case domain.UnitMilliseconds:
		return maxHours * 3600 * 1000
	case domain.UnitFrames:
		return maxFrames
	default:
		return maxTicks
	}
}

func parseUint(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty field")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %d", v)
	}
	return v, nil
}
