package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// WriteWebVTT exports cues as a WebVTT file. Cues need a begin time and either
// an end time or a duration; others are skipped, as are empty intervals.
func WriteWebVTT(w io.Writer, cues []domain.Cue, tb Timebase) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("WEBVTT\n\n"); err != nil {
		return fmt.Errorf("write vtt header: %w", err)
	}

	for _, cue := range cues {
		start, end, ok := cueInterval(cue, tb)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s --> %s\n%s\n\n", formatVTTTime(start), formatVTTTime(end), cue.Text); err != nil {
			return fmt.Errorf("write vtt cue: %w", err)
		}
	}

	return bw.Flush()
}

func cueInterval(cue domain.Cue, tb Timebase) (float64, float64, bool) {
	if cue.BeginTime == nil {
		return 0, 0, false
	}
	start := tb.Seconds(cue.BeginTime)

	var end float64
	switch {
	case cue.EndTime != nil:
		end = tb.Seconds(cue.EndTime)
	case cue.DurationTime != nil:
		end = start + tb.Seconds(cue.DurationTime)
	default:
		return 0, 0, false
	}

	if end <= start {
		return 0, 0, false
	}
	return start, end, true
}

func formatVTTTime(seconds float64) string {
	totalMillis := int64(math.Round(seconds * 1000))
	if totalMillis < 0 {
		totalMillis = 0
	}
	hours := totalMillis / 3_600_000
	minutes := (totalMillis / 60_000) % 60
	secs := (totalMillis / 1000) % 60
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}
