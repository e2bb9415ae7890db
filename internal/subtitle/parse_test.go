package subtitle

import (
	"errors"
	"testing"

	"github.com/eleven-am/mediaworker/internal/domain"
)

func TestParseTimeExpression(t *testing.T) {
	tests := []struct {
		in       string
		timecode string
	}{
		{"123f", "00:00:04:23"},
		{"12.5s", "00:00:12:12"},
		{"100ms", "00:00:00:02"},
		{"257t", "00:00:10:07"},
		{"1h", "01:00:00:00"},
		{"2m", "00:02:00:00"},
		{"00:00:04:23", "00:00:04:23"},
		{"00:00:04.5", "00:00:04:12"},
		{"10:20:30", "10:20:30:00"},
		{"00:00:01:05.3", "00:00:01:05"},
		{" 5s ", "00:00:05:00"},
	}

	tb := DefaultTimebase()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			expr, err := ParseTimeExpression(tt.in)
			if err != nil {
				t.Fatalf("ParseTimeExpression(%q) error: %v", tt.in, err)
			}
			if got := tb.TimeCode(expr); got != tt.timecode {
				t.Fatalf("TimeCode = %q, want %q", got, tt.timecode)
			}
		})
	}
}

func TestParseTimeExpressionKeepsShape(t *testing.T) {
	expr, err := ParseTimeExpression("100ms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expr.Offset == nil || expr.Offset.Unit != domain.UnitMilliseconds || expr.Offset.Value != 100 {
		t.Fatalf("unexpected offset: %#v", expr)
	}
	if expr.String() != "100ms" {
		t.Fatalf("String() = %q", expr.String())
	}

	expr, err = ParseTimeExpression("01:02:03:04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expr.Clock == nil || expr.Clock.Hours != 1 || expr.Clock.Frames != 4 {
		t.Fatalf("unexpected clock: %#v", expr)
	}
}

func TestParseTimeExpressionRejects(t *testing.T) {
	for _, in := range []string{"", "12", "abc", "5x", "-5s", "1:2", "00:61:00", "00:00:xx", "00:00:01.", "1:2:3:4:5"} {
		if _, err := ParseTimeExpression(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestParseTimeExpressionRejectsOutOfRange(t *testing.T) {
	inputs := []string{
		"1e18s",
		"1e30h",
		"1000000h",
		"99999999999999999:00:00:00",
		"153722867280912930:00:00",
		"99999999999999999999:00:00",
		"00:00:00:9999999999999",
		"1e17f",
		"1e300t",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTimeExpression(in)
			if err == nil {
				t.Fatalf("expected %q to be rejected", in)
			}
			if !errors.Is(err, domain.ErrSubtitleParse) {
				t.Fatalf("error should wrap ErrSubtitleParse: %v", err)
			}
		})
	}
}

func TestParseTimeExpressionAcceptsLargeValidPositions(t *testing.T) {
	tb := DefaultTimebase()
	tests := []struct {
		in       string
		timecode string
	}{
		{"999999:59:59:24", "999999:59:59:24"},
		{"999999h", "999999:00:00:00"},
		{"3599999999s", "999999:59:59:00"},
	}

	for _, tt := range tests {
		expr, err := ParseTimeExpression(tt.in)
		if err != nil {
			t.Fatalf("ParseTimeExpression(%q) error: %v", tt.in, err)
		}
		if got := tb.TimeCode(expr); got != tt.timecode {
			t.Fatalf("TimeCode(%q) = %q, want %q", tt.in, got, tt.timecode)
		}
	}
}
