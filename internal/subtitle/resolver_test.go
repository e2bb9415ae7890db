package subtitle

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/eleven-am/mediaworker/internal/domain"
)

func newTestResolver(cfg Config, buf *bytes.Buffer) *Resolver {
	return NewResolver(cfg, slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func strPtr(s string) *string { return &s }

func TestResolveAccumulatesTextAcrossParagraphs(t *testing.T) {
	r := newTestResolver(DefaultConfig(), &bytes.Buffer{})

	doc := &domain.Document{Body: &domain.Body{Divs: []domain.Div{{Paragraphs: []domain.Paragraph{
		{Begin: domain.Offset(0, domain.UnitFrames), End: domain.Offset(25, domain.UnitFrames), Spans: []domain.Span{{Text: "A"}}},
		{Begin: domain.Offset(25, domain.UnitFrames), End: domain.Offset(50, domain.UnitFrames), Spans: []domain.Span{{Text: "B"}}},
	}}}}}

	res := r.Resolve("job", 2, doc)
	if res.Status != domain.StatusSuccess || len(res.Cues) != 2 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.Cues[0].Text != "A" || res.Cues[1].Text != "AB" {
		t.Fatalf("unexpected texts: %q, %q", res.Cues[0].Text, res.Cues[1].Text)
	}
	if res.Cues[1].Begin != "00:00:01:00" || res.Cues[1].End != "00:00:02:00" || res.Cues[1].Duration != "" {
		t.Fatalf("unexpected timing: %#v", res.Cues[1])
	}
}

func TestResolveResetTextPerParagraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResetTextPerParagraph = true
	r := newTestResolver(cfg, &bytes.Buffer{})

	doc := &domain.Document{Body: &domain.Body{Divs: []domain.Div{{Paragraphs: []domain.Paragraph{
		{Spans: []domain.Span{{Text: "A"}, {Text: "a"}}},
		{Spans: []domain.Span{{Text: "B"}}},
	}}}}}

	res := r.Resolve("job", 0, doc)
	got := []string{res.Cues[0].Text, res.Cues[1].Text, res.Cues[2].Text}
	want := []string{"A", "Aa", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cue %d text = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestResolveInheritsBodyTiming(t *testing.T) {
	r := newTestResolver(DefaultConfig(), &bytes.Buffer{})

	doc := &domain.Document{Body: &domain.Body{
		Begin:    domain.Offset(0, domain.UnitMilliseconds),
		Duration: domain.ClockFrames(0, 0, 10, 0),
		Divs: []domain.Div{{Paragraphs: []domain.Paragraph{
			{Spans: []domain.Span{{Text: "inherit"}}},
			{Begin: domain.Offset(2, domain.UnitSeconds), Spans: []domain.Span{{Text: "own"}}},
			{Spans: []domain.Span{{Text: "inherit again"}}},
		}}},
	}}

	res := r.Resolve("job", 0, doc)
	if len(res.Cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(res.Cues))
	}

	if c := res.Cues[0]; c.Begin != "00:00:00:00" || c.End != "" || c.Duration != "00:00:10:00" {
		t.Fatalf("first cue should inherit body timing: %#v", c)
	}
	if c := res.Cues[1]; c.Begin != "00:00:02:00" || c.Duration != "00:00:10:00" {
		t.Fatalf("second cue should keep own begin: %#v", c)
	}
	// never inherits from the preceding sibling
	if c := res.Cues[2]; c.Begin != "00:00:00:00" {
		t.Fatalf("third cue should inherit from body, not sibling: %#v", c)
	}
}

func TestResolveZeroValuedTimingIsPresent(t *testing.T) {
	r := newTestResolver(DefaultConfig(), &bytes.Buffer{})
	doc := &domain.Document{Body: &domain.Body{
		Begin: domain.Offset(5, domain.UnitSeconds),
		Divs: []domain.Div{{Paragraphs: []domain.Paragraph{
			{Begin: domain.Offset(0, domain.UnitFrames), Spans: []domain.Span{{Text: "x"}}},
		}}},
	}}

	res := r.Resolve("job", 0, doc)
	if res.Cues[0].Begin != "00:00:00:00" {
		t.Fatalf("explicit zero begin should not fall back to body: %#v", res.Cues[0])
	}
}

func TestResolveMissingBody(t *testing.T) {
	var logs bytes.Buffer
	r := newTestResolver(DefaultConfig(), &logs)

	res := r.Resolve("job", 0, &domain.Document{Language: strPtr("fr-FR")})
	if res.Status != domain.StatusSuccess || res.Cues == nil || len(res.Cues) != 0 {
		t.Fatalf("expected success with no cues, got %#v", res)
	}
	if !strings.Contains(logs.String(), "language=fr-FR") {
		t.Fatalf("expected document fields in debug log: %s", logs.String())
	}
}

func TestResolveSkipsEmptyContainers(t *testing.T) {
	r := newTestResolver(DefaultConfig(), &bytes.Buffer{})
	doc := &domain.Document{Body: &domain.Body{Divs: []domain.Div{
		{},
		{Paragraphs: []domain.Paragraph{{}, {Spans: []domain.Span{{Text: "only"}}}}},
	}}}

	res := r.Resolve("job", 0, doc)
	if len(res.Cues) != 1 || res.Cues[0].Text != "only" {
		t.Fatalf("unexpected cues: %#v", res.Cues)
	}
}

func TestResolveNilDocument(t *testing.T) {
	r := newTestResolver(DefaultConfig(), &bytes.Buffer{})
	res := r.Resolve("job", 0, nil)
	if res.Status != domain.StatusError || !strings.Contains(res.Detail, domain.ErrSubtitleParse.Error()) {
		t.Fatalf("expected parse error result, got %#v", res)
	}
}

func TestNewResolverFallsBackToDefaultTimebase(t *testing.T) {
	r := newTestResolver(Config{}, &bytes.Buffer{})
	if r.Timebase() != DefaultTimebase() {
		t.Fatalf("expected default timebase, got %#v", r.Timebase())
	}
}

func TestDecodeThenResolve(t *testing.T) {
	doc, err := DecodeTTML(strings.NewReader(liveDocument))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	res := newTestResolver(DefaultConfig(), &bytes.Buffer{}).Resolve("job", 3, doc)
	if len(res.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %#v", res.Cues)
	}
	if res.Cues[0].Begin != "00:00:00:00" || res.Cues[0].End != "00:00:00:00" || res.Cues[0].Duration != "00:00:10:00" {
		t.Fatalf("unexpected first cue: %#v", res.Cues[0])
	}
	if res.Cues[1].Text != "Lorem ipsum dolor sit amet." || res.Cues[1].Begin != "00:00:04:23" {
		t.Fatalf("unexpected second cue: %#v", res.Cues[1])
	}
}
