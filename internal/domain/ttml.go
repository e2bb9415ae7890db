package domain

import (
	"fmt"
	"strconv"
)

// Document is a parsed EBU-TTML-Live document. Every scalar is optional and a
// nil pointer means the attribute was absent; a zero value is a real value.
type Document struct {
	SequenceIdentifier *string
	SequenceNumber     *uint64
	Language           *string
	ClockMode          *string
	TimeBase           *string
	Head               *Head
	Body               *Body
}

// Head is carried through for diagnostics only.
type Head struct {
	Title       string
	Description string
	Copyright   string
	Agent       string
	Actor       string
	StylingLang string
}

type Body struct {
	Begin    *TimeExpression
	End      *TimeExpression
	Duration *TimeExpression
	Divs     []Div
}

type Div struct {
	Paragraphs []Paragraph
}

type Paragraph struct {
	Begin    *TimeExpression
	End      *TimeExpression
	Duration *TimeExpression
	Spans    []Span
}

type Span struct {
	Text string
}

type TimeUnit string

const (
	UnitHours        TimeUnit = "h"
	UnitMinutes      TimeUnit = "m"
	UnitSeconds      TimeUnit = "s"
	UnitMilliseconds TimeUnit = "ms"
	UnitFrames       TimeUnit = "f"
	UnitTicks        TimeUnit = "t"
)

// TimeExpression holds exactly one of Clock or Offset.
type TimeExpression struct {
	Clock  *ClockTime
	Offset *OffsetTime
}

// ClockTime is HH:MM:SS followed by either a frame count (HH:MM:SS:FF) or a
// decimal fraction of a second (HH:MM:SS.fff).
type ClockTime struct {
	Hours    int
	Minutes  int
	Seconds  int
	Frames   int
	Fraction float64
}

type OffsetTime struct {
	Value float64
	Unit  TimeUnit
}

func ClockFrames(hours, minutes, seconds, frames int) *TimeExpression {
	return &TimeExpression{Clock: &ClockTime{Hours: hours, Minutes: minutes, Seconds: seconds, Frames: frames}}
}

func Offset(value float64, unit TimeUnit) *TimeExpression {
	return &TimeExpression{Offset: &OffsetTime{Value: value, Unit: unit}}
}

func (t TimeExpression) String() string {
	switch {
	case t.Clock != nil:
		c := t.Clock
		if c.Fraction > 0 {
			frac := strconv.FormatFloat(c.Fraction, 'f', -1, 64)
			return fmt.Sprintf("%02d:%02d:%02d%s", c.Hours, c.Minutes, c.Seconds, frac[1:])
		}
		return fmt.Sprintf("%02d:%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds, c.Frames)
	case t.Offset != nil:
		return strconv.FormatFloat(t.Offset.Value, 'f', -1, 64) + string(t.Offset.Unit)
	default:
		return ""
	}
}

// Cue is one resolved interval with the text accumulated so far. Begin, End
// and Duration are timecodes, empty when the value is absent.
type Cue struct {
	Begin    string `json:"begin"`
	End      string `json:"end"`
	Duration string `json:"duration"`
	Text     string `json:"text"`

	BeginTime    *TimeExpression `json:"-"`
	EndTime      *TimeExpression `json:"-"`
	DurationTime *TimeExpression `json:"-"`
}
