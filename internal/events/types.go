package events

import (
	"time"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// Event type constants for kelindar/event.
const (
	TypeStreamsDeclared uint32 = iota + 1
	TypeFrameProcessed
	TypeSubtitleResolved
	TypeProcessEnded
	TypeJobProgress
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamsDeclaredEvent is published when init-process has declared its streams.
type StreamsDeclaredEvent struct {
	JobID       string                    `json:"job_id"`
	Descriptors []domain.StreamDescriptor `json:"descriptors"`
	Skipped     int                       `json:"skipped"`
	Timestamp   time.Time                 `json:"timestamp"`
}

func (e StreamsDeclaredEvent) Type() uint32 { return TypeStreamsDeclared }

type FrameProcessedEvent struct {
	JobID       string             `json:"job_id"`
	StreamIndex int                `json:"stream_index"`
	Result      domain.FrameResult `json:"result"`
	Timestamp   time.Time          `json:"timestamp"`
}

func (e FrameProcessedEvent) Type() uint32 { return TypeFrameProcessed }

type SubtitleResolvedEvent struct {
	JobID       string    `json:"job_id"`
	StreamIndex int       `json:"stream_index"`
	Status      string    `json:"status"`
	Cues        int       `json:"cues"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e SubtitleResolvedEvent) Type() uint32 { return TypeSubtitleResolved }

type ProcessEndedEvent struct {
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e ProcessEndedEvent) Type() uint32 { return TypeProcessEnded }

type JobProgressEvent struct {
	JobID     string    `json:"job_id"`
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

func (e JobProgressEvent) Type() uint32 { return TypeJobProgress }
