package events

import (
	"fmt"
	"time"

	"github.com/kelindar/event"

	"github.com/eleven-am/mediaworker/internal/domain"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StreamsDeclaredEvent:
		event.Publish(b.dispatcher, e)
	case FrameProcessedEvent:
		event.Publish(b.dispatcher, e)
	case SubtitleResolvedEvent:
		event.Publish(b.dispatcher, e)
	case ProcessEndedEvent:
		event.Publish(b.dispatcher, e)
	case JobProgressEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts, e.g.
// bus.Subscribe(func(e JobProgressEvent) { ... }). It returns an unsubscribe
// function, or an error for a handler of an unknown type.
func (b *Bus) Subscribe(handler any) (func(), error) {
	switch h := handler.(type) {
	case func(StreamsDeclaredEvent):
		return event.Subscribe(b.dispatcher, h), nil
	case func(FrameProcessedEvent):
		return event.Subscribe(b.dispatcher, h), nil
	case func(SubtitleResolvedEvent):
		return event.Subscribe(b.dispatcher, h), nil
	case func(ProcessEndedEvent):
		return event.Subscribe(b.dispatcher, h), nil
	case func(JobProgressEvent):
		return event.Subscribe(b.dispatcher, h), nil
	default:
		return func() {}, fmt.Errorf("subscribe: unsupported handler type %T", handler)
	}
}

// Reporter returns a progress reporter that publishes JobProgressEvents for jobID.
func (b *Bus) Reporter(jobID string) domain.ProgressReporter {
	return &progressReporter{bus: b, jobID: jobID}
}

type progressReporter struct {
	bus   *Bus
	jobID string
}

func (r *progressReporter) PublishProgress(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidProgress, percent)
	}
	r.bus.Publish(JobProgressEvent{JobID: r.jobID, Percent: percent, Timestamp: time.Now()})
	return nil
}
