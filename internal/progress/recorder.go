package progress

import (
	"context"
	"sync"
)

// Published is one event captured by a Recorder.
type Published struct {
	Channel string
	Event   Event
}

// Recorder is a Publisher that keeps every event in memory. It is used by
// the CLI to print a job's progress and by tests.
type Recorder struct {
	// Err, when set, is returned from every Publish after recording.
	Err error
	// OnPublish, when set, is called for every recorded event.
	OnPublish func(Published)

	mu     sync.Mutex
	events []Published
}

// Publish implements Publisher.
func (r *Recorder) Publish(ctx context.Context, channel string, event Event) error {
	p := Published{Channel: channel, Event: event}

	r.mu.Lock()
	r.events = append(r.events, p)
	r.mu.Unlock()

	if r.OnPublish != nil {
		r.OnPublish(p)
	}
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Percentages returns the progress values of the recorded progress-update
// events, in publication order.
func (r *Recorder) Percentages() []int {
	var out []int
	for _, p := range r.Events() {
		if payload, ok := p.Event.Payload.(ProgressPayload); ok {
			out = append(out, payload.Progress)
		}
	}
	return out
}

// Count returns how many events with the given name were recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, p := range r.Events() {
		if p.Event.Name == name {
			n++
		}
	}
	return n
}

// MultiPublisher fans an event out to several publishers. It returns the
// first error but always publishes to all of them.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, channel string, event Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, channel, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ Publisher = (*Recorder)(nil)
	_ Publisher = MultiPublisher(nil)
)
