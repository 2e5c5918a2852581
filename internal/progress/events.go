package progress

import (
	"context"
	"encoding/json"
)

// Event names.
const (
	EventProgressUpdate = "progress-update"
	EventFailed         = "failed"
)

// CompletePercent marks the final progress event of a successful job.
const CompletePercent = 100

// Event is a named notification with a JSON-serializable payload.
type Event struct {
	Name    string
	Payload any
}

// Publisher delivers events to the subscribers of a channel. Publishing to a
// channel without subscribers is not an error.
type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// ProgressPayload is the payload of a progress-update event. BulletPoints is
// only meaningful on the completion event.
type ProgressPayload struct {
	Progress     int
	BulletPoints []string
}

// MarshalJSON always includes bulletpoints on the completion event, as an
// empty array when there are none.
func (p ProgressPayload) MarshalJSON() ([]byte, error) {
	type wire struct {
		Progress     int      `json:"progress"`
		BulletPoints []string `json:"bulletpoints,omitempty"`
	}
	if p.Progress < CompletePercent {
		return json.Marshal(wire{Progress: p.Progress, BulletPoints: p.BulletPoints})
	}

	bullets := p.BulletPoints
	if bullets == nil {
		bullets = []string{}
	}
	return json.Marshal(struct {
		Progress     int      `json:"progress"`
		BulletPoints []string `json:"bulletpoints"`
	}{p.Progress, bullets})
}

// FailedPayload is the payload of a failed event.
type FailedPayload struct {
	Message string `json:"message"`
}

// ProgressUpdate builds a progress-update event.
func ProgressUpdate(percent int, bulletPoints []string) Event {
	return Event{
		Name:    EventProgressUpdate,
		Payload: ProgressPayload{Progress: percent, BulletPoints: bulletPoints},
	}
}

// Failed builds a failed event carrying a human-readable message.
func Failed(message string) Event {
	return Event{
		Name:    EventFailed,
		Payload: FailedPayload{Message: message},
	}
}

// Message is the wire form of an event sent to remote subscribers.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Message returns the wire form of e.
func (e Event) Message() Message {
	return Message{Event: e.Name, Data: e.Payload}
}
