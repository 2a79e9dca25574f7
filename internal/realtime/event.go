// Package realtime pushes change notifications to connected collaborators.
//
// Delivery is best effort and at most once: events are queued after the write
// commits, dropped when a queue or subscriber buffer is full, and never replayed.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind names an event on the wire.
type Kind string

const (
	ProjectCreated Kind = "project-created"
	ProjectUpdated Kind = "project-updated"
	ProjectDeleted Kind = "project-deleted"
	MemberAdded    Kind = "member-added"
	MemberRemoved  Kind = "member-removed"
	TaskCreated    Kind = "task-created"
	TaskUpdated    Kind = "task-updated"
	TaskDeleted    Kind = "task-deleted"
	CommentAdded   Kind = "comment-added"
)

// Broadcast is the channel value for events sent to every subscriber.
const Broadcast = ""

// Event is one change notification. An empty Channel means broadcast.
type Event struct {
	Kind       Kind            `json:"kind"`
	Channel    string          `json:"channel,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// IsBroadcast reports whether the event goes to every subscriber.
func (e Event) IsBroadcast() bool {
	return e.Channel == Broadcast
}

// NewEvent encodes payload and stamps the event.
func NewEvent(kind Kind, channel string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: kind, Channel: channel, Payload: data, OccurredAt: time.Now().UTC()}, nil
}

// ProjectChannel is the channel name collaborators of a project join.
func ProjectChannel(projectID uuid.UUID) string {
	return projectID.String()
}

// Publisher is what aggregates see. Publish never blocks on delivery and never
// reports failure to the caller.
type Publisher interface {
	Publish(ctx context.Context, kind Kind, channel string, payload interface{})
}

// Sink receives queued events, in order, from a Dispatcher.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// Logger is the subset of echo/gommon logging the fanout uses.
type Logger interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Discard is a Publisher that drops everything; useful for tools and tests.
type Discard struct{}

// Publish does nothing.
func (Discard) Publish(context.Context, Kind, string, interface{}) {}
