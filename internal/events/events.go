package events

import (
	"fmt"
	"time"
)

// EventType tags a progress event.
type EventType string

const (
	EventStatus    EventType = "status"
	EventItem      EventType = "item"
	EventSuccess   EventType = "success"
	EventError     EventType = "error"
	EventWarning   EventType = "warning"
	EventCancelled EventType = "cancelled"
	EventComplete  EventType = "complete"
)

// Event is the single progress message shape published by the reconciler and
// the sync driver and consumed by every transport.
type Event struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message,omitempty"`
	Progress int       `json:"progress,omitempty"` // 0-100
	Current  int       `json:"current,omitempty"`
	Total    int       `json:"total,omitempty"`
	Title    string    `json:"title,omitempty"`
	RunID    string    `json:"run_id,omitempty"`
	At       time.Time `json:"at"`
}

// String renders the event as a one-line human-readable summary.
func (e Event) String() string {
	switch e.Type {
	case EventItem:
		return fmt.Sprintf("[%d/%d] %s", e.Current, e.Total, e.Message)
	case EventSuccess:
		return "ok: " + e.Message
	case EventError:
		return "error: " + e.Message
	case EventWarning:
		return "warning: " + e.Message
	case EventCancelled:
		return "cancelled: " + e.Message
	case EventComplete:
		return "complete: " + e.Message
	default:
		if e.Progress > 0 {
			return fmt.Sprintf("%s (%d%%)", e.Message, e.Progress)
		}
		return e.Message
	}
}
