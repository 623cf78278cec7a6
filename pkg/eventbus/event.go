package eventbus

import "time"

// EventType identifies what kind of event is being passed on the bus so
// handlers can decide whether processing is required
type EventType string

// Event is passed on the bus to every subscriber on the topic
type Event struct {
	Type EventType
	At   time.Time
	Data interface{}
}

// NewEvent returns an event stamped with the current time
func NewEvent(t EventType, data interface{}) Event {
	return Event{Type: t, At: time.Now().UTC(), Data: data}
}
