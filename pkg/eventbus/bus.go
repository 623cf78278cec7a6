// Package eventbus implements the pub/sub bus that carries verdicts and
// alerts from the monitor to its handlers.
package eventbus

import (
	"context"
	"sync"
)

// Topic creates a group of subscribers that only receive events published to that channel
type Topic string

const (
	defaultTopic Topic = "__default__"
)

// EventBus dispatches events to all subscribers on one or more topics.  Subscribers
// without a topic join a default channel that receives every event published on any
// topic, so they can filter on EventType instead of configuring topics.
type EventBus struct {
	subscribers map[Topic][]chan Event
	done        []chan struct{}
	mutex       sync.RWMutex
}

// New returns a new event bus
func New() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic][]chan Event),
	}
}

// Subscribe registers a subscriber to zero or more topics.  With no topic, the
// subscriber joins the default channel and receives all events.
//
// The first returned channel carries events and is closed when the bus shuts
// down; subscribers should treat the close as the shutdown signal.  After
// draining any in-flight work, the subscriber closes the second (done) channel
// to signal that it has finished.
func (e *EventBus) Subscribe(topics ...Topic) (chan Event, chan struct{}) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	c := make(chan Event, 1)
	done := make(chan struct{})
	e.done = append(e.done, done)

	if len(topics) == 0 {
		topics = []Topic{defaultTopic}
	}

	for _, topic := range topics {
		e.subscribers[topic] = append(e.subscribers[topic], c)
	}
	return c, done
}

// Unsubscribe removes the subscriber from receiving any more events and closes its channels
func (e *EventBus) Unsubscribe(c chan Event, done chan struct{}) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	for topic, chs := range e.subscribers {
		for i, ch := range chs {
			if ch == c {
				close(ch)
				e.subscribers[topic] = append(e.subscribers[topic][0:i], e.subscribers[topic][i+1:]...)
			}
		}
	}

	for i, d := range e.done {
		if d == done {
			close(d)
			e.done = append(e.done[0:i], e.done[i+1:]...)
		}
	}
}

// Dispatch sends the event to zero or more topics.  Every event is also
// broadcast to default topic subscribers.  Events on topics without
// subscribers are dropped silently.
func (e *EventBus) Dispatch(event Event, topics ...Topic) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	topics = append(topics, defaultTopic)

	for _, topic := range topics {
		channels, ok := e.subscribers[topic]
		if len(channels) == 0 || !ok {
			continue
		}

		// copy the channel list so delivery happens outside the lock
		chs := append([]chan Event{}, channels...)

		go func(event Event, chs []chan Event) {
			for _, ch := range chs {
				ch <- event
			}
		}(event, chs)
	}
}

// Shutdown closes all subscriber channels and blocks until every subscriber
// has closed its done channel or the context expires.  Returns
// ErrShutdownTimeout if subscribers did not all exit in time.
func (e *EventBus) Shutdown(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	done := make(chan struct{})
	go shutdownNotify(done, append([]chan struct{}{}, e.done...))

	for _, chs := range e.subscribers {
		for _, ch := range chs {
			close(ch)
		}
	}

	select {
	case <-ctx.Done():
		return ErrShutdownTimeout
	case <-done:
		return nil
	}
}

// shutdownNotify waits for every subscriber's done channel to close, then
// closes the notification channel
func shutdownNotify(done chan struct{}, all []chan struct{}) {
	var wg sync.WaitGroup
	for _, ch := range all {
		wg.Add(1)
		go func(c chan struct{}) {
			<-c
			wg.Done()
		}(ch)
	}
	wg.Wait()
	close(done)
}
