package metric

import (
	"time"
)

var _ CounterI = &Counter{}
var _ CounterI = &WindowedCounter{}

// CounterI is the basic interface for a counter that returns its current value and adds new observations
type CounterI interface {
	Value() int
	Add(i uint)
	Reset()
}

// Counter is a monotonically increasing counter
type Counter struct {
	start    time.Time
	duration time.Duration
	value    int
}

// NewCounter returns a new monotonically increasing counter
func NewCounter() *Counter {
	return &Counter{}
}

// Value returns the current value of the counter
func (c *Counter) Value() int {
	return c.value
}

// Add will increase the current count by i
func (c *Counter) Add(i uint) {
	c.value += int(i)
}

// Reset sets the value of the counter to zero
func (c *Counter) Reset() {
	c.value = 0
}

// Start returns the time this counter was started, which may be the time.Time null value for
// non-windowed counters.  Useful when operating on the history returned by a windowed counter.
func (c Counter) Start() time.Time {
	return c.start
}

// Duration returns the duration of the counter, which will be zero for non-windowed counters
func (c Counter) Duration() time.Duration {
	return c.duration
}

// WindowedCounter keeps counts within a set duration.  A new counter is allocated after the
// duration has elapsed and the history of counts in each interval is retained.  The monitor
// uses one to track observations seen and anomalies flagged per window.  Note that windows
// with no observations leave no zero-valued entry in the history, so there may be gaps in
// the timeline.
type WindowedCounter struct {
	hist    []Counter
	current *Counter
}

// NewWindowedCounter creates a new windowed counter with a window size of duration
func NewWindowedCounter(duration time.Duration) *WindowedCounter {
	return &WindowedCounter{
		current: &Counter{start: time.Now().UTC(), duration: duration},
	}
}

// Value returns the current value of the counter in the most recent window
func (c *WindowedCounter) Value() int {
	now := time.Now().UTC()
	end := c.current.start.Add(c.current.duration)

	// a closed window counts from zero again
	switch {
	case now.After(end) && c.current.duration > 0:
		return 0
	default:
		return c.current.Value()
	}
}

// Add will increment the counter value within the current window by i, rolling the
// window first if it has closed
func (c *WindowedCounter) Add(i uint) {
	now := time.Now().UTC()
	end := c.current.start.Add(c.current.duration)
	switch {
	case now.Before(end) || c.current.duration == 0:
		c.current.Add(i)
	default:
		c.hist = append(c.hist, *c.current)
		c.current = &Counter{start: time.Now().UTC(), duration: c.current.duration}
		c.current.Add(i)
	}
}

// History will return the history of counters, not including the current window if it is still open
func (c *WindowedCounter) History() []Counter {
	now := time.Now().UTC()
	end := c.current.start.Add(c.current.duration)
	switch {
	case now.After(end) || c.current.duration == 0:
		return append(c.hist, *c.current)
	default:
		return c.hist
	}
}

// HistoryInclusive will return the history of all counters, including the current window
// even if it is still open
func (c *WindowedCounter) HistoryInclusive() []Counter {
	return append(c.hist, *c.current)
}

// Reset will clear the history and start a new zero-valued counter with the same window duration
func (c *WindowedCounter) Reset() {
	c.hist = []Counter{}
	c.current = &Counter{start: time.Now().UTC(), duration: c.current.duration}
}
