// Package metric provides the primitives the monitor keeps per stream: a
// bounded history of recent observations, windowed counters for rate
// calculations, and metric names with attached metadata.
package metric

import (
	"fmt"
	"math"
)

// Series is a fixed-capacity ring buffer of observations.  Once full, new
// observations overwrite the oldest.  The monitor uses it to keep the recent
// window of stream values that accompanies an alert report.
type Series struct {
	name   Name
	count  int
	values []float64
}

// SeriesOption configures a series during construction
type SeriesOption func(s *Series) error

// NewSeries creates a new series with a capacity of cap
func NewSeries(cap int, opts ...SeriesOption) (*Series, error) {
	if cap <= 0 {
		return nil, fmt.Errorf("series must be initialized with a capacity >= 1")
	}

	s := &Series{
		values: make([]float64, cap),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithName sets the name of the series
func WithName(name string, md map[string]string) SeriesOption {
	return func(s *Series) error {
		if name == "" {
			return fmt.Errorf("series name must be the non-empty string")
		}
		s.name = NewName(name, md)
		return nil
	}
}

// WithValues initializes a series from an existing set of observations.  The
// number of observations does not have to be equal to the capacity.
func WithValues(values []float64) SeriesOption {
	return func(s *Series) error {
		for _, v := range values {
			s.Record(v)
		}
		return nil
	}
}

// Record adds a new observation to the series
func (s *Series) Record(o float64) {
	if len(s.values) == 0 {
		return
	}

	s.values[s.nextIndex()] = o
	s.count++
}

// Values returns a copy of the values currently held, in temporal order from
// oldest to most recent.  Before the buffer fills, only recorded observations
// are returned.
func (s *Series) Values() []float64 {
	switch {
	case s.count < len(s.values):
		out := make([]float64, s.count)
		copy(out, s.values[:s.count])
		return out
	default:
		out := make([]float64, 0, len(s.values))
		oldest := s.nextIndex()
		return append(append(out, s.values[oldest:]...), s.values[0:oldest]...)
	}
}

// nextIndex returns the index of the oldest observation to be overwritten by new data
func (s *Series) nextIndex() int {
	cap := len(s.values)
	if cap == 0 {
		return 0
	}
	return int(math.Mod(float64(s.count), float64(cap)))
}

// Count returns the total number of observations recorded over the life of the series
func (s *Series) Count() int {
	return s.count
}

// Capacity returns the maximum number of observations the series retains
func (s *Series) Capacity() int {
	return len(s.values)
}

// Name returns the name of the series and its associated metadata
func (s *Series) Name() string {
	return s.name.String()
}

// Reset discards all recorded observations while keeping the capacity and name
func (s *Series) Reset() {
	s.count = 0
	s.values = make([]float64, len(s.values))
}
