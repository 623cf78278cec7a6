// Package stream provides the sample sources the monitor consumes: a
// synthetic stream generator with injected anomalies and a reader for
// newline-delimited numeric input.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/driftwatch/driftwatch/pkg/rng"
)

// Simulator produces a synthetic stream consisting of a base level plus a slow
// linear trend and gaussian noise, with a spike anomaly injected on a fixed
// period.  It exists to exercise the detector end to end without a live data
// source.
type Simulator struct {
	base       float64
	trend      float64
	noise      rng.RNG
	spike      rng.RNG
	interval   time.Duration
	duration   time.Duration
	spikeEvery int
	n          int
}

// SimulatorOption configures a simulator during construction
type SimulatorOption func(s *Simulator) error

// NewSimulator returns a simulator with the default pattern: base level 10
// trending up at 0.05/sample with noise stdev 2, and a spike drawn from
// N(15, 3) added every 30th sample.
func NewSimulator(interval time.Duration, duration time.Duration, opts ...SimulatorOption) (*Simulator, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("simulator interval must be greater than zero")
	}
	s := &Simulator{
		base:       10.0,
		trend:      0.05,
		noise:      rng.NewNormalRNG(0.0, 2.0),
		spike:      rng.NewNormalRNG(15.0, 3.0),
		interval:   interval,
		duration:   duration,
		spikeEvery: 30,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithPattern sets the base level, per-sample trend, and noise standard deviation
func WithPattern(base float64, trend float64, noiseStdev float64) SimulatorOption {
	return func(s *Simulator) error {
		s.base = base
		s.trend = trend
		s.noise = rng.NewNormalRNG(0.0, noiseStdev)
		return nil
	}
}

// WithSpikes injects a spike drawn from N(mean, stdev) every n samples.  An n
// of zero disables spike injection.
func WithSpikes(every int, mean float64, stdev float64) SimulatorOption {
	return func(s *Simulator) error {
		if every < 0 {
			return fmt.Errorf("spike period must be >= 0, got %d", every)
		}
		s.spikeEvery = every
		s.spike = rng.NewNormalRNG(mean, stdev)
		return nil
	}
}

// WithNoise sets a custom noise source, mainly to seed it for reproducible streams
func WithNoise(r rng.RNG) SimulatorOption {
	return func(s *Simulator) error {
		s.noise = r
		return nil
	}
}

// Next returns the next sample in the stream without pacing
func (s *Simulator) Next() float64 {
	s.n++
	v := s.base + s.trend*float64(s.n) + s.noise.Rand()
	if s.spikeEvery > 0 && s.n%s.spikeEvery == 0 {
		v += s.spike.Rand()
	}
	return v
}

// Run produces samples on the returned channel, one every interval, until the
// configured duration elapses or the context is cancelled.  The channel is
// closed when the stream ends.
func (s *Simulator) Run(ctx context.Context) <-chan float64 {
	out := make(chan float64)
	go func() {
		defer close(out)
		tick := time.NewTicker(s.interval)
		defer tick.Stop()

		var deadline <-chan time.Time
		if s.duration > 0 {
			timer := time.NewTimer(s.duration)
			defer timer.Stop()
			deadline = timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-deadline:
				return
			case <-tick.C:
				select {
				case out <- s.Next():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
