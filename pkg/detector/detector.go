// Package detector implements online anomaly detection for a stream of numeric
// observations.  A detector maintains an exponentially weighted estimate of the
// stream mean and variance and flags observations whose z-score against that
// estimate exceeds a fixed threshold.  It processes each observation exactly
// once in constant memory, so it is suitable for unbounded streams.
package detector

import (
	"fmt"
	"math"

	"github.com/driftwatch/driftwatch/pkg/fsm"
)

const (
	// Uninitialized is the state of a fresh detector before it has seen any observation
	Uninitialized = fsm.State("uninitialized")
	// Warmed is the state of a detector with a meaningful mean and variance estimate
	Warmed = fsm.State("warmed")
)

// Verdict is the result of observing a single value.  Mean and Variance are the
// detector's estimates after the observation has been absorbed.
type Verdict struct {
	IsAnomaly bool
	ZScore    float64
	Mean      float64
	Variance  float64
}

// Detector scores each observation against an exponentially weighted running
// estimate of the stream mean and variance.  It is not safe for concurrent use;
// each stream gets its own detector or the caller serializes access.
type Detector struct {
	alpha     float64
	threshold float64
	freeze    bool
	mean      float64
	variance  float64
	machine   *fsm.Machine
}

// Option configures a detector during construction
type Option func(d *Detector) error

// WithFrozenBaseline stops flagged anomalies from updating the mean and
// variance estimates.  By default every valid observation updates the baseline,
// so the detector re-converges after a regime shift but a flagged point
// immediately starts pulling the baseline toward it.  With a frozen baseline
// the estimates only track observations classified as normal.
func WithFrozenBaseline() Option {
	return func(d *Detector) error {
		d.freeze = true
		return nil
	}
}

// New returns a detector with smoothing factor alpha (0 < alpha <= 1) and
// z-score threshold (> 0).  Both are fixed for the life of the detector.
// Invalid parameters return an InvalidParameter error.
func New(alpha float64, threshold float64, opts ...Option) (*Detector, error) {
	if math.IsNaN(alpha) || alpha <= 0 || alpha > 1 {
		return nil, InvalidParameter{Msg: fmt.Sprintf("smoothing factor must satisfy 0 < alpha <= 1, got %f", alpha)}
	}
	if math.IsNaN(threshold) || threshold <= 0 {
		return nil, InvalidParameter{Msg: fmt.Sprintf("z-score threshold must be > 0, got %f", threshold)}
	}
	machine, err := fsm.NewMachine(Uninitialized, fsm.WithTransitions(
		fsm.T(Uninitialized, Warmed),
		fsm.T(Warmed, Warmed),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create detector state machine: %v", err)
	}
	d := &Detector{
		alpha:     alpha,
		threshold: threshold,
		machine:   machine,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Observe scores a single observation and absorbs it into the running
// estimates.  Non-finite values return an InvalidInput error and leave the
// detector unchanged, so a caller can skip a bad sample and continue the
// stream.  The first observation seeds the mean and is never anomalous.
func (d *Detector) Observe(value float64) (Verdict, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Verdict{}, InvalidInput{Msg: fmt.Sprintf("observation must be a finite number, got %f", value)}
	}

	if d.machine.State() == Uninitialized {
		d.mean = value
		d.variance = 0.0
		if err := d.machine.Transition(Warmed); err != nil {
			return Verdict{}, err
		}
		return Verdict{Mean: d.mean}, nil
	}

	// the observation is judged against the estimates from before it was seen
	deviation := value - d.mean
	stdev := math.Sqrt(d.variance)

	var z float64
	switch {
	case stdev > 0:
		z = deviation / stdev
	case deviation == 0:
		// perfectly constant stream continues
		z = 0.0
	case deviation > 0:
		z = math.Inf(1)
	default:
		z = math.Inf(-1)
	}
	isAnomaly := math.Abs(z) > d.threshold

	if !isAnomaly || !d.freeze {
		d.mean = d.alpha*value + (1.0-d.alpha)*d.mean
		d.variance = d.alpha*deviation*deviation + (1.0-d.alpha)*d.variance
	}

	return Verdict{
		IsAnomaly: isAnomaly,
		ZScore:    z,
		Mean:      d.mean,
		Variance:  d.variance,
	}, nil
}

// Mean returns the current exponentially weighted mean estimate
func (d *Detector) Mean() float64 {
	return d.mean
}

// Variance returns the current exponentially weighted variance estimate
func (d *Detector) Variance() float64 {
	return d.variance
}

// Threshold returns the z-score threshold the detector was constructed with
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// State returns Uninitialized until the first observation is recorded, then Warmed
func (d *Detector) State() fsm.State {
	return d.machine.State()
}
