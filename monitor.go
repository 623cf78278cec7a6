// Package driftwatch monitors a stream of numeric observations for
// statistical anomalies.  A monitor feeds each sample through an adaptive
// EWMA z-score detector, publishes verdicts on an event bus, and sends an
// alert report when flagged anomalies exceed the configured rate.
package driftwatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/driftwatch/driftwatch/pkg/detector"
	"github.com/driftwatch/driftwatch/pkg/eventbus"
	"github.com/driftwatch/driftwatch/pkg/fsm"
	"github.com/driftwatch/driftwatch/pkg/metric"
	"github.com/driftwatch/driftwatch/pkg/stream"
)

const (
	// Clear is the alarm state while the anomaly rate is within bounds
	Clear = fsm.State("clear")
	// Alerting is the alarm state after an alert report has been triggered
	Alerting = fsm.State("alerting")
)

const (
	// VerdictEvent carries an Observation for every accepted sample
	VerdictEvent = eventbus.EventType("verdict")
	// AlertEvent is published when the flagged anomaly rate trips the alert rule
	AlertEvent = eventbus.EventType("alert")
)

// AlertTopic carries only alert events for subscribers that do not want
// per-sample traffic
const AlertTopic = eventbus.Topic("alerts")

// Observation pairs a raw sample with the verdict the detector returned for it
type Observation struct {
	Value   float64
	Verdict detector.Verdict
}

// Flag records a single sample the detector classified as anomalous
type Flag struct {
	Value  float64   `json:"value"`
	ZScore float64   `json:"z_score"`
	Time   time.Time `json:"time"`
}

// Monitor owns one detector and the stream feeding it.  It tracks the recent
// window of samples, counts anomalies, and applies the alert-rate rule.
type Monitor struct {
	Config  *Config
	Flagged []Flag

	det            *detector.Detector
	bus            *eventbus.EventBus
	history        *metric.Series
	samplesTotal   *metric.Counter
	anomaliesTotal *metric.Counter
	windowed       *metric.WindowedCounter
	alarm          *fsm.Machine
	lastFlagged    time.Time

	report   ReportSender
	errors   ErrorReporter
	exporter *Exporter
	log      *log.Entry
	in       io.Reader

	mutex sync.Mutex
}

// New builds a Monitor from configuration options
func New(opts ...ConfigOption) (*Monitor, []error) {
	cfg, errs := NewConfig("", opts...)
	if len(errs) > 0 {
		return nil, errs
	}

	det, err := newDetector(cfg)
	if err != nil {
		return nil, []error{err}
	}

	history, err := metric.NewSeries(cfg.WindowSize, metric.WithName(cfg.ID, map[string]string{
		"alpha":     fmt.Sprintf("%g", cfg.Alpha),
		"threshold": fmt.Sprintf("%g", cfg.Threshold),
	}))
	if err != nil {
		return nil, []error{err}
	}

	alarm, err := fsm.NewMachine(Clear, fsm.WithTransitions(
		fsm.T(Clear, Alerting),
		fsm.T(Alerting, Clear),
	))
	if err != nil {
		return nil, []error{err}
	}

	m := &Monitor{
		Config:         cfg,
		det:            det,
		bus:            eventbus.New(),
		history:        history,
		samplesTotal:   metric.NewCounter(),
		anomaliesTotal: metric.NewCounter(),
		windowed:       metric.NewWindowedCounter(cfg.AlertPeriod),
		alarm:          alarm,
		report:         NewReport(cfg, errorService{}),
		errors:         errorService{},
		log:            log.WithField("monitor", cfg.ID),
		in:             os.Stdin,
	}
	if cfg.MetricsAddr != "" {
		m.exporter = NewExporter(cfg.ID)
	}
	return m, nil
}

func newDetector(cfg *Config) (*detector.Detector, error) {
	var opts []detector.Option
	if cfg.FreezeBaseline {
		opts = append(opts, detector.WithFrozenBaseline())
	}
	det, err := detector.New(cfg.Alpha, cfg.Threshold, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid detector configuration")
	}
	return det, nil
}

// Bus returns the monitor's event bus so additional handlers can subscribe
// before Run is called
func (m *Monitor) Bus() *eventbus.EventBus {
	return m.bus
}

// Run consumes the configured sample source until it is exhausted or the
// context is cancelled, then sends the end-of-stream report and shuts down the
// event bus.  Per-sample errors are logged and skipped so one bad sample does
// not abort the run.
func (m *Monitor) Run(ctx context.Context) error {
	samples, err := m.source(ctx)
	if err != nil {
		return err
	}

	if m.exporter != nil {
		m.exporter.Subscribe(m.bus)
		go func() {
			if err := m.exporter.Serve(m.Config.MetricsAddr); err != nil {
				m.log.WithError(err).Error("metrics endpoint failed")
				m.errors.ReportError(err)
			}
		}()
	}

	m.log.WithFields(log.Fields{
		"alpha":     m.Config.Alpha,
		"threshold": m.Config.Threshold,
	}).Info("watching stream")

	for value := range samples {
		m.observe(value)
	}

	m.log.WithFields(log.Fields{
		"samples":   m.samplesTotal.Value(),
		"anomalies": m.anomaliesTotal.Value(),
		"mean":      m.det.Mean(),
		"variance":  m.det.Variance(),
	}).Info("stream ended")
	m.report.Send(m, StreamEnd)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.bus.Shutdown(shutdownCtx); err != nil {
		m.log.WithError(err).Warn("event bus did not shut down cleanly")
	}
	return nil
}

// Wait blocks until any in-flight alert reports have been delivered
func (m *Monitor) Wait() error {
	return m.report.Wait()
}

func (m *Monitor) source(ctx context.Context) (<-chan float64, error) {
	switch {
	case m.Config.Stdin:
		return stream.NewReader(m.in).Samples(ctx), nil
	default:
		sim, err := stream.NewSimulator(m.Config.Interval, m.Config.Duration,
			stream.WithPattern(m.Config.Base, m.Config.Trend, m.Config.NoiseStdev),
			stream.WithSpikes(m.Config.SpikeEvery, m.Config.SpikeMean, m.Config.SpikeStdev),
		)
		if err != nil {
			return nil, errors.Wrap(err, "could not create stream simulator")
		}
		return sim.Run(ctx), nil
	}
}

// observe runs one sample through the detector and applies the alert policy
func (m *Monitor) observe(value float64) {
	verdict, err := m.det.Observe(value)
	if err != nil {
		// a rejected sample leaves the detector unchanged, skip it and continue
		m.log.WithError(err).WithField("value", value).Warn("sample rejected")
		return
	}

	now := time.Now().UTC()
	m.mutex.Lock()
	m.history.Record(value)
	m.samplesTotal.Add(1)
	if verdict.IsAnomaly {
		m.anomaliesTotal.Add(1)
		m.windowed.Add(1)
		m.Flagged = append(m.Flagged, Flag{Value: value, ZScore: verdict.ZScore, Time: now})
		m.lastFlagged = now
	}
	m.mutex.Unlock()

	m.bus.Dispatch(eventbus.NewEvent(VerdictEvent, Observation{Value: value, Verdict: verdict}))

	ctx := m.log.WithFields(log.Fields{
		"value":    value,
		"z":        verdict.ZScore,
		"mean":     verdict.Mean,
		"variance": verdict.Variance,
	})
	switch {
	case verdict.IsAnomaly:
		ctx.Warn("anomaly detected")
	case m.Config.Verbose:
		ctx.Debug("sample ok")
	}

	m.applyAlertPolicy(verdict, now)
}

func (m *Monitor) applyAlertPolicy(verdict detector.Verdict, now time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch m.alarm.State() {
	case Clear:
		if verdict.IsAnomaly && alertRateExceeded(m.Flagged, m.Config.AlertQuantity, m.Config.AlertPeriod) {
			if err := m.alarm.Transition(Alerting); err != nil {
				m.errors.ReportError(err)
				return
			}
			m.bus.Dispatch(eventbus.NewEvent(AlertEvent, append([]Flag{}, m.Flagged...)), AlertTopic)
			m.log.WithFields(log.Fields{
				"flagged":   len(m.Flagged),
				"in_window": m.windowed.Value(),
			}).Error("anomaly rate exceeded, sending alert")
			go m.report.Send(m, AlertRate)
		}
	case Alerting:
		// re-arm once a full alert period passes without a flagged anomaly
		if now.Sub(m.lastFlagged) >= m.Config.AlertPeriod {
			if err := m.alarm.Transition(Clear); err != nil {
				m.errors.ReportError(err)
				return
			}
			m.log.Info("anomaly rate recovered, alerting re-armed")
		}
	}
}

// AlarmState returns Clear or Alerting
func (m *Monitor) AlarmState() fsm.State {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.alarm.State()
}

// alertRateExceeded determines if the number of flagged anomalies within the
// period reaches the configured quantity.  A zero period counts all flags.
func alertRateExceeded(flagged []Flag, quantity int, period time.Duration) bool {
	if quantity <= 0 {
		return false
	}
	var inPeriod int
	now := time.Now().UTC()

	switch {
	case period > 0:
		for _, f := range flagged {
			if now.Sub(f.Time) <= period {
				inPeriod++
			}
		}
	default:
		inPeriod = len(flagged)
	}

	return inPeriod >= quantity
}
