package driftwatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
)

// ReportReason is why a report is being sent
type ReportReason int

const (
	_ ReportReason = iota
	// AlertRate means the flagged anomaly rate tripped the alert rule
	AlertRate
	// StreamEnd is the end-of-stream summary
	StreamEnd
)

func (r ReportReason) String() string {
	switch r {
	case AlertRate:
		return "alert_rate"
	case StreamEnd:
		return "stream_end"
	default:
		return "unknown"
	}
}

// AlertReport is the JSON document delivered to the configured webhook
type AlertReport struct {
	ID        string    `json:"id"`
	Hostname  string    `json:"hostname"`
	Reason    string    `json:"reason"`
	Flagged   []Flag    `json:"flagged,omitempty"`
	Window    []float64 `json:"window"`
	Mean      float64   `json:"mean"`
	Variance  float64   `json:"variance"`
	Samples   int       `json:"samples"`
	Anomalies int       `json:"anomalies"`
	CreatedAt int64     `json:"created_at"`
}

// ReportSender is an interface for sending reports
type ReportSender interface {
	Send(m *Monitor, reason ReportReason)
	Wait() error
}

// Report is a wrapper for delivering an AlertReport to the configured endpoint
type Report struct {
	sender sender
}

// sender is an interface for creating and sending a report in the background
type sender interface {
	create(m *Monitor, reason ReportReason) *AlertReport
	sendBackground(report *AlertReport, result chan error, cancel chan bool)
	wait()
}

// NewReport returns a Report that posts JSON to the webhook configured in cfg.
// With no host configured, Send becomes a no-op.
func NewReport(cfg *Config, errors ErrorReporter) *Report {
	scheme := "https"
	if cfg.Insecure {
		scheme = "http"
	}
	var url string
	if cfg.Host != "" {
		url = fmt.Sprintf("%s://%s/report", scheme, net.JoinHostPort(cfg.Host, cfg.Port))
	}
	return &Report{
		sender: &senderService{
			url:    url,
			client: &http.Client{Timeout: 30 * time.Second},
			errors: errors,
		},
	}
}

// senderService implements the sender interface to post reports in the background
type senderService struct {
	url    string
	client *http.Client
	errors ErrorReporter
	wg     sync.WaitGroup
}

// create prepares a new report based on the current state of the monitor.
// Callers hold the monitor mutex.
func (s *senderService) create(m *Monitor, reason ReportReason) *AlertReport {
	hostname, _ := os.Hostname()
	return &AlertReport{
		ID:        m.Config.ID,
		Hostname:  hostname,
		Reason:    reason.String(),
		Flagged:   append([]Flag{}, m.Flagged...),
		Window:    m.history.Values(),
		Mean:      m.det.Mean(),
		Variance:  m.det.Variance(),
		Samples:   m.samplesTotal.Value(),
		Anomalies: m.anomaliesTotal.Value(),
		CreatedAt: time.Now().Unix(),
	}
}

// Send will deliver a report based on the current state of the monitor.  This
// is safe to call in a go routine to send in the background.  Delivery is
// retried with exponential backoff until it succeeds or the notify timeout
// elapses.
func (r *Report) Send(m *Monitor, reason ReportReason) {
	if m.Config.Host == "" {
		return
	}

	m.mutex.Lock()
	report := r.sender.create(m, reason)
	m.mutex.Unlock()

	result := make(chan error, 1)
	cancel := make(chan bool, 1)
	timeout := time.After(m.Config.NotifyTimeout)

	closeChannels := func() {
		close(result)
		close(cancel)
	}

	cb := func() {}
	switch reason {
	case AlertRate:
		go r.sender.sendBackground(report, result, cancel)
		cb = func() {
			// flagged anomalies were delivered, start counting fresh
			m.mutex.Lock()
			m.Flagged = []Flag{}
			m.mutex.Unlock()
		}
	case StreamEnd:
		go r.sender.sendBackground(report, result, cancel)
	default:
		closeChannels()
		return
	}

	select {
	case err := <-result:
		switch {
		case err == nil:
			cb()
		default:
			m.errors.ReportError(err)
		}
	case <-timeout:
		cancel <- true
		m.errors.ReportError(fmt.Errorf("timeout on background report send: msg=%+v", report))
	}
	closeChannels()
}

// Wait will block until all reports have finished sending in the background.
// This is typically called at the top level to prevent the client from exiting
// with reports still in flight.  See Monitor.Wait().
func (r *Report) Wait() error {
	r.sender.wait()
	return nil
}

func (s *senderService) wait() {
	s.wg.Wait()
}

// sendBackground posts the report, retrying with exponential backoff until the
// call succeeds or a cancel is received from the parent.
func (s *senderService) sendBackground(report *AlertReport, result chan error, cancel chan bool) {
	if report == nil {
		result <- fmt.Errorf("no report created")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	body, err := json.Marshal(report)
	if err != nil {
		result <- err
		return
	}

	send := func() error {
		resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("report endpoint returned status %d", resp.StatusCode)
		}
		return nil
	}
	select {
	case result <- backoff.Retry(send, backoff.NewExponentialBackOff()):
	case <-cancel:
	}
}
