package driftwatch

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds the full configuration for a monitored stream: the detector
// parameters, the sample source, and the alerting policy.
type Config struct {
	ID             string
	Alpha          float64
	Threshold      float64
	FreezeBaseline bool

	// sample source
	Stdin    bool
	Interval time.Duration
	Duration time.Duration

	// simulator pattern
	Base       float64
	Trend      float64
	NoiseStdev float64
	SpikeEvery int
	SpikeMean  float64
	SpikeStdev float64

	// alerting
	WindowSize    int
	AlertQuantity int
	AlertPeriod   time.Duration
	Host          string
	Port          string
	NotifyTimeout time.Duration
	Insecure      bool

	MetricsAddr string
	Verbose     bool
}

// ConfigOption applies a single configuration value, usually parsed from a
// command line flag or a config file entry
type ConfigOption func(c *Config) error

// NewConfig builds a configuration from defaults plus the applied options.
// The defaults match the reference stream: alpha 0.1, threshold 2.5, a 60s
// simulated stream sampled every 500ms, alerts after 3 flagged anomalies in
// any 30s period.
func NewConfig(id string, options ...ConfigOption) (*Config, []error) {
	c := &Config{
		ID:            id,
		Alpha:         0.1,
		Threshold:     2.5,
		Interval:      500 * time.Millisecond,
		Duration:      60 * time.Second,
		Base:          10.0,
		Trend:         0.05,
		NoiseStdev:    2.0,
		SpikeEvery:    30,
		SpikeMean:     15.0,
		SpikeStdev:    3.0,
		WindowSize:    100,
		AlertQuantity: 3,
		AlertPeriod:   30 * time.Second,
		Port:          "443",
		NotifyTimeout: 1 * time.Hour,
	}

	var errors []error
	for _, option := range options {
		if err := option(c); err != nil {
			errors = append(errors, err)
		}
	}
	if c.ID == "" {
		errors = append(errors, fmt.Errorf("monitor requires an identifier, set one with --id"))
	}
	if len(errors) > 0 {
		return nil, errors
	}
	return c, nil
}

// ID sets the identifier for this monitor
func ID(id string) ConfigOption {
	return func(c *Config) error {
		c.ID = id
		return nil
	}
}

// Alpha sets the detector smoothing factor
func Alpha(value string) ConfigOption {
	return func(c *Config) error {
		a, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("could not convert alpha to a number: %s", value)
		}
		c.Alpha = a
		return nil
	}
}

// Threshold sets the detector z-score threshold
func Threshold(value string) ConfigOption {
	return func(c *Config) error {
		k, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("could not convert threshold to a number: %s", value)
		}
		c.Threshold = k
		return nil
	}
}

// FreezeBaseline stops flagged anomalies from updating the detector baseline
func FreezeBaseline() ConfigOption {
	return func(c *Config) error {
		c.FreezeBaseline = true
		return nil
	}
}

// Stdin sources samples from newline-delimited numbers on standard input
// instead of the simulator
func Stdin() ConfigOption {
	return func(c *Config) error {
		c.Stdin = true
		return nil
	}
}

// Interval sets the time between simulated samples
func Interval(value string) ConfigOption {
	return func(c *Config) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("could not convert interval to a duration: %s", value)
		}
		c.Interval = d
		return nil
	}
}

// Duration sets how long the simulated stream runs.  Zero runs until interrupted.
func Duration(value string) ConfigOption {
	return func(c *Config) error {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("could not convert duration to a duration: %s", value)
		}
		c.Duration = d
		return nil
	}
}

// Pattern sets the simulator base level, per-sample trend, and noise standard
// deviation as comma-separated values, e.g. 10,0.05,2
func Pattern(value string) ConfigOption {
	return func(c *Config) error {
		var base, trend, noise float64
		if n, err := fmt.Sscanf(value, "%f,%f,%f", &base, &trend, &noise); n != 3 || err != nil {
			return fmt.Errorf("pattern should be base,trend,noise in %s", value)
		}
		c.Base = base
		c.Trend = trend
		c.NoiseStdev = noise
		return nil
	}
}

// SpikeEvery injects a simulated spike anomaly every n samples, 0 to disable
func SpikeEvery(value string) ConfigOption {
	return func(c *Config) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("could not convert spike-every to an integer: %s", value)
		}
		c.SpikeEvery = n
		return nil
	}
}

// WindowSize sets how many recent samples are kept for alert reports
func WindowSize(h int) ConfigOption {
	return func(c *Config) error {
		if h <= 0 {
			return fmt.Errorf("window size must be at least 1, got %d", h)
		}
		c.WindowSize = h
		return nil
	}
}

// AlertQuantity sets how many flagged anomalies within the alert period
// trigger an alert report
func AlertQuantity(value string) ConfigOption {
	return func(c *Config) error {
		qty, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("could not convert alert-quantity to an integer: %s", value)
		}
		c.AlertQuantity = qty
		return nil
	}
}

// AlertPeriod sets the sliding period over which flagged anomalies are counted
func AlertPeriod(value string) ConfigOption {
	return func(c *Config) error {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("could not convert alert-period to a duration: %s", value)
		}
		c.AlertPeriod = duration
		return nil
	}
}

// Host sets the endpoint that receives alert reports as host or host:port
func Host(value string) ConfigOption {
	return func(c *Config) error {
		host, port, err := splitHostPort(value)
		if err != nil {
			return err
		}
		c.Host = host
		if port != "" {
			c.Port = port
		}
		return nil
	}
}

// NotifyTimeout sets how long a report delivery is retried before giving up
func NotifyTimeout(value string) ConfigOption {
	return func(c *Config) error {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("could not convert notify-timeout to a duration: %s", value)
		}
		c.NotifyTimeout = duration
		return nil
	}
}

// InsecureReports sends alert reports over plain HTTP instead of HTTPS
func InsecureReports() ConfigOption {
	return func(c *Config) error {
		c.Insecure = true
		return nil
	}
}

// MetricsAddr exposes prometheus metrics on the given listen address
func MetricsAddr(addr string) ConfigOption {
	return func(c *Config) error {
		c.MetricsAddr = addr
		return nil
	}
}

// Verbose logs every verdict instead of only anomalies
func Verbose() ConfigOption {
	return func(c *Config) error {
		c.Verbose = true
		return nil
	}
}

func splitHostPort(value string) (string, string, error) {
	if value == "" {
		return "", "", fmt.Errorf("host must not be empty")
	}
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] == ':' {
			return value[:i], value[i+1:], nil
		}
	}
	return value, "", nil
}
