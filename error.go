package driftwatch

import (
	"os"

	"github.com/stvp/rollbar"
)

// SuppressErrorReporting is a global flag to prevent the client from sending
// unhandled errors to Rollbar.  Reports are anonymous and consist only of a
// stack trace to identify the source of the problem.
var SuppressErrorReporting bool

// ErrorReporter batches unexpected client errors and sends them to an
// external crash reporting service
type ErrorReporter interface {
	ReportError(err error)
}

type errorService struct{}

func init() {
	switch env := os.Getenv("environment"); env {
	case "development":
		rollbar.Environment = "development"
	default:
		rollbar.Environment = "production"
	}
	rollbar.Token = os.Getenv("DRIFTWATCH_ROLLBAR_TOKEN")
	if rollbar.Token == "" {
		SuppressErrorReporting = true
	}
}

// ReportError will send the result of an unexpected error to Rollbar
func (e errorService) ReportError(err error) {
	if !SuppressErrorReporting {
		rollbar.Error(rollbar.ERR, err)
	}
}

// NoErrorReports disables crash reporting for this run
func NoErrorReports() ConfigOption {
	return func(c *Config) error {
		SuppressErrorReporting = true
		return nil
	}
}
