package driftwatch

import (
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/go-yaml/yaml"
	"github.com/stretchr/testify/assert"
)

func TestParseFlags(t *testing.T) {
	tt := []struct {
		Name     string
		Cmdline  string
		Expected []ConfigOption
		Error    bool
	}{
		{Name: "id", Cmdline: "--id test", Expected: []ConfigOption{ID("test")}},
		{Name: "alpha", Cmdline: "--alpha 0.25", Expected: []ConfigOption{Alpha("0.25")}},
		{Name: "threshold", Cmdline: "--threshold 3.0", Expected: []ConfigOption{Threshold("3.0")}},
		{Name: "freeze-baseline", Cmdline: "--freeze-baseline", Expected: []ConfigOption{FreezeBaseline()}},
		{Name: "stdin", Cmdline: "--stdin", Expected: []ConfigOption{Stdin()}},
		{Name: "interval", Cmdline: "--interval 250ms", Expected: []ConfigOption{Interval("250ms")}},
		{Name: "duration", Cmdline: "--duration 2m", Expected: []ConfigOption{Duration("2m")}},
		{Name: "pattern", Cmdline: "--pattern 10,0.05,2", Expected: []ConfigOption{Pattern("10,0.05,2")}},
		{Name: "spike-every", Cmdline: "--spike-every 30", Expected: []ConfigOption{SpikeEvery("30")}},
		{Name: "window", Cmdline: "--window 50", Expected: []ConfigOption{WindowSize(50)}},
		{Name: "alert-quantity", Cmdline: "--alert-quantity 5", Expected: []ConfigOption{AlertQuantity("5")}},
		{Name: "alert-period", Cmdline: "--alert-period 1h", Expected: []ConfigOption{AlertPeriod("1h")}},
		{Name: "host", Cmdline: "--host localhost:8080", Expected: []ConfigOption{Host("localhost:8080")}},
		{Name: "notify-timeout", Cmdline: "--notify-timeout 10m", Expected: []ConfigOption{NotifyTimeout("10m")}},
		{Name: "insecure", Cmdline: "--insecure", Expected: []ConfigOption{InsecureReports()}},
		{Name: "metrics-addr", Cmdline: "--metrics-addr :9090", Expected: []ConfigOption{MetricsAddr(":9090")}},
		{Name: "verbose", Cmdline: "--verbose", Expected: []ConfigOption{Verbose()}},
		{Name: "no-error-reports", Cmdline: "--no-error-reports", Expected: []ConfigOption{NoErrorReports()}},
		{Name: "multiple flags", Cmdline: "--id test --alpha 0.5 --threshold 3", Expected: []ConfigOption{ID("test"), Alpha("0.5"), Threshold("3")}},
		{Name: "error on unknown flag", Cmdline: "--does-not-exist", Expected: []ConfigOption{}, Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			pf := createFlagSet()
			options, err := parse(strings.Split(tc.Cmdline, " "), pf)
			if tc.Error {
				assert.Error(t, err)
			} else {
				expected, received := createComparisonConfigs(tc.Expected, options)
				assert.Equal(t, expected, received)
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	tt := []struct {
		Name     string
		Yaml     map[string]interface{}
		Expected []ConfigOption
		Error    bool
	}{
		{Name: "id", Yaml: map[string]interface{}{"id": "test"}, Expected: []ConfigOption{ID("test")}},
		{Name: "alpha", Yaml: map[string]interface{}{"alpha": 0.25}, Expected: []ConfigOption{Alpha("0.25")}},
		{Name: "threshold", Yaml: map[string]interface{}{"threshold": 3}, Expected: []ConfigOption{Threshold("3")}},
		{Name: "freeze-baseline", Yaml: map[string]interface{}{"freeze-baseline": true}, Expected: []ConfigOption{FreezeBaseline()}},
		{Name: "freeze-baseline false is ignored", Yaml: map[string]interface{}{"freeze-baseline": false}, Expected: []ConfigOption{}},
		{Name: "stdin", Yaml: map[string]interface{}{"stdin": true}, Expected: []ConfigOption{Stdin()}},
		{Name: "interval", Yaml: map[string]interface{}{"interval": "250ms"}, Expected: []ConfigOption{Interval("250ms")}},
		{Name: "pattern", Yaml: map[string]interface{}{"pattern": "10,0.05,2"}, Expected: []ConfigOption{Pattern("10,0.05,2")}},
		{Name: "alert-quantity", Yaml: map[string]interface{}{"alert-quantity": 5}, Expected: []ConfigOption{AlertQuantity("5")}},
		{Name: "alert-period", Yaml: map[string]interface{}{"alert-period": "1h"}, Expected: []ConfigOption{AlertPeriod("1h")}},
		{Name: "host", Yaml: map[string]interface{}{"host": "localhost:8080"}, Expected: []ConfigOption{Host("localhost:8080")}},
		{Name: "error on unknown key", Yaml: map[string]interface{}{"does-not-exist": "test"}, Expected: []ConfigOption{}, Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			f, err := ioutil.TempFile("", "dwcfg")
			if err != nil {
				t.Fatalf("unexpected error creating temp config file: %s", err)
			}
			defer os.Remove(f.Name())

			y, err := yaml.Marshal(tc.Yaml)
			if err != nil {
				t.Fatalf("unexpected error marshaling YAML: %s", err)
			}
			if _, err := f.Write(y); err != nil {
				t.Fatalf("unexpected error writing to file: %s", err)
			}
			if err := f.Close(); err != nil {
				t.Fatalf("unexpected error closing file: %s", err)
			}

			pf := createFlagSet()
			options, err := parse([]string{"-c", f.Name()}, pf)
			if tc.Error {
				assert.Error(t, err)
			} else {
				expected, received := createComparisonConfigs(tc.Expected, options)
				assert.Equal(t, expected, received)
				assert.NoError(t, err)
			}
		})
	}
}

func createComparisonConfigs(expected []ConfigOption, received []ConfigOption) (Config, Config) {
	expectedConfig := Config{}
	for _, eo := range expected {
		eo(&expectedConfig)
	}
	receivedConfig := Config{}
	for _, ro := range received {
		ro(&receivedConfig)
	}
	return expectedConfig, receivedConfig
}
