package driftwatch

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/spf13/pflag"
)

type options struct {
	options []ConfigOption
	err     error
}

// ParseCommandLine configures the monitor from command line options or from
// a YAML configuration file passed with the -c flag.  Returns a slice of
// functional options that can be applied to the configuration.
func ParseCommandLine() ([]ConfigOption, error) {
	pf := createFlagSet()
	return parse(os.Args[1:], pf)
}

func parse(args []string, pf *pflag.FlagSet) ([]ConfigOption, error) {
	options := options{}
	if err := pf.ParseAll(args, parseFlag(&options)); err != nil {
		return options.options, err
	}
	return options.options, options.err
}

func createFlagSet() *pflag.FlagSet {
	pf := pflag.NewFlagSet("driftwatch", pflag.ContinueOnError)
	pf.Usage = func() {
		fmt.Printf("Usage of driftwatch:\ndriftwatch -i <identifier> <options>\ndriftwatch -i <identifier> --stdin < samples.txt\n")
		fmt.Printf("\n%s", pf.FlagUsagesWrapped(10))
	}

	pf.StringP("id", "i", "", "Identifier for this monitor (required)")
	pf.StringP("config", "c", "", "Use yaml configuration file")
	pf.String("alpha", "", "EWMA smoothing factor, 0 < alpha <= 1.  Higher values adapt faster but are noisier.")
	pf.String("threshold", "", "Z-score magnitude above which a sample is flagged anomalous.  Must be > 0.")
	pf.Bool("freeze-baseline", false, "Do not let flagged anomalies update the mean/variance baseline.")
	pf.Bool("stdin", false, "Read newline-delimited numeric samples from stdin instead of simulating a stream.")
	pf.Duration("interval", 500*time.Millisecond, "Time between simulated samples (e.g. 500ms).")
	pf.Duration("duration", 60*time.Second, "How long the simulated stream runs (e.g. 60s).  0 runs until interrupted.")
	pf.String("pattern", "", "Simulator pattern as base,trend,noise (e.g. 10,0.05,2).")
	pf.String("spike-every", "", "Inject a simulated spike anomaly every n samples.  0 disables injection.")
	pf.Int("window", 100, "Number of recent samples included in alert reports.")
	pf.String("alert-quantity", "", "Number of flagged anomalies within the alert period that triggers an alert report.")
	pf.String("alert-period", "", "Sliding period over which flagged anomalies are counted (e.g. 30s).")
	pf.String("host", "", "Endpoint to which alert reports are sent as host:port.")
	pf.Duration("notify-timeout", time.Hour, "How long report delivery is retried before giving up.")
	pf.Bool("insecure", false, "Send alert reports over plain HTTP instead of HTTPS.")
	pf.String("metrics-addr", "", "Expose prometheus metrics on this listen address (e.g. :9090).")
	pf.BoolP("verbose", "v", false, "Log every verdict instead of only anomalies.")
	pf.Bool("no-error-reports", false, "Do not send crash reports when there are unexpected errors in the client.")

	return pf
}

func parseFlag(o *options) func(*pflag.Flag, string) error {
	return func(flag *pflag.Flag, value string) error {
		switch flag.Name {
		case "config":
			opts, err := parseFromFile(value)
			if err != nil {
				o.err = err
				return err
			}
			o.options = append(o.options, opts...)
		default:
			option, err := handleOption(flag.Name, value)
			if err != nil {
				o.err = err
				return err
			}
			o.options = append(o.options, option)
		}
		return nil
	}
}

func handleOption(name string, value string) (ConfigOption, error) {
	switch name {
	case "id":
		return ID(value), nil
	case "alpha":
		return Alpha(value), nil
	case "threshold":
		return Threshold(value), nil
	case "freeze-baseline":
		return FreezeBaseline(), nil
	case "stdin":
		return Stdin(), nil
	case "interval":
		return Interval(value), nil
	case "duration":
		return Duration(value), nil
	case "pattern":
		return Pattern(value), nil
	case "spike-every":
		return SpikeEvery(value), nil
	case "window":
		h, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("could not convert window to an integer: %s", value)
		}
		return WindowSize(h), nil
	case "alert-quantity":
		return AlertQuantity(value), nil
	case "alert-period":
		return AlertPeriod(value), nil
	case "host":
		return Host(value), nil
	case "notify-timeout":
		return NotifyTimeout(value), nil
	case "insecure":
		return InsecureReports(), nil
	case "metrics-addr":
		return MetricsAddr(value), nil
	case "verbose":
		return Verbose(), nil
	case "no-error-reports":
		return NoErrorReports(), nil
	default:
		return nil, fmt.Errorf("unknown option: %s", name)
	}
}

func parseFromFile(fpath string) ([]ConfigOption, error) {
	var options []ConfigOption
	data, err := ioutil.ReadFile(fpath)
	if err != nil {
		return options, err
	}

	cfg := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return options, err
	}
	for k, v := range cfg {
		switch val := v.(type) {
		case string:
			opt, err := handleOption(k, val)
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case int:
			opt, err := handleOption(k, strconv.Itoa(val))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case float64:
			opt, err := handleOption(k, strconv.FormatFloat(val, 'f', -1, 64))
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		case bool:
			if !val {
				continue
			}
			opt, err := handleOption(k, "")
			if err != nil {
				return options, err
			}
			options = append(options, opt)
		default:
			return options, fmt.Errorf("could not process config key %s, unknown type", k)
		}
	}
	return options, nil
}
