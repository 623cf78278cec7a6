package stream

import (
	"bufio"
	"context"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/driftwatch/driftwatch/pkg/metric"
)

// Reader ingests newline-delimited numeric samples from an io.Reader, such as
// stdin or a pipe from another process.  Entries that do not parse as finite
// numbers are discarded and counted rather than terminating the stream; the
// detector still re-validates every value it receives.
type Reader struct {
	r       io.Reader
	skipped *metric.Counter
}

// NewReader returns a reader that sources samples from r
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:       r,
		skipped: metric.NewCounter(),
	}
}

// Samples parses samples in arrival order onto the returned channel until the
// input is exhausted or the context is cancelled.  The channel is closed when
// the stream ends.
func (r *Reader) Samples(ctx context.Context) <-chan float64 {
	out := make(chan float64)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r.r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			v, err := strconv.ParseFloat(line, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				r.skipped.Add(1)
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Skipped returns the number of entries discarded because they did not parse
// as finite numbers.  Only meaningful after the sample channel has closed.
func (r *Reader) Skipped() int {
	return r.skipped.Value()
}
