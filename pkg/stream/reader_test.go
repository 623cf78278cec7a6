package stream

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderParsesAndSkips(t *testing.T) {
	tt := []struct {
		name       string
		input      string
		exp        []float64
		expSkipped int
	}{
		{name: "all valid", input: "1.5\n2\n-3.25\n", exp: []float64{1.5, 2, -3.25}},
		{name: "skips garbage", input: "1.0\nnot-a-number\n2.0\n", exp: []float64{1.0, 2.0}, expSkipped: 1},
		{name: "skips non-finite", input: "1.0\nNaN\n+Inf\n-Inf\n2.0\n", exp: []float64{1.0, 2.0}, expSkipped: 3},
		{name: "blank lines ignored", input: "\n1.0\n\n\n2.0\n", exp: []float64{1.0, 2.0}},
		{name: "empty input", input: "", exp: nil},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tc.input))
			var got []float64
			for v := range r.Samples(context.Background()) {
				got = append(got, v)
			}
			assert.Equal(t, tc.exp, got)
			assert.Equal(t, tc.expSkipped, r.Skipped())
		})
	}
}

func TestReaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(strings.NewReader("1\n2\n3\n4\n5\n"))
	ch := r.Samples(ctx)
	<-ch
	cancel()
	// channel closes once the producer notices the cancelled context
	for range ch {
	}
}
