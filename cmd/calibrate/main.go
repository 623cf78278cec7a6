package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/driftwatch/driftwatch/pkg/detector"
	"github.com/driftwatch/driftwatch/pkg/rng"
)

const (
	Loops  int     = 1000
	Warmup int     = 100
	Run    int     = 10000
	Alpha  float64 = 0.1
)

var wg sync.WaitGroup

type results struct {
	name string
	mu   sync.Mutex
	val  map[float64]float64
}

func (r *results) record(k float64, falsePositiveRate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.val[k] = falsePositiveRate
}

func newResults(name string) *results {
	return &results{
		name: name,
		val:  make(map[float64]float64),
	}
}

// Estimates the per-run false positive probability of the EWMA z-score
// detector for a range of thresholds under the null hypothesis (a pure
// gaussian stream with no anomalies).  Use the output to pick a threshold
// matched to a tolerable false alarm rate.
func main() {
	res := newResults("zscore-ewma")
	start := time.Now()
	for k := 2.0; k <= 4.0; k += 0.25 {
		wg.Add(1)
		log.Printf("start k=%f\n", k)
		go falsePositiveRate(res, k)
	}
	wg.Wait()
	fmt.Printf("Time Elapsed: %v\n", time.Since(start))

	keys := make([]float64, 0, len(res.val))
	for k := range res.val {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	var b bytes.Buffer
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%f %f\n", k, res.val[k]))
	}
	if err := ioutil.WriteFile(fmt.Sprintf("%s.txt", res.name), b.Bytes(), 0644); err != nil {
		log.Fatalf("could not write results: %v", err)
	}
}

func falsePositiveRate(results *results, k float64) {
	defer wg.Done()
	flagged := 0
	for i := 0; i < Loops; i++ {
		d, err := detector.New(Alpha, k)
		if err != nil {
			log.Fatalf("unexpected error constructing detector: %v", err)
		}
		r := rng.NewNormalRNG(10.0, 2.0)

		for j := 0; j < Warmup; j++ {
			if _, err := d.Observe(r.Rand()); err != nil {
				log.Fatalf("unexpected error observing value: %v", err)
			}
		}
		for j := 0; j < Run; j++ {
			v, err := d.Observe(r.Rand())
			if err != nil {
				log.Fatalf("unexpected error observing value: %v", err)
			}
			if v.IsAnomaly {
				flagged++
				break
			}
		}
	}
	rate := float64(flagged) / float64(Loops)
	fmt.Printf("Result: k=%1.2f p=%1.5f flagged=%d\n", k, rate, flagged)
	results.record(k, rate)
}
