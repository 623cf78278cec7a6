package rng

import (
	"math/rand"
	"time"
)

var _ RNG = &NormalRNG{}

// NormalRNG generates normally distributed random numbers
type NormalRNG struct {
	mean  float64
	stdev float64
	r     *rand.Rand
}

func (r *NormalRNG) Rand() float64 {
	return r.r.NormFloat64()*r.stdev + r.mean
}

func NewNormalRNG(mean float64, stdev float64) *NormalRNG {
	return &NormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededNormalRNG is a NormalRNG with a fixed seed for reproducible streams
func NewSeededNormalRNG(mean float64, stdev float64, seed int64) *NormalRNG {
	return &NormalRNG{
		mean:  mean,
		stdev: stdev,
		r:     rand.New(rand.NewSource(seed)),
	}
}
