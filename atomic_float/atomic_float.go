package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 is a float64 readable and writable from many goroutines without locks.
// The float's bits are held in an atomic.Uint64, so the zero value reads as 0.0.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 returns an AtomicFloat64 holding val.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.bits.Store(math.Float64bits(val))
	return af
}

// AtomicRead returns the current value.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicSet stores val unconditionally.
func (af *AtomicFloat64) AtomicSet(val float64) {
	af.bits.Store(math.Float64bits(val))
}

// AtomicAdd attempts a single compare-and-swap of the current value plus addend.
// If another writer changed the value in between, succeeded is false and the caller
// decides whether to retry or drop the update.
func (af *AtomicFloat64) AtomicAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}

// AtomicMax raises the value to val if val is larger, and returns the resulting value.
func (af *AtomicFloat64) AtomicMax(val float64) float64 {
	for {
		old := af.bits.Load()
		cur := math.Float64frombits(old)
		if !(val > cur) {
			return cur
		}
		if af.bits.CompareAndSwap(old, math.Float64bits(val)) {
			return val
		}
	}
}
