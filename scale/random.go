// Package scale draws random magnitudes from per-unit private streams and
// amplifies the requested ranges according to the run multiplier.
package scale

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/allegro/nightly-runner/seed"
)

// pcgIncrement is mixed into the second PCG word so both words depend on the
// unit seed.
const pcgIncrement = 0x9E3779B97F4A7C15

// ErrInvalidRange is matched by every RangeError.
var ErrInvalidRange = errors.New("invalid range")

// RangeError is returned when a caller asks for a value between min and max
// with min > max.
type RangeError struct {
	Min string
	Max string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: min %s is greater than max %s", e.Min, e.Max)
}

// Is reports whether target is ErrInvalidRange.
func (e *RangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

func rangeError(min, max interface{}) error {
	return &RangeError{Min: fmt.Sprint(min), Max: fmt.Sprint(max)}
}

// Random is the private random stream of a single test unit. The N-th call
// made on a Random always consumes the N-th portion of its stream, so a fixed
// seed and a fixed call order reproduce the same values. It must not be
// shared between units or goroutines.
type Random struct {
	rng    *rand.Rand
	seed   seed.Seed
	policy Policy
}

// New returns a stream seeded with s that scales ranges with policy.
func New(s seed.Seed, policy Policy) *Random {
	return &Random{
		rng:    rand.New(rand.NewPCG(uint64(s), uint64(s)^pcgIncrement)),
		seed:   s,
		policy: policy,
	}
}

// Seed returns the seed the stream was created with.
func (r *Random) Seed() seed.Seed {
	return r.seed
}

// Policy returns the scaling policy of the stream.
func (r *Random) Policy() Policy {
	return r.policy
}

// ScaledIntBetween returns a value drawn uniformly from
// [min, min + ScaledSpan(max-min)]. It returns min when min == max and a
// RangeError when min > max.
func (r *Random) ScaledIntBetween(min, max int) (int, error) {
	v, err := r.between(int64(min), int64(max), math.MaxInt, true)
	return int(v), err
}

// ScaledInt64Between is the int64 variant of ScaledIntBetween.
func (r *Random) ScaledInt64Between(min, max int64) (int64, error) {
	return r.between(min, max, math.MaxInt64, true)
}

// ScaledDurationBetween is the time.Duration variant of ScaledIntBetween.
func (r *Random) ScaledDurationBetween(min, max time.Duration) (time.Duration, error) {
	v, err := r.between(int64(min), int64(max), math.MaxInt64, true)
	return time.Duration(v), err
}

// ScaledFloat64Between returns a value drawn uniformly from
// [min, min + span*multiplier). It returns min when min == max.
func (r *Random) ScaledFloat64Between(min, max float64) (float64, error) {
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return 0, rangeError(min, max)
	}
	if min == max {
		return min, nil
	}
	span := r.policy.scaledFloatSpan(max - min)
	if math.IsInf(span, 1) {
		span = math.MaxFloat64
	}
	if math.IsInf(min+span, 1) {
		span = math.MaxFloat64 - min
	}
	return min + r.rng.Float64()*span, nil
}

// IntBetween returns a value drawn uniformly from [min, max] regardless of the
// run multiplier.
func (r *Random) IntBetween(min, max int) (int, error) {
	v, err := r.between(int64(min), int64(max), math.MaxInt, false)
	return int(v), err
}

// Int64Between is the int64 variant of IntBetween.
func (r *Random) Int64Between(min, max int64) (int64, error) {
	return r.between(min, max, math.MaxInt64, false)
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (r *Random) Intn(n int) int {
	return r.rng.IntN(n)
}

// Float64 returns a value in [0.0, 1.0).
func (r *Random) Float64() float64 {
	return r.rng.Float64()
}

// Bool returns true or false with equal probability.
func (r *Random) Bool() bool {
	return r.rng.Uint64()&1 == 1
}

func (r *Random) between(min, max, ceiling int64, scaled bool) (int64, error) {
	if min > max {
		return 0, rangeError(min, max)
	}
	if min == max {
		return min, nil
	}

	// Unsigned arithmetic keeps the span exact even for [MinInt64, MaxInt64].
	span := uint64(max) - uint64(min)
	if scaled {
		span = r.policy.ScaledSpan(span)
		if headroom := uint64(ceiling) - uint64(min); span > headroom {
			span = headroom
		}
	}
	return int64(uint64(min) + r.uniform(span)), nil
}

// uniform returns a value in [0, span].
func (r *Random) uniform(span uint64) uint64 {
	if span == math.MaxUint64 {
		return r.rng.Uint64()
	}
	return r.rng.Uint64N(span + 1)
}
