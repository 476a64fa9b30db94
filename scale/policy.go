package scale

import "math"

// maxUint64Float is float64(math.MaxUint64), which rounds up to 2^64.
const maxUint64Float = float64(math.MaxUint64)

// Policy controls how requested ranges are amplified.
type Policy struct {
	// Multiplier applied to every requested span. Values below 1 (and NaN)
	// are treated as 1 so a span is never narrowed.
	Multiplier float64
	// MaxSpan is an absolute upper bound for a scaled span. Zero means the
	// span is bounded only by the range of the requested type.
	MaxSpan uint64
}

// ScaledSpan returns round(span * Multiplier) clamped to MaxSpan. The result
// is never smaller than span.
func (p Policy) ScaledSpan(span uint64) uint64 {
	if span == 0 || !(p.Multiplier > 1) {
		return span
	}

	var scaled uint64
	if f := math.Round(float64(span) * p.Multiplier); f >= maxUint64Float {
		scaled = math.MaxUint64
	} else {
		scaled = uint64(f)
	}
	if p.MaxSpan != 0 && scaled > p.MaxSpan {
		scaled = p.MaxSpan
	}
	if scaled < span {
		return span
	}
	return scaled
}

func (p Policy) scaledFloatSpan(span float64) float64 {
	scaled := span
	if p.Multiplier > 1 {
		scaled = span * p.Multiplier
	}
	if p.MaxSpan != 0 && scaled > float64(p.MaxSpan) {
		scaled = float64(p.MaxSpan)
	}
	if scaled < span {
		return span
	}
	return scaled
}
