package search

import "math"

// Exponents tunes the nonlinear terms of the distance score. The values
// are empirical and deliberately adjustable; see config.Tuning.
type Exponents struct {
	// Size is applied to the frame-size distance. File size grows
	// super-linearly with the linear dimensions of a raster image, so
	// the distance is flattened with a sub-linear exponent.
	Size float64

	// Lossy is applied to the inverted compression-level distance.
	// Higher lossy values shrink the file roughly logarithmically, so
	// candidates near the permissive end are rewarded non-linearly.
	Lossy float64
}

// DefaultExponents returns the tuning used when no config overrides it.
func DefaultExponents() Exponents {
	return Exponents{
		Size:  0.75,
		Lossy: 2.5,
	}
}

// Score maps a candidate and its bounds to a scalar quality distance.
// Pure, no side effects, total over the legal domain.
//
// Per dimension the normalized distance is |min-x| / |min-max|, defined
// as 1.0 when min == max (a fixed dimension carries no discriminating
// signal). Frame rate enters linearly, frame size sub-linearly, and the
// compression level inverted and raised to a power >= 2. The three terms
// are summed: a higher score means the candidate sits closer to the
// unconstrained, high-quality end of the space and is assumed to produce
// a larger rendered file. That monotonicity is an assumption, not a
// guarantee.
func Score(c Candidate, fps, size, lossy Bounds, exp Exponents) float64 {
	distFPS := delta(fps, c.FPS)
	distSize := math.Pow(delta(size, c.Size), exp.Size)
	distLossy := math.Pow(1.0-delta(lossy, c.Lossy), exp.Lossy)

	return distFPS + distSize + distLossy
}

// delta returns the normalized distance of x from the lower edge of b.
func delta(b Bounds, x int) float64 {
	span := b.Max - b.Min
	if span == 0 {
		return 1.0
	}
	return math.Abs(float64(b.Min-x)) / math.Abs(float64(span))
}
