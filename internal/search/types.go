package search

// Lossy compression levels accepted by the external compressor.
const (
	LossyMin = 0
	LossyMax = 200
)

// Bounds is an inclusive [Min, Max] range for one search dimension.
// Immutable once constructed.
type Bounds struct {
	Min int
	Max int
}

// Valid reports whether the range is non-empty.
func (b Bounds) Valid() bool {
	return b.Min <= b.Max
}

// Span returns the number of discrete values in the range.
func (b Bounds) Span() int {
	return b.Max - b.Min + 1
}

// Contains reports whether x lies within the range.
func (b Bounds) Contains(x int) bool {
	return b.Min <= x && x <= b.Max
}

// Candidate is one concrete (frame-rate, frame-size, compression-level)
// triple. Frame rate is discretized to whole frames per second, the
// granularity the rendering pipeline actually uses.
type Candidate struct {
	FPS   int
	Size  int
	Lossy int
}

// ScoredCandidate pairs a candidate with its quality-distance score.
// Scores rank candidates before any render has happened and are never
// persisted beyond a single search run.
type ScoredCandidate struct {
	Candidate
	Score float64
}
