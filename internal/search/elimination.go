package search

import (
	"fmt"
	"log/slog"
	"slices"
)

// StepKind tags the result of one search step.
type StepKind int

const (
	// StepNext carries the next candidate to probe.
	StepNext StepKind = iota

	// StepDone carries the best satisfying candidate found.
	StepDone

	// StepUnsatisfiable means no candidate in the declared bounds can
	// meet the size limit.
	StepUnsatisfiable
)

// Step is the tagged result of Start or Resume. For StepNext the
// Candidate field holds the probe to evaluate; for StepDone the Best
// field holds the final result.
type Step struct {
	Kind      StepKind
	Candidate Candidate
	Best      ScoredCandidate
}

type phase int

const (
	phaseMaxCorner phase = iota
	phaseMinCorner
	phaseBisect
	phaseFinished
)

// Elimination is a resumable bisection search over the quality-ranked
// candidate grid. Evaluating a candidate is expensive (an external
// render), so the search proposes one candidate at a time and suspends
// until the caller reports whether it satisfied the size limit.
//
// Probe order: the maximum-quality corner first (an immediate win if it
// already fits), then the minimum-quality corner (an immediate
// unsatisfiable verdict if even that is too large), then bisection over
// the full grid sorted descending by score. A passing probe narrows the
// working slice to the strictly higher-scored half; a failing probe
// discards the probe and everything scored at or above it. Termination
// takes at most ceil(log2(N)) + 2 probes for a grid of N candidates.
//
// The grid is only enumerated when bisection actually starts, so runs
// decided by the two corner probes stay O(1).
type Elimination struct {
	fps, size, lossy Bounds
	exp              Exponents

	phase  phase
	ranked []ScoredCandidate
	lo, hi int
	cur    int

	best    ScoredCandidate
	found   bool
	probes  int
	pending Candidate
}

// NewElimination validates the bounds and prepares a search. The bounds
// must each be non-empty; domain checks against the source video belong
// to the orchestration layer.
func NewElimination(fps, size, lossy Bounds, exp Exponents) (*Elimination, error) {
	for _, dim := range []struct {
		name string
		b    Bounds
	}{{"fps", fps}, {"size", size}, {"lossy", lossy}} {
		if !dim.b.Valid() {
			return nil, fmt.Errorf("empty %s range: min %d > max %d", dim.name, dim.b.Min, dim.b.Max)
		}
	}

	return &Elimination{
		fps:   fps,
		size:  size,
		lossy: lossy,
		exp:   exp,
	}, nil
}

// Start returns the first candidate to probe. Always StepNext.
func (e *Elimination) Start() Step {
	e.phase = phaseMaxCorner
	return e.propose(Candidate{FPS: e.fps.Max, Size: e.size.Max, Lossy: e.lossy.Min})
}

// Resume feeds the oracle's verdict for the outstanding probe back into
// the search and returns either the next candidate or the final result.
func (e *Elimination) Resume(passed bool) Step {
	e.probes++

	switch e.phase {
	case phaseMaxCorner:
		return e.afterMaxCorner(passed)
	case phaseMinCorner:
		return e.afterMinCorner(passed)
	case phaseBisect:
		return e.afterBisect(passed)
	default:
		panic("search: Resume called after termination")
	}
}

// Probes returns the number of verdicts received so far.
func (e *Elimination) Probes() int {
	return e.probes
}

func (e *Elimination) afterMaxCorner(passed bool) Step {
	if passed {
		// Nothing in the grid scores higher than the maximum corner.
		e.record(e.pending)
		return e.finish()
	}

	minCorner := Candidate{FPS: e.fps.Min, Size: e.size.Min, Lossy: e.lossy.Max}
	if minCorner == e.pending {
		// Single-point bounds: the one candidate just failed.
		e.phase = phaseFinished
		return Step{Kind: StepUnsatisfiable}
	}

	e.phase = phaseMinCorner
	return e.propose(minCorner)
}

func (e *Elimination) afterMinCorner(passed bool) Step {
	if !passed {
		slog.Debug("minimum-quality corner exceeds the limit, no candidate can satisfy it")
		e.phase = phaseFinished
		return Step{Kind: StepUnsatisfiable}
	}

	e.record(e.pending)

	e.ranked = buildGrid(e.fps, e.size, e.lossy, e.exp)
	e.lo, e.hi = 0, len(e.ranked)
	e.phase = phaseBisect
	return e.bisect()
}

func (e *Elimination) afterBisect(passed bool) Step {
	if passed {
		e.record(e.ranked[e.cur].Candidate)
		e.hi = e.cur
	} else {
		e.lo = e.cur + 1
	}
	return e.bisect()
}

// bisect proposes the median of the working slice, or finishes when the
// slice is exhausted.
func (e *Elimination) bisect() Step {
	if e.lo >= e.hi {
		return e.finish()
	}
	e.cur = e.lo + (e.hi-e.lo)/2
	return e.propose(e.ranked[e.cur].Candidate)
}

func (e *Elimination) propose(c Candidate) Step {
	e.pending = c
	return Step{Kind: StepNext, Candidate: c}
}

func (e *Elimination) record(c Candidate) {
	sc := ScoredCandidate{
		Candidate: c,
		Score:     Score(c, e.fps, e.size, e.lossy, e.exp),
	}
	// Bisection only ever moves into the higher-scored half, so each
	// recorded candidate dominates the previous one.
	e.best = sc
	e.found = true
}

func (e *Elimination) finish() Step {
	e.phase = phaseFinished
	if !e.found {
		return Step{Kind: StepUnsatisfiable}
	}
	return Step{Kind: StepDone, Best: e.best}
}

// buildGrid enumerates and scores every integer triple within the three
// bounds and sorts descending by score. This is the dominant cost for
// wide ranges and must stay cheap: it renders nothing.
func buildGrid(fps, size, lossy Bounds, exp Exponents) []ScoredCandidate {
	grid := make([]ScoredCandidate, 0, fps.Span()*size.Span()*lossy.Span())
	for f := fps.Min; f <= fps.Max; f++ {
		for s := size.Min; s <= size.Max; s++ {
			for l := lossy.Min; l <= lossy.Max; l++ {
				c := Candidate{FPS: f, Size: s, Lossy: l}
				grid = append(grid, ScoredCandidate{
					Candidate: c,
					Score:     Score(c, fps, size, lossy, exp),
				})
			}
		}
	}

	slices.SortStableFunc(grid, func(a, b ScoredCandidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	slog.Debug("candidate grid ranked", "candidates", len(grid))
	return grid
}
