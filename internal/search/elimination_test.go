package search

import (
	"math"
	"testing"
)

// runSearch drives an elimination search against an oracle function and
// returns the final step and the number of oracle calls.
func runSearch(t *testing.T, e *Elimination, oracle func(Candidate) bool) (Step, int) {
	t.Helper()

	calls := 0
	step := e.Start()
	for step.Kind == StepNext {
		calls++
		if calls > 1000 {
			t.Fatal("search did not terminate")
		}
		step = e.Resume(oracle(step.Candidate))
	}
	return step, calls
}

func TestSinglePointBoundsOneProbe(t *testing.T) {
	point := func() *Elimination {
		e, err := NewElimination(
			Bounds{Min: 15, Max: 15},
			Bounds{Min: 320, Max: 320},
			Bounds{Min: 100, Max: 100},
			DefaultExponents(),
		)
		if err != nil {
			t.Fatalf("NewElimination: %v", err)
		}
		return e
	}

	step, calls := runSearch(t, point(), func(Candidate) bool { return true })
	if calls != 1 {
		t.Errorf("expected exactly 1 probe, got %d", calls)
	}
	if step.Kind != StepDone {
		t.Fatalf("expected StepDone, got %v", step.Kind)
	}
	want := Candidate{FPS: 15, Size: 320, Lossy: 100}
	if step.Best.Candidate != want {
		t.Errorf("expected best %+v, got %+v", want, step.Best.Candidate)
	}

	step, calls = runSearch(t, point(), func(Candidate) bool { return false })
	if calls != 1 {
		t.Errorf("expected exactly 1 probe, got %d", calls)
	}
	if step.Kind != StepUnsatisfiable {
		t.Errorf("expected StepUnsatisfiable, got %v", step.Kind)
	}
}

func TestMaxCornerSatisfiesImmediately(t *testing.T) {
	e, err := NewElimination(
		Bounds{Min: 10, Max: 30},
		Bounds{Min: 100, Max: 640},
		Bounds{Min: 0, Max: 200},
		DefaultExponents(),
	)
	if err != nil {
		t.Fatalf("NewElimination: %v", err)
	}

	step := e.Start()
	want := Candidate{FPS: 30, Size: 640, Lossy: 0}
	if step.Candidate != want {
		t.Fatalf("first probe should be the maximum-quality corner, got %+v", step.Candidate)
	}

	step = e.Resume(true)
	if step.Kind != StepDone {
		t.Fatalf("expected StepDone after passing max corner, got %v", step.Kind)
	}
	if step.Best.Candidate != want {
		t.Errorf("expected best %+v, got %+v", want, step.Best.Candidate)
	}
	if e.Probes() != 1 {
		t.Errorf("expected 1 probe, got %d", e.Probes())
	}
}

func TestAllFailUnsatisfiable(t *testing.T) {
	e, err := NewElimination(
		Bounds{Min: 10, Max: 30},
		Bounds{Min: 100, Max: 640},
		Bounds{Min: 0, Max: 200},
		DefaultExponents(),
	)
	if err != nil {
		t.Fatalf("NewElimination: %v", err)
	}

	step, calls := runSearch(t, e, func(Candidate) bool { return false })
	if step.Kind != StepUnsatisfiable {
		t.Fatalf("expected StepUnsatisfiable, got %v", step.Kind)
	}
	// Max corner fails, then the min corner fails: two probes rule out
	// the entire grid without ever enumerating it.
	if calls != 2 {
		t.Errorf("expected 2 probes, got %d", calls)
	}
}

func TestBisectionConvergesToBoundary(t *testing.T) {
	fps := Bounds{Min: 1, Max: 5}
	size := Bounds{Min: 10, Max: 20}
	lossy := Bounds{Min: 0, Max: 10}
	exp := DefaultExponents()

	n := fps.Span() * size.Span() * lossy.Span()

	// The oracle passes candidates whose score is at most the
	// threshold, a rank-aligned boundary the bisection should find.
	threshold := 1.2
	oracle := func(c Candidate) bool {
		return Score(c, fps, size, lossy, exp) <= threshold
	}

	e, err := NewElimination(fps, size, lossy, exp)
	if err != nil {
		t.Fatalf("NewElimination: %v", err)
	}

	step, calls := runSearch(t, e, oracle)
	if step.Kind != StepDone {
		t.Fatalf("expected StepDone, got %v", step.Kind)
	}

	budget := int(math.Ceil(math.Log2(float64(n)))) + 2
	if calls > budget {
		t.Errorf("search took %d probes, budget for %d candidates is %d", calls, n, budget)
	}

	// The result must be the best satisfying score in the whole grid.
	var wantScore float64
	for f := fps.Min; f <= fps.Max; f++ {
		for s := size.Min; s <= size.Max; s++ {
			for l := lossy.Min; l <= lossy.Max; l++ {
				score := Score(Candidate{FPS: f, Size: s, Lossy: l}, fps, size, lossy, exp)
				if score <= threshold && score > wantScore {
					wantScore = score
				}
			}
		}
	}
	if math.Abs(step.Best.Score-wantScore) > 1e-12 {
		t.Errorf("expected best score %f, got %f (candidate %+v)", wantScore, step.Best.Score, step.Best.Candidate)
	}
	if !oracle(step.Best.Candidate) {
		t.Errorf("returned candidate %+v does not satisfy the oracle", step.Best.Candidate)
	}
}

func TestEmptyBoundsRejected(t *testing.T) {
	_, err := NewElimination(
		Bounds{Min: 30, Max: 10},
		Bounds{Min: 100, Max: 640},
		Bounds{Min: 0, Max: 200},
		DefaultExponents(),
	)
	if err == nil {
		t.Error("expected error for empty fps range")
	}
}

func TestGridRankedDescending(t *testing.T) {
	grid := buildGrid(
		Bounds{Min: 1, Max: 3},
		Bounds{Min: 10, Max: 12},
		Bounds{Min: 0, Max: 2},
		DefaultExponents(),
	)

	if len(grid) != 27 {
		t.Fatalf("expected 27 candidates, got %d", len(grid))
	}
	for i := 1; i < len(grid); i++ {
		if grid[i].Score > grid[i-1].Score {
			t.Fatalf("grid not sorted descending at index %d", i)
		}
	}
}
