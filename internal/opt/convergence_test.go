package opt

import "testing"

func TestConvergenceTracker(t *testing.T) {
	tr := newConvergenceTracker(ConvergenceConfig{Patience: 2, Threshold: 0.01})

	if tr.Update(100) {
		t.Error("first round must not converge")
	}
	if tr.Update(50) {
		t.Error("a 50% improvement must not converge")
	}
	if tr.Update(49.9) {
		t.Error("one stale round is within patience")
	}
	if !tr.Update(49.89) {
		t.Error("expected convergence after two stale rounds")
	}
}

func TestConvergenceTrackerResetsOnImprovement(t *testing.T) {
	tr := newConvergenceTracker(ConvergenceConfig{Patience: 2, Threshold: 0.01})

	tr.Update(100)
	tr.Update(99.99) // stale 1
	tr.Update(50)    // significant again, stale counter resets
	if tr.Update(49.99) {
		t.Error("stale counter should have been reset by the improvement")
	}
}

func TestConvergenceTrackerDisabled(t *testing.T) {
	tr := newConvergenceTracker(ConvergenceConfig{})

	for i := 0; i < 100; i++ {
		if tr.Update(42) {
			t.Fatal("disabled tracker must never converge")
		}
	}
}
