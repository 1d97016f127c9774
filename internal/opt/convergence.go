package opt

import (
	"log/slog"
	"math"
)

// ConvergenceConfig controls when a study stops improving "enough".
type ConvergenceConfig struct {
	// Patience is the number of rounds without significant improvement
	// before the study stops early. Zero disables the check.
	Patience int

	// Threshold is the minimum relative improvement that counts as
	// progress. Example: 0.001 requires a 0.1% drop in the objective.
	Threshold float64
}

// convergenceTracker watches the per-round best objective and reports
// when it has gone stale. Callers must serialize Update.
type convergenceTracker struct {
	cfg             ConvergenceConfig
	best            float64
	lastSignificant float64
	stale           int
}

func newConvergenceTracker(cfg ConvergenceConfig) *convergenceTracker {
	return &convergenceTracker{
		cfg:             cfg,
		best:            math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a round's best objective and returns true once the
// study has seen cfg.Patience rounds without significant improvement.
func (t *convergenceTracker) Update(cost float64) bool {
	if t.cfg.Patience <= 0 {
		return false
	}

	if cost < t.best {
		t.best = cost
	}

	if math.IsInf(t.lastSignificant, 1) {
		t.lastSignificant = cost
		return false
	}

	improvement := (t.lastSignificant - cost) / math.Abs(t.lastSignificant)
	if improvement >= t.cfg.Threshold {
		t.lastSignificant = cost
		t.stale = 0
		return false
	}

	t.stale++
	if t.stale >= t.cfg.Patience {
		slog.Info("study converged, stopping early", "stale_rounds", t.stale, "best_objective", t.best)
		return true
	}
	return false
}
