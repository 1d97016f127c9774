package opt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cwbudde/gifsqueeze/internal/search"
)

var (
	testFPS   = search.Bounds{Min: 1, Max: 10}
	testSize  = search.Bounds{Min: 10, Max: 50}
	testLossy = search.Bounds{Min: 0, Max: 20}
)

// modelEval is a closed-form stand-in for a render: no files, no tools.
func modelEval(ctx context.Context, c search.Candidate) (int64, error) {
	return int64(c.FPS*2 + c.Size*3 + (20 - c.Lossy)), nil
}

func testConfig(limit int64) StudyConfig {
	return StudyConfig{
		SizeLimit:       limit,
		Exponents:       search.DefaultExponents(),
		Trials:          300,
		Jobs:            2,
		Seed:            42,
		Population:      20, // mayfly requires at least 20
		RoundIterations: 5,
	}
}

func TestRunStudyFindsSatisfyingCandidate(t *testing.T) {
	// Generous limit: every candidate satisfies it, so the first
	// render already yields a result.
	result, err := RunStudy(context.Background(), testFPS, testSize, testLossy, modelEval, testConfig(1<<20))
	if err != nil {
		t.Fatalf("RunStudy: %v", err)
	}

	if !result.Found {
		t.Fatal("expected a satisfying candidate")
	}
	if result.Trials == 0 {
		t.Error("expected at least one trial")
	}
	c := result.Best.Candidate
	if !testFPS.Contains(c.FPS) || !testSize.Contains(c.Size) || !testLossy.Contains(c.Lossy) {
		t.Errorf("best candidate %+v outside bounds", c)
	}
	if result.Bytes > 1<<20 {
		t.Errorf("best candidate does not satisfy the limit: %d bytes", result.Bytes)
	}
}

func TestRunStudyUnsatisfiable(t *testing.T) {
	// The minimal corner renders to 1*2 + 10*3 + 0 = 32 bytes; a limit
	// of 1 can never be met.
	cfg := testConfig(1)
	cfg.Trials = 100

	result, err := RunStudy(context.Background(), testFPS, testSize, testLossy, modelEval, cfg)
	if err != nil {
		t.Fatalf("RunStudy: %v", err)
	}
	if result.Found {
		t.Errorf("expected no satisfying candidate, got %+v", result.Best)
	}
}

func TestRunStudyTrialBudget(t *testing.T) {
	cfg := testConfig(1 << 20)
	cfg.Trials = 10
	cfg.Jobs = 1

	result, err := RunStudy(context.Background(), testFPS, testSize, testLossy, modelEval, cfg)
	if err != nil {
		t.Fatalf("RunStudy: %v", err)
	}
	if result.Trials != 10 {
		t.Errorf("expected exactly 10 trials, got %d", result.Trials)
	}
}

func TestRunStudyRenderFailure(t *testing.T) {
	boom := errors.New("render broke")
	eval := func(ctx context.Context, c search.Candidate) (int64, error) {
		return 0, boom
	}

	_, err := RunStudy(context.Background(), testFPS, testSize, testLossy, eval, testConfig(1<<20))
	if !errors.Is(err, boom) {
		t.Fatalf("expected the render error to propagate, got %v", err)
	}
}

func TestRunStudyTimeout(t *testing.T) {
	slowEval := func(ctx context.Context, c search.Candidate) (int64, error) {
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		return modelEval(ctx, c)
	}

	cfg := testConfig(1 << 20)
	cfg.Trials = 0
	cfg.Timeout = 50 * time.Millisecond

	done := make(chan struct{})
	var result *StudyResult
	var err error
	go func() {
		result, err = RunStudy(context.Background(), testFPS, testSize, testLossy, slowEval, cfg)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("study did not stop at the timeout")
	}
	if err != nil {
		t.Fatalf("RunStudy: %v", err)
	}
	// Bounded runs report the best found so far rather than failing.
	if !result.Found {
		t.Error("expected the study to keep its best-so-far result")
	}
}

func TestScaleMapsUnitInterval(t *testing.T) {
	b := search.Bounds{Min: 10, Max: 30}

	tests := []struct {
		u    float64
		want int
	}{
		{0, 10},
		{1, 30},
		{0.5, 20},
		{-0.2, 10}, // clamped
		{1.7, 30},  // clamped
	}
	for _, tt := range tests {
		if got := scale(tt.u, b); got != tt.want {
			t.Errorf("scale(%f) = %d, want %d", tt.u, got, tt.want)
		}
	}
}
