// Package opt implements the alternate continuous search strategy: a
// black-box optimizer minimizing a penalty-weighted objective over the
// parameter space, bounded by a trial budget and a wall-clock timeout.
// Unlike the elimination search it has no bounded-call-count guarantee,
// but it can parallelize independent trials and returns the best
// candidate found so far when a bound is hit.
package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/gifsqueeze/internal/search"
)

// Objective renders a candidate and returns its byte size. Implemented
// by the orchestration layer on top of the render cache, which must be
// safe for the concurrent calls this package makes.
type Objective func(ctx context.Context, c search.Candidate) (int64, error)

// StudyConfig bounds and tunes a study.
type StudyConfig struct {
	SizeLimit int64
	Exponents search.Exponents

	// Trials caps the number of renders across all rounds. Zero means
	// no cap: the study runs until timeout or convergence.
	Trials int

	// Timeout bounds the study's wall-clock time. Zero means none.
	Timeout time.Duration

	// Jobs is the number of rounds run concurrently. Values below 1
	// mean sequential execution.
	Jobs int

	// Seed makes round seeding reproducible for a sequential study.
	Seed int64

	// Population and RoundIterations size one optimizer round. The
	// mayfly library requires a population of at least 20.
	Population      int
	RoundIterations int

	Convergence ConvergenceConfig
}

// StudyResult reports the outcome of a study.
type StudyResult struct {
	// Found is false when no render ever satisfied the size limit.
	Found bool

	// Best is the satisfying candidate with the highest quality score,
	// with Bytes its rendered size.
	Best  search.ScoredCandidate
	Bytes int64

	// Trials is the number of renders performed.
	Trials int
}

// RunStudy searches the given bounds with repeated optimizer rounds
// until the trial budget, timeout, or convergence stops it. Rounds run
// on up to cfg.Jobs workers and share the caller's render cache through
// the objective. A render failure aborts the whole study.
func RunStudy(ctx context.Context, fps, size, lossy search.Bounds, eval Objective, cfg StudyConfig) (*StudyResult, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &study{
		fps:     fps,
		size:    size,
		lossy:   lossy,
		eval:    eval,
		cfg:     cfg,
		cancel:  cancel,
		tracker: newConvergenceTracker(cfg.Convergence),
	}

	jobs := cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil {
		return nil, s.failure
	}
	return &StudyResult{
		Found:  s.found,
		Best:   s.best,
		Bytes:  s.bestBytes,
		Trials: s.trials,
	}, nil
}

type study struct {
	fps, size, lossy search.Bounds
	eval             Objective
	cfg              StudyConfig
	cancel           context.CancelFunc

	mu        sync.Mutex
	round     int64
	trials    int
	found     bool
	best      search.ScoredCandidate
	bestBytes int64
	failure   error
	tracker   *convergenceTracker
	stopped   bool
}

// worker runs rounds until the study is bounded out or cancelled.
func (s *study) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil || s.done() {
			return
		}
		s.runRound(ctx, s.nextSeed())
	}
}

// runRound executes one optimizer round and feeds its best objective
// into the convergence tracker.
func (s *study) runRound(ctx context.Context, seed int64) {
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = s.objective(ctx)
	config.ProblemSize = 3
	config.MaxIterations = s.cfg.RoundIterations
	config.NPop = s.cfg.Population
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Config errors are deterministic; retrying the round would
		// spin the worker.
		s.fail(fmt.Errorf("optimizer round: %w", err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	converged := s.tracker.Update(result.GlobalBest.Cost)
	if converged {
		s.stopped = true
	}
	s.mu.Unlock()

	if converged {
		s.cancel()
	}
}

// objective is the penalty-weighted function a round minimizes. A
// candidate over the limit is penalized by the square of its overshoot;
// a satisfying one is rewarded in proportion to its quality score.
func (s *study) objective(ctx context.Context) func([]float64) float64 {
	return func(u []float64) float64 {
		if ctx.Err() != nil || s.done() {
			return math.Inf(1)
		}

		c := s.decode(u)
		bytes, err := s.eval(ctx, c)
		if err != nil {
			// Errors caused by our own cancellation are not render
			// failures.
			if ctx.Err() == nil {
				s.fail(err)
			}
			return math.Inf(1)
		}

		score := search.Score(c, s.fps, s.size, s.lossy, s.cfg.Exponents)
		s.observe(c, score, bytes)

		if bytes > s.cfg.SizeLimit {
			over := float64(bytes - s.cfg.SizeLimit)
			return float64(s.cfg.SizeLimit) + over*over
		}
		if score == 0 {
			return math.Inf(1)
		}
		return (1 + float64(s.cfg.SizeLimit-bytes)) / score
	}
}

// decode maps a point of the normalized [0,1]^3 round space onto the
// integer candidate grid.
func (s *study) decode(u []float64) search.Candidate {
	return search.Candidate{
		FPS:   scale(u[0], s.fps),
		Size:  scale(u[1], s.size),
		Lossy: scale(u[2], s.lossy),
	}
}

func scale(u float64, b search.Bounds) int {
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	return b.Min + int(math.Round(u*float64(b.Max-b.Min)))
}

func (s *study) observe(c search.Candidate, score float64, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trials++
	if bytes <= s.cfg.SizeLimit && (!s.found || score > s.best.Score) {
		s.found = true
		s.best = search.ScoredCandidate{Candidate: c, Score: score}
		s.bestBytes = bytes
	}

	if s.cfg.Trials > 0 && s.trials >= s.cfg.Trials {
		s.stopped = true
		s.cancel()
	}
}

func (s *study) fail(err error) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = err
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *study) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped || s.failure != nil
}

func (s *study) nextSeed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round++
	return s.cfg.Seed + s.round
}
