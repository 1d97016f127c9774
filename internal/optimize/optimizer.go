// Package optimize orchestrates the search engine against the render
// cache: it validates bounds against the probed source, drives a search
// strategy with byte-size feedback, and promotes the winning artifact.
package optimize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cwbudde/gifsqueeze/internal/config"
	"github.com/cwbudde/gifsqueeze/internal/opt"
	"github.com/cwbudde/gifsqueeze/internal/render"
	"github.com/cwbudde/gifsqueeze/internal/search"
	"github.com/cwbudde/gifsqueeze/internal/trace"
)

// Search strategies selectable per request.
const (
	StrategyElimination = "elimination"
	StrategyStudy       = "study"
)

// Request describes one optimization run.
type Request struct {
	OutputPath string
	SizeLimit  int64

	FPS   search.Bounds
	Size  search.Bounds
	Lossy search.Bounds

	// Strategy selects the search engine; empty means elimination.
	Strategy string

	// Trials, Timeout, and Jobs bound the study strategy. The
	// elimination search ignores them: its cost is already logarithmic.
	Trials  int
	Timeout time.Duration
	Jobs    int
}

// Result is a successful run's outcome.
type Result struct {
	Best     search.ScoredCandidate
	Artifact render.Artifact

	// Renders is the number of oracle probes the search needed.
	Renders int
}

// Optimizer owns one run's working directory and render cache. Create
// with New, release with Close. Instances do not share state; concurrent
// runs for different inputs each get their own Optimizer.
type Optimizer struct {
	renderer render.Renderer
	cache    *render.Cache
	info     render.VideoInfo
	workDir  string
	source   string
	tuning   config.Tuning
	trace    *trace.Writer
}

// New probes the source video and prepares a working directory for
// cached renders. A probe failure is fatal: it is reported as a
// *ProbeError and nothing is created.
func New(ctx context.Context, renderer render.Renderer, videoPath string, tuning config.Tuning) (*Optimizer, error) {
	info, err := renderer.Probe(ctx, videoPath)
	if err != nil {
		return nil, &ProbeError{Path: videoPath, Err: err}
	}

	dir, err := os.MkdirTemp("", "gifsqueeze-*")
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	slog.Debug("probed source", "path", videoPath, "fps", info.FPS, "width", info.Width, "height", info.Height)

	return &Optimizer{
		renderer: renderer,
		cache:    render.NewCache(renderer, videoPath, dir, info),
		info:     info,
		workDir:  dir,
		source:   videoPath,
		tuning:   tuning,
	}, nil
}

// Info returns the probed properties of the source video.
func (o *Optimizer) Info() render.VideoInfo {
	return o.info
}

// SetTrace attaches a trial trace; every probe is recorded to it. The
// caller keeps ownership and closes it.
func (o *Optimizer) SetTrace(w *trace.Writer) {
	o.trace = w
}

// Close tears down the working directory and every cached render in it.
// Best-effort: a promoted output lives outside the directory and is
// never touched.
func (o *Optimizer) Close() error {
	return os.RemoveAll(o.workDir)
}

// Optimize runs the search and commits the winning artifact to
// req.OutputPath. Outcomes: a *Result on success, ErrUnsatisfiable when
// nothing in the bounds fits, a *BoundsError before any render when the
// bounds are out of domain, and a *RenderError when the external tool
// chain fails mid-run.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*Result, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	slog.Info("searching for optimal parameters",
		"fps_min", req.FPS.Min, "fps_max", req.FPS.Max,
		"size_min", req.Size.Min, "size_max", req.Size.Max,
		"lossy_min", req.Lossy.Min, "lossy_max", req.Lossy.Max,
		"size_limit", req.SizeLimit,
	)

	if err := o.cache.Intermediate(ctx, req.FPS.Max, req.Size.Max); err != nil {
		return nil, &RenderError{Stage: "intermediate", Err: err}
	}
	if _, err := o.cache.Palette(ctx); err != nil {
		return nil, &RenderError{Stage: "palette", Err: err}
	}

	var (
		best    search.ScoredCandidate
		renders int
		err     error
	)
	switch req.Strategy {
	case "", StrategyElimination:
		best, renders, err = o.runElimination(ctx, req)
	case StrategyStudy:
		best, renders, err = o.runStudy(ctx, req)
	default:
		return nil, fmt.Errorf("unknown strategy %q", req.Strategy)
	}
	if err != nil {
		return nil, err
	}

	// Fetch the winner from the cache; the search already rendered it.
	art, err := o.cache.Compress(ctx, best.FPS, best.Size, best.Lossy)
	if err != nil {
		return nil, &RenderError{Stage: "winner", Err: err}
	}

	if err := o.promote(art, req.OutputPath); err != nil {
		return nil, err
	}

	if art.ByteSize > req.SizeLimit {
		// The termination rules make this unreachable; keep the check
		// so a future strategy cannot silently ship an oversized file.
		slog.Warn("best generated gif is larger than the output size limit",
			"bytes", art.ByteSize, "limit", req.SizeLimit)
	}

	slog.Info("optimization complete",
		"fps", best.FPS, "size", best.Size, "lossy", best.Lossy,
		"bytes", art.ByteSize, "renders", renders, "output", req.OutputPath,
	)

	return &Result{
		Best:     best,
		Artifact: render.Artifact{Path: req.OutputPath, ByteSize: art.ByteSize},
		Renders:  renders,
	}, nil
}

// runElimination drives the bisection search to logarithmic completion.
func (o *Optimizer) runElimination(ctx context.Context, req Request) (search.ScoredCandidate, int, error) {
	elim, err := search.NewElimination(req.FPS, req.Size, req.Lossy, o.tuning.Exponents())
	if err != nil {
		return search.ScoredCandidate{}, 0, &BoundsError{Dim: "search", Reason: err.Error()}
	}

	step := elim.Start()
	for step.Kind == search.StepNext {
		art, err := o.probe(ctx, req, step.Candidate)
		if err != nil {
			return search.ScoredCandidate{}, elim.Probes(), err
		}

		passed := art.ByteSize <= req.SizeLimit
		slog.Debug("probed candidate",
			"fps", step.Candidate.FPS, "size", step.Candidate.Size, "lossy", step.Candidate.Lossy,
			"bytes", art.ByteSize, "passed", passed,
		)

		step = elim.Resume(passed)
	}

	if step.Kind == search.StepUnsatisfiable {
		return search.ScoredCandidate{}, elim.Probes(), ErrUnsatisfiable
	}
	return step.Best, elim.Probes(), nil
}

// runStudy drives the alternate continuous strategy within its bounds.
func (o *Optimizer) runStudy(ctx context.Context, req Request) (search.ScoredCandidate, int, error) {
	study := o.tuning.Study
	result, err := opt.RunStudy(ctx, req.FPS, req.Size, req.Lossy,
		func(ctx context.Context, c search.Candidate) (int64, error) {
			art, err := o.probe(ctx, req, c)
			if err != nil {
				return 0, err
			}
			return art.ByteSize, nil
		},
		opt.StudyConfig{
			SizeLimit:       req.SizeLimit,
			Exponents:       o.tuning.Exponents(),
			Trials:          req.Trials,
			Timeout:         req.Timeout,
			Jobs:            req.Jobs,
			Seed:            time.Now().UnixNano(),
			Population:      study.Population,
			RoundIterations: study.RoundIterations,
			Convergence: opt.ConvergenceConfig{
				Patience:  study.Patience,
				Threshold: study.Threshold,
			},
		},
	)
	if err != nil {
		return search.ScoredCandidate{}, 0, err
	}
	if !result.Found {
		return search.ScoredCandidate{}, result.Trials, ErrUnsatisfiable
	}
	return result.Best, result.Trials, nil
}

// probe renders one candidate through the cache and records the trace
// entry when tracing is enabled.
func (o *Optimizer) probe(ctx context.Context, req Request, c search.Candidate) (render.Artifact, error) {
	art, err := o.cache.Compress(ctx, c.FPS, c.Size, c.Lossy)
	if err != nil {
		return render.Artifact{}, &RenderError{
			Stage: fmt.Sprintf("candidate %d-%d-%d", c.FPS, c.Size, c.Lossy),
			Err:   err,
		}
	}

	if o.trace != nil {
		entry := trace.Entry{
			FPS:       c.FPS,
			Size:      c.Size,
			Lossy:     c.Lossy,
			Score:     search.Score(c, req.FPS, req.Size, req.Lossy, o.tuning.Exponents()),
			Bytes:     art.ByteSize,
			Passed:    art.ByteSize <= req.SizeLimit,
			Timestamp: time.Now(),
		}
		if err := o.trace.Write(entry); err != nil {
			slog.Warn("failed to write trace entry", "error", err)
		}
	}
	return art, nil
}

// validate checks every bounds value against the probed source and the
// fixed compression-level domain. Runs before any render; on failure no
// partial state is created.
func (o *Optimizer) validate(req Request) error {
	if req.SizeLimit <= 0 {
		return &BoundsError{Dim: "size limit", Reason: "must be larger than zero"}
	}

	fps, size, lossy := req.FPS, req.Size, req.Lossy

	if fps.Min <= 0 || float64(fps.Min) > o.info.FPS {
		return &BoundsError{Dim: "fps", Reason: fmt.Sprintf("min must be larger than 0 and at most %.2f", o.info.FPS)}
	}
	if fps.Max <= 0 || float64(fps.Max) > o.info.FPS {
		return &BoundsError{Dim: "fps", Reason: fmt.Sprintf("max must be larger than 0 and at most %.2f", o.info.FPS)}
	}
	if !fps.Valid() {
		return &BoundsError{Dim: "fps", Reason: "min must be less than or equal to max"}
	}

	if size.Min < 1 || size.Min > o.info.Width {
		return &BoundsError{Dim: "size", Reason: fmt.Sprintf("min must be between 1 and %d", o.info.Width)}
	}
	if size.Max < 1 || size.Max > o.info.Width {
		return &BoundsError{Dim: "size", Reason: fmt.Sprintf("max must be between 1 and %d", o.info.Width)}
	}
	if !size.Valid() {
		return &BoundsError{Dim: "size", Reason: "min must be less than or equal to max"}
	}

	domain := search.Bounds{Min: search.LossyMin, Max: search.LossyMax}
	if !domain.Contains(lossy.Min) {
		return &BoundsError{Dim: "lossy", Reason: fmt.Sprintf("min must be between %d and %d", search.LossyMin, search.LossyMax)}
	}
	if !domain.Contains(lossy.Max) {
		return &BoundsError{Dim: "lossy", Reason: fmt.Sprintf("max must be between %d and %d", search.LossyMin, search.LossyMax)}
	}
	if !lossy.Valid() {
		return &BoundsError{Dim: "lossy", Reason: "min must be less than or equal to max"}
	}

	return nil
}

// promote moves the winning artifact out of the working directory to its
// final location, falling back to a copy when src and dst are on
// different filesystems.
func (o *Optimizer) promote(art render.Artifact, outputPath string) error {
	if err := os.Rename(art.Path, outputPath); err == nil {
		return nil
	}

	src, err := os.Open(art.Path)
	if err != nil {
		return fmt.Errorf("promote %q: %w", outputPath, err)
	}
	defer src.Close()

	dst, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("promote %q: %w", outputPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(outputPath)
		return fmt.Errorf("promote %q: %w", outputPath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("promote %q: %w", outputPath, err)
	}

	os.Remove(art.Path)
	return nil
}
