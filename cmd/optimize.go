package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/gifsqueeze/internal/config"
	"github.com/cwbudde/gifsqueeze/internal/optimize"
	"github.com/cwbudde/gifsqueeze/internal/render"
	"github.com/cwbudde/gifsqueeze/internal/search"
	"github.com/cwbudde/gifsqueeze/internal/trace"
)

var (
	outPath    string
	maxSize    string
	fpsMin     string
	fpsMax     string
	sizeMin    string
	sizeMax    string
	lossyMin   string
	lossyMax   string
	strategy   string
	trials     int
	timeout    time.Duration
	jobs       int
	tracePath  string
	tuningPath string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <input>",
	Short: "Find the best GIF parameters within a byte budget",
	Long: `Optimize renders candidate (fps, size, lossy) combinations of the input
video and converges on the highest-quality one whose output stays under
--max-size. Bounds accept absolute values or percentages of the source's
native fps/width, e.g. --size-max 50%.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVarP(&outPath, "output", "o", "output.gif", "Output GIF path")
	optimizeCmd.Flags().StringVar(&maxSize, "max-size", "128KB", "Output size limit (e.g. 128KB, 2MB)")
	optimizeCmd.Flags().StringVar(&fpsMin, "fps-min", "1", "Minimum frame rate (absolute or % of native)")
	optimizeCmd.Flags().StringVar(&fpsMax, "fps-max", "100%", "Maximum frame rate (absolute or % of native)")
	optimizeCmd.Flags().StringVar(&sizeMin, "size-min", "24", "Minimum frame width (absolute or % of native)")
	optimizeCmd.Flags().StringVar(&sizeMax, "size-max", "100%", "Maximum frame width (absolute or % of native)")
	optimizeCmd.Flags().StringVar(&lossyMin, "lossy-min", "0", "Minimum gifsicle lossy level")
	optimizeCmd.Flags().StringVar(&lossyMax, "lossy-max", "200", "Maximum gifsicle lossy level")
	optimizeCmd.Flags().StringVar(&strategy, "strategy", optimize.StrategyElimination, "Search strategy: elimination or study")
	optimizeCmd.Flags().IntVar(&trials, "trials", 0, "Max renders for the study strategy (0 = unlimited)")
	optimizeCmd.Flags().DurationVar(&timeout, "timeout", 0, "Wall-clock limit for the study strategy (0 = none)")
	optimizeCmd.Flags().IntVar(&jobs, "jobs", 1, "Concurrent rounds for the study strategy")
	optimizeCmd.Flags().StringVar(&tracePath, "trace", "", "Write a JSONL trial trace to this path")
	optimizeCmd.Flags().StringVar(&tuningPath, "tuning", "", "TOML tuning file overriding scoring defaults")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if err := checkTools(); err != nil {
		return err
	}

	tuning, err := config.Load(tuningPath)
	if err != nil {
		return &usageError{err: err}
	}

	limit, err := humanize.ParseBytes(maxSize)
	if err != nil || limit == 0 {
		return &usageError{err: fmt.Errorf("invalid --max-size %q", maxSize)}
	}

	ctx := cmd.Context()

	o, err := optimize.New(ctx, render.NewFFmpegRenderer(), args[0], tuning)
	if err != nil {
		return err
	}
	defer o.Close()

	info := o.Info()

	fpsBounds, err := resolveBounds("fps", fpsMin, fpsMax, info.FPS, true)
	if err != nil {
		return err
	}
	sizeBounds, err := resolveBounds("size", sizeMin, sizeMax, float64(info.Width), false)
	if err != nil {
		return err
	}
	lossyBounds, err := resolveBounds("lossy", lossyMin, lossyMax, float64(search.LossyMax), false)
	if err != nil {
		return err
	}

	req := optimize.Request{
		OutputPath: outPath,
		SizeLimit:  int64(limit),
		FPS:        fpsBounds,
		Size:       sizeBounds,
		Lossy:      lossyBounds,
		Strategy:   strategy,
		Trials:     trials,
		Timeout:    timeout,
		Jobs:       jobs,
	}

	if tracePath != "" {
		w, err := trace.NewWriter(tracePath)
		if err != nil {
			return err
		}
		defer w.Close()
		o.SetTrace(w)
	}

	res, err := o.Optimize(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %s (fps=%d size=%d lossy=%d, %s, %d renders)\n",
		outPath, res.Best.FPS, res.Best.Size, res.Best.Lossy,
		humanize.Bytes(uint64(res.Artifact.ByteSize)), res.Renders)

	return nil
}

// resolveBounds turns a pair of flag values into bounds, resolving
// percentages against the source's native value.
func resolveBounds(dim, minVal, maxVal string, native float64, wholeFrames bool) (search.Bounds, error) {
	lo, err := resolveBound(minVal, native, wholeFrames)
	if err != nil {
		return search.Bounds{}, &usageError{err: fmt.Errorf("invalid %s-min %q: %w", dim, minVal, err)}
	}
	hi, err := resolveBound(maxVal, native, wholeFrames)
	if err != nil {
		return search.Bounds{}, &usageError{err: fmt.Errorf("invalid %s-max %q: %w", dim, maxVal, err)}
	}
	return search.Bounds{Min: lo, Max: hi}, nil
}

// resolveBound parses an absolute value or a percentage of native.
// Percentages round half away from zero; with wholeFrames set a resolved
// percentage is clamped to the discrete [1, floor(native)] frame-rate
// domain, so "100%" of a 29.97 fps source resolves to 29. Absolute
// values pass through unclamped and are validated by the optimizer.
func resolveBound(val string, native float64, wholeFrames bool) (int, error) {
	pct, ok := strings.CutSuffix(val, "%")
	if !ok {
		return strconv.Atoi(val)
	}

	p, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
	if err != nil {
		return 0, fmt.Errorf("bad percentage: %w", err)
	}

	x := int(math.Round(native * p / 100))
	if wholeFrames {
		if whole := int(native); x > whole {
			x = whole
		}
		if x < 1 {
			x = 1
		}
	}
	return x, nil
}
