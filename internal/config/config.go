// Package config loads the optional tuning file. The scoring exponents
// vary across empirical iterations of the tool and are deliberately not
// hard-coded semantics; the file lets users adjust them without a
// rebuild.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/cwbudde/gifsqueeze/internal/search"
)

// Tuning holds the adjustable knobs of the search engine.
type Tuning struct {
	// SizeExponent flattens the frame-size distance (sub-linear, since
	// file size grows super-linearly with image dimensions).
	SizeExponent float64 `toml:"size_exponent"`

	// LossyExponent sharpens the inverted compression-level distance.
	LossyExponent float64 `toml:"lossy_exponent"`

	// Study configures the alternate continuous search strategy.
	Study StudyTuning `toml:"study"`
}

// StudyTuning are the defaults for the mayfly-based strategy.
type StudyTuning struct {
	// Population is the swarm size per round. The optimizer library
	// requires at least 20.
	Population int `toml:"population"`

	// RoundIterations is the iteration budget of a single round.
	RoundIterations int `toml:"round_iterations"`

	// Patience is the number of rounds without significant improvement
	// before the study stops early.
	Patience int `toml:"patience"`

	// Threshold is the minimum relative objective improvement that
	// counts as progress.
	Threshold float64 `toml:"threshold"`
}

// Default returns the tuning used when no file overrides it.
func Default() Tuning {
	exp := search.DefaultExponents()
	return Tuning{
		SizeExponent:  exp.Size,
		LossyExponent: exp.Lossy,
		Study: StudyTuning{
			Population:      20,
			RoundIterations: 10,
			Patience:        3,
			Threshold:       0.001,
		},
	}
}

// Load reads the TOML tuning file at path over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := toml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file %q: %w", path, err)
	}

	if t.SizeExponent <= 0 || t.LossyExponent <= 0 {
		return t, fmt.Errorf("tuning exponents must be positive")
	}
	return t, nil
}

// Exponents converts the tuning into the scorer's form.
func (t Tuning) Exponents() search.Exponents {
	return search.Exponents{
		Size:  t.SizeExponent,
		Lossy: t.LossyExponent,
	}
}
