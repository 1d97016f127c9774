package main

import (
	"errors"
	"testing"

	"github.com/cwbudde/gifsqueeze/internal/optimize"
)

func TestResolveBoundPercent(t *testing.T) {
	tests := []struct {
		val         string
		native      float64
		wholeFrames bool
		want        int
	}{
		{"50%", 640, false, 320},
		{"100%", 640, false, 640},
		{"33%", 100, false, 33},
		{"25.5%", 200, false, 51},
		// Rounds half away from zero.
		{"50%", 25, false, 13},
		// Frame rates clamp percentages to whole frames of the source.
		{"100%", 29.97, true, 29},
		{"1%", 29.97, true, 1},
		{"50%", 30, true, 15},
	}

	for _, tt := range tests {
		got, err := resolveBound(tt.val, tt.native, tt.wholeFrames)
		if err != nil {
			t.Errorf("resolveBound(%q): %v", tt.val, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveBound(%q, %f) = %d, want %d", tt.val, tt.native, got, tt.want)
		}
	}
}

func TestResolveBoundAbsolute(t *testing.T) {
	got, err := resolveBound("24", 640, false)
	if err != nil {
		t.Fatalf("resolveBound: %v", err)
	}
	if got != 24 {
		t.Errorf("expected 24, got %d", got)
	}

	// Absolute values are not clamped; the optimizer validates them.
	got, err = resolveBound("45", 29.97, true)
	if err != nil {
		t.Fatalf("resolveBound: %v", err)
	}
	if got != 45 {
		t.Errorf("expected 45, got %d", got)
	}
}

func TestResolveBoundInvalid(t *testing.T) {
	for _, val := range []string{"abc", "12.5", "%", "x%", ""} {
		if _, err := resolveBound(val, 640, false); err == nil {
			t.Errorf("expected error for %q", val)
		}
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitSuccess},
		{"unsatisfiable", optimize.ErrUnsatisfiable, exitUnsatisfiable},
		{"invalid bounds", &optimize.BoundsError{Dim: "fps", Reason: "min above max"}, exitUsage},
		{"usage", &usageError{err: errors.New("bad flag")}, exitUsage},
		{"missing tool", &toolError{tool: "gifsicle"}, exitMissingTools},
		{"render failure", &optimize.RenderError{Stage: "palette", Err: errors.New("boom")}, exitUnsatisfiable},
		{"probe failure", &optimize.ProbeError{Path: "in.mp4", Err: errors.New("no stream")}, exitUnsatisfiable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
