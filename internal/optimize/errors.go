package optimize

import (
	"errors"
	"fmt"
)

// ErrUnsatisfiable is returned when every candidate in the declared
// bounds produces a file above the size limit. The run itself completed
// correctly; the answer is "no".
var ErrUnsatisfiable = errors.New("no candidate within the given bounds can satisfy the size limit")

// BoundsError reports a bounds value outside its domain, detected before
// any render happens.
type BoundsError struct {
	Dim    string
	Reason string
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("invalid %s bounds: %s", e.Dim, e.Reason)
}

// ProbeError means the source video's properties could not be
// determined. Fatal at construction time, before any search begins.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %q: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// RenderError means an external invocation failed. Fatal to the current
// run, never retried.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
