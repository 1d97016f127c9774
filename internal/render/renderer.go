// Package render wraps the external ffmpeg/ffprobe/gifsicle tool chain
// behind a Renderer interface and memoizes its expensive, deterministic
// invocations in a per-run Cache.
package render

import "context"

// VideoInfo holds the probed properties of a source video.
type VideoInfo struct {
	FPS    float64
	Width  int
	Height int
}

// Renderer is the external tool boundary the engine consumes. All
// operations are expected to be deterministic given identical inputs,
// which is what makes memoization sound. Every render writes its result
// to the caller-chosen output path so the cache can stage and commit
// files atomically.
type Renderer interface {
	// Probe determines the native frame rate and dimensions of a video.
	Probe(ctx context.Context, path string) (VideoInfo, error)

	// MakePalette generates a color palette image from the input video.
	MakePalette(ctx context.Context, input, output string) error

	// MakeIntermediate down-samples the input video to the given frame
	// rate and width, preserving aspect ratio.
	MakeIntermediate(ctx context.Context, input string, fps, width int, output string) error

	// MakeGIF renders the input video to an uncompressed GIF using the
	// given palette, frame rate, and width.
	MakeGIF(ctx context.Context, input, palette string, fps, width int, output string) error

	// Compress runs the lossy GIF compressor at the given level.
	Compress(ctx context.Context, input string, lossy int, output string) error
}
