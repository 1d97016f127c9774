package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Default binary names, overridable per renderer for tests or unusual
// installations.
const (
	DefaultFFmpeg   = "ffmpeg"
	DefaultFFprobe  = "ffprobe"
	DefaultGifsicle = "gifsicle"
)

// FFmpegRenderer implements Renderer by invoking ffmpeg, ffprobe, and
// gifsicle as subprocesses.
type FFmpegRenderer struct {
	FFmpeg   string
	FFprobe  string
	Gifsicle string
}

// NewFFmpegRenderer returns a renderer using the default binary names.
func NewFFmpegRenderer() *FFmpegRenderer {
	return &FFmpegRenderer{
		FFmpeg:   DefaultFFmpeg,
		FFprobe:  DefaultFFprobe,
		Gifsicle: DefaultGifsicle,
	}
}

// Probe runs a single ffprobe JSON call against path and parses the
// primary video stream's frame rate and dimensions.
func (r *FFmpegRenderer) Probe(ctx context.Context, path string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, r.FFprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-select_streams", "v:0",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseProbeJSON(out)
}

// MakePalette generates a palette from the whole input.
func (r *FFmpegRenderer) MakePalette(ctx context.Context, input, output string) error {
	return r.run(ctx, r.FFmpeg,
		"-y",
		"-i", input,
		"-vf", "palettegen",
		output,
	)
}

// MakeIntermediate down-samples the input once so that every subsequent
// candidate render reads fewer frames and pixels.
func (r *FFmpegRenderer) MakeIntermediate(ctx context.Context, input string, fps, width int, output string) error {
	return r.run(ctx, r.FFmpeg,
		"-y",
		"-i", input,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", fps, width),
		output,
	)
}

// MakeGIF renders a looping GIF at the candidate frame rate and width
// using the precomputed palette.
func (r *FFmpegRenderer) MakeGIF(ctx context.Context, input, palette string, fps, width int, output string) error {
	return r.run(ctx, r.FFmpeg,
		"-y",
		"-i", input,
		"-i", palette,
		"-lavfi", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos,paletteuse", fps, width),
		"-loop", "0",
		output,
	)
}

// Compress runs gifsicle's heaviest optimization at the given lossy level.
func (r *FFmpegRenderer) Compress(ctx context.Context, input string, lossy int, output string) error {
	return r.run(ctx, r.Gifsicle,
		"-O3",
		fmt.Sprintf("--lossy=%d", lossy),
		input,
		"-o", output,
	)
}

// run executes a tool, capturing stderr for the error message since
// ffmpeg reports everything there.
func (r *FFmpegRenderer) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, lastLine(stderr.String()))
	}
	return nil
}

// lastLine trims a stderr dump down to its final non-empty line, which
// for ffmpeg and gifsicle is where the actual failure reason lives.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
