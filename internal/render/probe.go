package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ffprobe JSON wire types, limited to the fields the engine needs.

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

// ParseProbeJSON converts raw ffprobe JSON output into a VideoInfo.
// Exported for testing without a real ffprobe binary.
func ParseProbeJSON(data []byte) (VideoInfo, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return VideoInfo{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		if s.CodecType != "" && s.CodecType != "video" {
			continue
		}

		fps, err := parseRational(s.RFrameRate)
		if err != nil {
			return VideoInfo{}, fmt.Errorf("could not determine fps of the video: %w", err)
		}
		if s.Width <= 0 {
			return VideoInfo{}, fmt.Errorf("could not determine width of the video")
		}
		if s.Height <= 0 {
			return VideoInfo{}, fmt.Errorf("could not determine height of the video")
		}

		return VideoInfo{FPS: fps, Width: s.Width, Height: s.Height}, nil
	}

	return VideoInfo{}, fmt.Errorf("no video stream found")
}

// parseRational parses an ffprobe frame-rate fraction like "30000/1001".
func parseRational(s string) (float64, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}

	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	d, err := strconv.Atoi(den)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q: %w", s, err)
	}
	if d == 0 || n <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}

	return float64(n) / float64(d), nil
}
