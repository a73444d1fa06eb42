// Package probe reads media metadata from stored video files with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

type FFProbe struct{}

// NewFFProbe fails when no ffprobe binary is on PATH.
func NewFFProbe() (*FFProbe, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	return &FFProbe{}, nil
}

func (p *FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe error: %w", err)
	}
	return ParseDuration([]byte(out))
}

// ParseDuration extracts format.duration, in seconds, from ffprobe JSON output.
func ParseDuration(data []byte) (float64, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("json unmarshal error: %w", err)
	}
	if out.Format.Duration == "" {
		return 0, fmt.Errorf("duration missing from ffprobe output")
	}
	dur, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing duration: %w", err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("invalid duration from ffprobe: %v", dur)
	}
	return dur, nil
}
