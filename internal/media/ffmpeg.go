// Package media wraps ffmpeg and ffprobe and holds the media helpers used in job reports.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/book-expert/logger"

	"github.com/book-expert/avatar-service/internal/config"
)

const (
	logFmtMuxStart    = "Muxing %s and %s into %s (crf %d)"
	logFmtProbeResult = "Probed %s: %.2fs"
	errFmtExecFailed  = "%s execution failed: %w - output: %s"
)

var (
	// ErrPathEmpty indicates a missing input or output path.
	ErrPathEmpty = errors.New("media path cannot be empty")
	// ErrInvalidProbeOutput indicates that ffprobe did not print a usable duration.
	ErrInvalidProbeOutput = errors.New("ffprobe returned no usable duration")
)

// Toolkit implements core.MediaToolkit with the ffmpeg command line tools.
type Toolkit struct {
	ffmpegPath  string
	ffprobePath string
	crf         int
	log         *logger.Logger
}

// NewToolkit creates a Toolkit from the ffmpeg configuration section.
func NewToolkit(cfg config.FFmpegConfig, log *logger.Logger) *Toolkit {
	return &Toolkit{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		crf:         cfg.CRF,
		log:         log,
	}
}

// ProbeDuration returns the container duration of a media file in seconds.
func (t *Toolkit) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if path == "" {
		return 0, ErrPathEmpty
	}

	// #nosec G204 -- binary path comes from service configuration
	cmd := exec.CommandContext(ctx, t.ffprobePath, ProbeArgs(path)...)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf(errFmtExecFailed, t.ffprobePath, err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil || duration <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProbeOutput, strings.TrimSpace(string(output)))
	}

	t.log.Info(logFmtProbeResult, path, duration)

	return duration, nil
}

// Mux combines an audio track and a video track into an H.264/AAC file.
func (t *Toolkit) Mux(ctx context.Context, audioPath, videoPath, outputPath string) error {
	if audioPath == "" || videoPath == "" || outputPath == "" {
		return ErrPathEmpty
	}

	t.log.Info(logFmtMuxStart, audioPath, videoPath, outputPath, t.crf)

	// #nosec G204 -- binary path comes from service configuration
	cmd := exec.CommandContext(ctx, t.ffmpegPath, MuxArgs(audioPath, videoPath, outputPath, t.crf)...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf(errFmtExecFailed, t.ffmpegPath, err, string(output))
	}

	return nil
}

// ProbeArgs builds the ffprobe arguments that print only the format duration.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// MuxArgs builds the ffmpeg arguments for the final mux.
func MuxArgs(audioPath, videoPath, outputPath string, crf int) []string {
	return []string{
		"-loglevel", "warning",
		"-y",
		"-i", audioPath,
		"-i", videoPath,
		"-c:a", "aac",
		"-c:v", "libx264",
		"-crf", strconv.Itoa(crf),
		"-strict", "-2",
		outputPath,
	}
}
