// Package render drives the external digital-human renderer binary.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/book-expert/logger"

	"github.com/book-expert/avatar-service/internal/config"
	"github.com/book-expert/avatar-service/internal/core"
)

const (
	logFmtRenderStart = "Rendering job %s: audio=%s video=%s batch=%d pose track=%t"
	logFmtRenderDone  = "Rendered job %s to %s"
)

var (
	// ErrJobPathEmpty indicates a render job without audio, video or output path.
	ErrJobPathEmpty = errors.New("render job needs audio, video and output paths")
	// ErrNoOutput indicates that the renderer exited cleanly but wrote nothing.
	ErrNoOutput = errors.New("renderer produced no output file")
)

// Renderer implements core.VideoRenderer by running the renderer binary.
type Renderer struct {
	binaryPath string
	batchSize  int
	log        *logger.Logger
}

// NewRenderer creates a Renderer from the renderer configuration section.
func NewRenderer(cfg config.RendererConfig, log *logger.Logger) *Renderer {
	return &Renderer{
		binaryPath: cfg.BinaryPath,
		batchSize:  cfg.BatchSize,
		log:        log,
	}
}

// Render runs one job and checks that the output video exists afterwards.
func (r *Renderer) Render(ctx context.Context, job core.RenderJob) error {
	if job.AudioPath == "" || job.VideoPath == "" || job.OutputPath == "" {
		return ErrJobPathEmpty
	}

	r.log.Info(logFmtRenderStart, job.WorkID, job.AudioPath, job.VideoPath, r.batchSize, job.PoseTrackPath != "")

	// #nosec G204 -- binary path comes from service configuration, paths are job-local
	cmd := exec.CommandContext(ctx, r.binaryPath, Args(job, r.batchSize)...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("renderer binary execution failed: %w - output: %s", err, string(output))
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutput, job.OutputPath)
	}

	r.log.Info(logFmtRenderDone, job.WorkID, job.OutputPath)

	return nil
}

// Args builds the renderer command line. The pose track flag is only passed when the job
// carries one.
func Args(job core.RenderJob, batchSize int) []string {
	args := []string{
		"--audio", job.AudioPath,
		"--video", job.VideoPath,
		"--output", job.OutputPath,
		"--batch-size", strconv.Itoa(batchSize),
	}

	if job.PoseTrackPath != "" {
		args = append(args, "--pose-track", job.PoseTrackPath)
	}

	return args
}
