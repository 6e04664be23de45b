// Package pipeline turns a synthesis request into a talking-head video: audio, head-motion
// plan, render and mux.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/avatar-service/internal/config"
	"github.com/book-expert/avatar-service/internal/core"
	"github.com/book-expert/avatar-service/internal/media"
	"github.com/book-expert/avatar-service/internal/motion"
	"github.com/book-expert/avatar-service/internal/objectstore"
	"github.com/book-expert/avatar-service/internal/render"
)

const (
	filePermissions  = 0o600
	workDirPrefix    = "avatar-"
	renderedFileName = "rendered.mp4"
	defaultVideoExt  = ".mp4"
)

// Log formats.
const (
	logFmtJobStart        = "Job %s started: audio mode=%s, motion mode=%s"
	logFmtDurationProbe   = "Job %s: could not probe audio duration, using fallback %.1fs: %v"
	logFmtMotionPlan      = "Job %s: %d motion segments, %d frames at %.2f fps, seed %d"
	logFmtMotionDisabled  = "Job %s: head motion disabled"
	logFmtJobDone         = "Job %s finished: %s of video at %s"
	logFmtCleanupFailed   = "Failed to remove work directory '%s': %v"
	errFmtDownloadFailed  = "failed to download '%s': %w"
	errFmtWriteFailed     = "failed to write %s: %w"
	errFmtUploadFailed    = "failed to upload '%s': %w"
	errFmtInvalidRequest  = "%w: %w"
	errFmtMotionPlan      = "invalid motion settings: %w"
	errFmtMotionTimeline  = "failed to generate motion timeline: %w"
	errFmtRenderFailed    = "failed to render video: %w"
	errFmtMuxFailed       = "failed to mux final video: %w"
	errFmtSynthesisFailed = "failed to synthesize speech: %w"
)

var (
	// ErrInvalidRequest is wrapped by every request validation failure.
	ErrInvalidRequest = errors.New("invalid synthesis request")
	errAudioMode      = errors.New("audio_input_mode must be tts or upload")
	errTextMissing    = errors.New("text is required in tts mode")
	errAudioKey       = errors.New("audio_key is required in upload mode")
	errVideoKey       = errors.New("video_key is required")
	errWorkID         = errors.New("work_id must be a plain name")
	errFrameRate      = errors.New("fps must be a positive number")
	errDuration       = errors.New("duration_seconds must not be negative")
)

// Options are the pipeline settings taken from the service configuration.
type Options struct {
	TempDir          string
	ResultDir        string
	CleanTemp        bool
	FPS              float64
	DefaultMode      motion.Mode
	DefaultIntensity float64
	FallbackDuration float64
	Limits           motion.Limits
}

// OptionsFromConfig extracts the pipeline options from a validated configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TempDir:          cfg.Renderer.TempDir,
		ResultDir:        cfg.Renderer.ResultDir,
		CleanTemp:        cfg.Renderer.ShouldCleanTemp(),
		FPS:              cfg.Renderer.FPS,
		DefaultMode:      motion.Mode(cfg.Motion.DefaultMode),
		DefaultIntensity: cfg.Motion.DefaultIntensity,
		FallbackDuration: cfg.Motion.FallbackDurationSeconds,
		Limits:           cfg.Motion.Limits(),
	}
}

// Pipeline runs synthesis jobs. It is safe for concurrent use; every job works in its own
// directory.
type Pipeline struct {
	store    core.ObjectStore
	speech   core.SpeechSynthesizer
	renderer core.VideoRenderer
	media    core.MediaToolkit
	opts     Options
	log      *logger.Logger
	now      func() time.Time
}

// New creates a Pipeline.
func New(
	store core.ObjectStore,
	speech core.SpeechSynthesizer,
	renderer core.VideoRenderer,
	toolkit core.MediaToolkit,
	opts Options,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		store:    store,
		speech:   speech,
		renderer: renderer,
		media:    toolkit,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// job is the state of one Run call.
type job struct {
	req       core.SynthesisRequest
	workID    string
	workDir   string
	plan      motion.Plan
	fps       float64
	audioPath string
	videoPath string
}

// Run executes one synthesis request end to end.
func (p *Pipeline) Run(ctx context.Context, req core.SynthesisRequest) (*core.SynthesisResult, error) {
	current, err := p.prepare(req)
	if err != nil {
		return nil, err
	}

	p.log.Info(logFmtJobStart, current.workID, req.AudioInputMode, current.plan.Mode)

	err = media.EnsureDir(current.workDir)
	if err != nil {
		return nil, err
	}

	if p.opts.CleanTemp {
		defer p.removeWorkDir(current.workDir)
	}

	audioReport, err := p.fetchAudio(ctx, current)
	if err != nil {
		return nil, err
	}

	current.videoPath, err = p.fetchVideo(ctx, current)
	if err != nil {
		return nil, err
	}

	duration := p.resolveDuration(ctx, current)

	err = p.opts.Limits.Check(duration, current.fps)
	if err != nil {
		return nil, fmt.Errorf(errFmtInvalidRequest, ErrInvalidRequest, err)
	}

	result := &core.SynthesisResult{
		WorkID:         current.workID,
		VideoKey:       objectstore.VideoKey(current.workID),
		PoseTrackKey:   "",
		LocalVideoPath: "",
		Duration:       duration,
		FrameCount:     int(math.Floor(duration * current.fps)),
		SegmentCount:   0,
		AudioReport:    audioReport,
		MotionReport:   "",
	}

	timeline, poseTrackPath, err := p.applyMotion(ctx, current, duration, result)
	if err != nil {
		return nil, err
	}

	result.MotionReport = motion.Report(motion.ReportInput{
		WorkID:      current.workID,
		GeneratedAt: p.now(),
		Plan:        current.plan,
		Timeline:    timeline,
	})

	err = p.produceVideo(ctx, current, poseTrackPath, result)
	if err != nil {
		return nil, err
	}

	p.log.Info(logFmtJobDone, current.workID, media.FormatDuration(duration), result.LocalVideoPath)

	return result, nil
}

// prepare validates the request and resolves its motion plan before any work is done.
func (p *Pipeline) prepare(req core.SynthesisRequest) (*job, error) {
	err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	workID := req.WorkID
	if workID == "" {
		workID = uuid.NewString()
	}

	mode := req.MotionMode
	if mode == "" {
		mode = p.opts.DefaultMode
	}

	mode, err = motion.ParseMode(string(mode))
	if err != nil {
		return nil, fmt.Errorf(errFmtMotionPlan, err)
	}

	intensity := req.Intensity
	if intensity == 0 {
		intensity = p.opts.DefaultIntensity
	}

	plan, err := motion.NewPlan(mode, intensity, req.Custom)
	if err != nil {
		return nil, fmt.Errorf(errFmtMotionPlan, err)
	}

	fps := req.FPS
	if fps == 0 {
		fps = p.opts.FPS
	}

	if req.Duration > 0 {
		err = p.opts.Limits.Check(req.Duration, fps)
		if err != nil {
			return nil, fmt.Errorf(errFmtInvalidRequest, ErrInvalidRequest, err)
		}
	}

	return &job{
		req:       req,
		workID:    workID,
		workDir:   filepath.Join(p.opts.TempDir, workDirPrefix+workID),
		plan:      plan,
		fps:       fps,
		audioPath: "",
		videoPath: "",
	}, nil
}

func validateRequest(req core.SynthesisRequest) error {
	var reason error

	switch {
	case req.AudioInputMode != core.AudioInputTTS && req.AudioInputMode != core.AudioInputUpload:
		reason = errAudioMode
	case req.AudioInputMode == core.AudioInputTTS && req.Text == "":
		reason = errTextMissing
	case req.AudioInputMode == core.AudioInputUpload && req.AudioKey == "":
		reason = errAudioKey
	case req.VideoKey == "":
		reason = errVideoKey
	case req.WorkID != "" && (filepath.Base(req.WorkID) != req.WorkID || req.WorkID == ".." || req.WorkID == "."):
		reason = errWorkID
	case req.FPS < 0 || math.IsNaN(req.FPS) || math.IsInf(req.FPS, 0):
		reason = errFrameRate
	case req.Duration < 0 || math.IsNaN(req.Duration) || math.IsInf(req.Duration, 0):
		reason = errDuration
	}

	if reason != nil {
		return fmt.Errorf(errFmtInvalidRequest, ErrInvalidRequest, reason)
	}

	if req.AudioInputMode == core.AudioInputUpload {
		_, err := media.AudioFormatOf(req.AudioKey)
		if err != nil {
			return fmt.Errorf(errFmtInvalidRequest, ErrInvalidRequest, err)
		}
	}

	return nil
}

// fetchAudio places the job's audio track in its work directory and describes it.
func (p *Pipeline) fetchAudio(ctx context.Context, current *job) (string, error) {
	if current.req.AudioInputMode == core.AudioInputTTS {
		return p.synthesizeAudio(ctx, current)
	}

	data, err := p.store.Download(ctx, current.req.AudioKey)
	if err != nil {
		return "", fmt.Errorf(errFmtDownloadFailed, current.req.AudioKey, err)
	}

	format, err := media.AudioFormatOf(current.req.AudioKey)
	if err != nil {
		return "", err
	}

	current.audioPath = filepath.Join(current.workDir, current.workID+"."+string(format))

	err = os.WriteFile(current.audioPath, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf(errFmtWriteFailed, current.audioPath, err)
	}

	return uploadReport{
		GeneratedAt: p.now(),
		Key:         current.req.AudioKey,
		FileName:    path.Base(current.req.AudioKey),
		Format:      format,
		SizeBytes:   len(data),
	}.String(), nil
}

func (p *Pipeline) synthesizeAudio(ctx context.Context, current *job) (string, error) {
	speech, err := p.speech.Synthesize(ctx, core.SpeechRequest{
		APIKey: current.req.APIKey,
		Model:  current.req.Model,
		Voice:  current.req.Voice,
		Text:   current.req.Text,
	})
	if err != nil {
		return "", fmt.Errorf(errFmtSynthesisFailed, err)
	}

	current.audioPath = filepath.Join(current.workDir, current.workID+"."+speech.Format)

	err = os.WriteFile(current.audioPath, speech.Audio, filePermissions)
	if err != nil {
		return "", fmt.Errorf(errFmtWriteFailed, current.audioPath, err)
	}

	return speechReport{
		GeneratedAt: p.now(),
		Text:        current.req.Text,
		Model:       speech.Model,
		VoiceID:     speech.Voice,
		VoiceName:   p.speech.VoiceName(speech.Voice),
		Format:      speech.Format,
		SizeBytes:   len(speech.Audio),
		TraceID:     speech.TraceID,
	}.String(), nil
}

func (p *Pipeline) fetchVideo(ctx context.Context, current *job) (string, error) {
	data, err := p.store.Download(ctx, current.req.VideoKey)
	if err != nil {
		return "", fmt.Errorf(errFmtDownloadFailed, current.req.VideoKey, err)
	}

	ext := path.Ext(current.req.VideoKey)
	if ext == "" {
		ext = defaultVideoExt
	}

	videoPath := filepath.Join(current.workDir, "source"+ext)

	err = os.WriteFile(videoPath, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf(errFmtWriteFailed, videoPath, err)
	}

	return videoPath, nil
}

// resolveDuration prefers the requested duration, then the probed audio length, then the
// configured fallback.
func (p *Pipeline) resolveDuration(ctx context.Context, current *job) float64 {
	if current.req.Duration > 0 {
		return current.req.Duration
	}

	duration, err := p.media.ProbeDuration(ctx, current.audioPath)
	if err != nil {
		p.log.Warn(logFmtDurationProbe, current.workID, p.opts.FallbackDuration, err)

		return p.opts.FallbackDuration
	}

	return duration
}

// applyMotion generates the timeline and pose track for an enabled plan. It returns a nil
// timeline and an empty path when motion is disabled.
func (p *Pipeline) applyMotion(
	ctx context.Context,
	current *job,
	duration float64,
	result *core.SynthesisResult,
) (*motion.Timeline, string, error) {
	if !current.plan.Enabled {
		p.log.Info(logFmtMotionDisabled, current.workID)

		return nil, "", nil
	}

	seed := current.req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	timeline, err := motion.GenerateTimeline(current.plan.Config, duration, seed)
	if err != nil {
		return nil, "", fmt.Errorf(errFmtMotionTimeline, err)
	}

	poses, err := motion.RenderPoseSequence(timeline, duration, current.fps)
	if err != nil {
		return nil, "", fmt.Errorf(errFmtMotionTimeline, err)
	}

	poseTrackPath := filepath.Join(current.workDir, current.workID+"-poses.json")

	data, err := render.WritePoseTrack(poseTrackPath, current.fps, poses)
	if err != nil {
		return nil, "", err
	}

	result.PoseTrackKey = objectstore.PoseTrackKey(current.workID)

	err = p.store.Upload(ctx, result.PoseTrackKey, data)
	if err != nil {
		return nil, "", fmt.Errorf(errFmtUploadFailed, result.PoseTrackKey, err)
	}

	result.SegmentCount = timeline.Len()
	result.FrameCount = len(poses)

	p.log.Info(logFmtMotionPlan, current.workID, timeline.Len(), len(poses), current.fps, seed)

	return timeline, poseTrackPath, nil
}

// produceVideo renders, muxes, uploads and stores the final video locally.
func (p *Pipeline) produceVideo(
	ctx context.Context,
	current *job,
	poseTrackPath string,
	result *core.SynthesisResult,
) error {
	renderedPath := filepath.Join(current.workDir, renderedFileName)

	err := p.renderer.Render(ctx, core.RenderJob{
		WorkID:        current.workID,
		AudioPath:     current.audioPath,
		VideoPath:     current.videoPath,
		PoseTrackPath: poseTrackPath,
		OutputPath:    renderedPath,
	})
	if err != nil {
		return fmt.Errorf(errFmtRenderFailed, err)
	}

	finalName := path.Base(result.VideoKey)
	finalPath := filepath.Join(current.workDir, finalName)

	err = p.media.Mux(ctx, current.audioPath, renderedPath, finalPath)
	if err != nil {
		return fmt.Errorf(errFmtMuxFailed, err)
	}

	data, err := os.ReadFile(finalPath)
	if err != nil {
		return fmt.Errorf("failed to read final video: %w", err)
	}

	err = p.store.Upload(ctx, result.VideoKey, data)
	if err != nil {
		return fmt.Errorf(errFmtUploadFailed, result.VideoKey, err)
	}

	resultDir := filepath.Join(p.opts.ResultDir, current.workID)

	err = media.EnsureDir(resultDir)
	if err != nil {
		return err
	}

	localPath := filepath.Join(resultDir, finalName)

	err = os.WriteFile(localPath, data, filePermissions)
	if err != nil {
		return fmt.Errorf(errFmtWriteFailed, localPath, err)
	}

	absPath, err := filepath.Abs(localPath)
	if err != nil {
		absPath = localPath
	}

	result.LocalVideoPath = absPath

	return nil
}

func (p *Pipeline) removeWorkDir(workDir string) {
	err := os.RemoveAll(workDir)
	if err != nil {
		p.log.Warn(logFmtCleanupFailed, workDir, err)
	}
}
