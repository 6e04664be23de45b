// Package config provides the configuration structure for the avatar-service.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"

	"github.com/book-expert/avatar-service/internal/motion"
)

// Defaults applied to fields left empty in the TOML file.
const (
	defaultNATSURL               = "nats://127.0.0.1:4222"
	defaultSynthesisSubject      = "avatar.synthesis.requested"
	defaultArtifactBucket        = "AVATAR_ARTIFACTS"
	defaultRequestTimeoutSeconds = 600
	defaultMinimaxBaseURL        = "https://api.minimax.chat"
	defaultMinimaxModel          = "speech-02-hd"
	defaultMinimaxVoice          = "male-qn-qingse"
	defaultMinimaxTimeoutSeconds = 30
	defaultRendererBinary        = "heygem-render"
	defaultRendererBatchSize     = 4
	defaultRendererFPS           = 25.0
	defaultFFmpegPath            = "ffmpeg"
	defaultFFprobePath           = "ffprobe"
	defaultFFmpegCRF             = 15
	defaultFallbackDuration      = 8.0
	defaultMaxDurationSeconds    = 600.0
	defaultMaxFrames             = 36_000
	defaultListenAddr            = ":8080"
	defaultResultDir             = "result"
)

// Renderer batch size bounds.
const (
	MinBatchSize = 1
	MaxBatchSize = 16
)

var (
	// ErrNATSURLEmpty indicates that the NATS URL is empty.
	ErrNATSURLEmpty = errors.New("nats url cannot be empty")
	// ErrSubjectEmpty indicates that the synthesis subject is empty.
	ErrSubjectEmpty = errors.New("synthesis subject cannot be empty")
	// ErrBucketEmpty indicates that the artifact bucket is empty.
	ErrBucketEmpty = errors.New("artifact bucket cannot be empty")
	// ErrBatchSizeRange indicates a renderer batch size outside [MinBatchSize, MaxBatchSize].
	ErrBatchSizeRange = errors.New("renderer batch size must be between 1 and 16")
	// ErrFPSRange indicates a non-positive renderer frame rate.
	ErrFPSRange = errors.New("renderer fps must be greater than zero")
	// ErrCRFRange indicates an ffmpeg CRF outside [0, 51].
	ErrCRFRange = errors.New("ffmpeg crf must be between 0 and 51")
	// ErrTimeoutNegative indicates a negative timeout.
	ErrTimeoutNegative = errors.New("timeouts must be non-negative")
	// ErrFallbackDuration indicates a non-positive fallback duration.
	ErrFallbackDuration = errors.New("motion fallback duration must be greater than zero")
	// ErrMotionLimits indicates motion limits that are non-positive or above the hard caps.
	ErrMotionLimits = errors.New("motion limits are out of range")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                   string `toml:"url"`
	SynthesisSubject      string `toml:"synthesis_subject"`
	ArtifactBucket        string `toml:"artifact_bucket"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// RequestTimeout returns the request/reply timeout for one synthesis job.
func (n NATSConfig) RequestTimeout() time.Duration {
	return time.Duration(n.RequestTimeoutSeconds) * time.Second
}

// MinimaxConfig holds the configuration for the Minimax speech API.
type MinimaxConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	DefaultVoice   string `toml:"default_voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout for speech requests.
func (m MinimaxConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// RendererConfig holds the configuration for the digital-human renderer.
type RendererConfig struct {
	BinaryPath string  `toml:"binary_path"`
	BatchSize  int     `toml:"batch_size"`
	FPS        float64 `toml:"fps"`
	TempDir    string  `toml:"temp_dir"`
	ResultDir  string  `toml:"result_dir"`
	CleanTemp  *bool   `toml:"clean_temp"`
}

// ShouldCleanTemp reports whether per-job work directories are removed after a job.
func (r RendererConfig) ShouldCleanTemp() bool {
	return r.CleanTemp == nil || *r.CleanTemp
}

// FFmpegConfig holds the paths and encoding settings for ffmpeg.
type FFmpegConfig struct {
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
	CRF         int    `toml:"crf"`
}

// MotionConfig holds the motion defaults used when a request leaves them out.
type MotionConfig struct {
	DefaultMode             string  `toml:"default_mode"`
	DefaultIntensity        float64 `toml:"default_intensity"`
	FallbackDurationSeconds float64 `toml:"fallback_duration_seconds"`
	MaxDurationSeconds      float64 `toml:"max_duration_seconds"`
	MaxFrames               int     `toml:"max_frames"`
}

// Limits returns the per-request motion limits.
func (m MotionConfig) Limits() motion.Limits {
	return motion.Limits{MaxDuration: m.MaxDurationSeconds, MaxFrames: m.MaxFrames}
}

// HTTPConfig holds the API listener configuration.
type HTTPConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS     NATSConfig     `toml:"nats"`
	Minimax  MinimaxConfig  `toml:"minimax"`
	Renderer RendererConfig `toml:"renderer"`
	FFmpeg   FFmpegConfig   `toml:"ffmpeg"`
	Motion   MotionConfig   `toml:"motion"`
	HTTP     HTTPConfig     `toml:"http"`
	Paths    PathsConfig    `toml:"paths"`
}

// Load loads the configuration for the avatar-service through the central configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// LoadFile decodes a TOML file directly, for tools that run outside the service.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes TOML data, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills in every field left at its zero value.
func (c *Config) ApplyDefaults() {
	setString(&c.NATS.URL, defaultNATSURL)
	setString(&c.NATS.SynthesisSubject, defaultSynthesisSubject)
	setString(&c.NATS.ArtifactBucket, defaultArtifactBucket)
	setInt(&c.NATS.RequestTimeoutSeconds, defaultRequestTimeoutSeconds)

	setString(&c.Minimax.BaseURL, defaultMinimaxBaseURL)
	setString(&c.Minimax.Model, defaultMinimaxModel)
	setString(&c.Minimax.DefaultVoice, defaultMinimaxVoice)
	setInt(&c.Minimax.TimeoutSeconds, defaultMinimaxTimeoutSeconds)

	setString(&c.Renderer.BinaryPath, defaultRendererBinary)
	setInt(&c.Renderer.BatchSize, defaultRendererBatchSize)
	setString(&c.Renderer.TempDir, os.TempDir())
	setString(&c.Renderer.ResultDir, defaultResultDir)

	if c.Renderer.FPS == 0 {
		c.Renderer.FPS = defaultRendererFPS
	}

	setString(&c.FFmpeg.FFmpegPath, defaultFFmpegPath)
	setString(&c.FFmpeg.FFprobePath, defaultFFprobePath)
	setInt(&c.FFmpeg.CRF, defaultFFmpegCRF)

	setString(&c.Motion.DefaultMode, string(motion.ModeLightNod))

	if c.Motion.DefaultIntensity == 0 {
		c.Motion.DefaultIntensity = motion.DefaultIntensity
	}

	if c.Motion.FallbackDurationSeconds == 0 {
		c.Motion.FallbackDurationSeconds = defaultFallbackDuration
	}

	if c.Motion.MaxDurationSeconds == 0 {
		c.Motion.MaxDurationSeconds = defaultMaxDurationSeconds
	}

	setInt(&c.Motion.MaxFrames, defaultMaxFrames)

	setString(&c.HTTP.ListenAddr, defaultListenAddr)
	setString(&c.Paths.BaseLogsDir, os.TempDir())
}

// Validate ensures that the configuration holds usable values.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return ErrNATSURLEmpty
	}

	if c.NATS.SynthesisSubject == "" {
		return ErrSubjectEmpty
	}

	if c.NATS.ArtifactBucket == "" {
		return ErrBucketEmpty
	}

	if c.NATS.RequestTimeoutSeconds < 0 || c.Minimax.TimeoutSeconds < 0 {
		return ErrTimeoutNegative
	}

	if c.Renderer.BatchSize < MinBatchSize || c.Renderer.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: got %d", ErrBatchSizeRange, c.Renderer.BatchSize)
	}

	if c.Renderer.FPS <= 0 {
		return fmt.Errorf("%w: got %f", ErrFPSRange, c.Renderer.FPS)
	}

	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		return fmt.Errorf("%w: got %d", ErrCRFRange, c.FFmpeg.CRF)
	}

	if c.Motion.FallbackDurationSeconds <= 0 {
		return fmt.Errorf("%w: got %f", ErrFallbackDuration, c.Motion.FallbackDurationSeconds)
	}

	if c.Motion.MaxDurationSeconds <= 0 || c.Motion.MaxFrames <= 0 || c.Motion.MaxFrames > motion.MaxPoseFrames {
		return fmt.Errorf("%w: max_duration_seconds %g, max_frames %d", ErrMotionLimits,
			c.Motion.MaxDurationSeconds, c.Motion.MaxFrames)
	}

	err := c.Motion.Limits().Check(c.Motion.FallbackDurationSeconds, c.Renderer.FPS)
	if err != nil {
		return fmt.Errorf("motion fallback duration: %w", err)
	}

	mode, err := motion.ParseMode(c.Motion.DefaultMode)
	if err != nil {
		return fmt.Errorf("motion default_mode: %w", err)
	}

	// custom needs per-request settings, so it cannot be a default
	if mode == motion.ModeCustom {
		return fmt.Errorf("motion default_mode: %w: custom cannot be a default", motion.ErrUnknownMode)
	}

	_, err = motion.NewPlan(motion.ModeNone, c.Motion.DefaultIntensity, nil)
	if err != nil {
		return fmt.Errorf("motion default_intensity: %w", err)
	}

	return nil
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}
