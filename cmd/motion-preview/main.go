// Command motion-preview generates a head-motion timeline offline and prints its summary and
// analysis report, optionally writing the per-frame pose track.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/avatar-service/internal/config"
	"github.com/book-expert/avatar-service/internal/motion"
	"github.com/book-expert/avatar-service/internal/render"
)

// Flag names.
const (
	flagMode      = "mode"
	flagIntensity = "intensity"
	flagDuration  = "duration"
	flagFPS       = "fps"
	flagSeed      = "seed"
	flagOutput    = "output"
	flagConfig    = "config"
	flagCustom    = "custom"
)

// Flag descriptions.
const (
	flagModeDesc      = "Motion mode: light_nod, strong_nod, thinking_tilt, random_mix, custom (default from config)"
	flagIntensityDesc = "Amplitude multiplier between 0.1 and 2.0 (default from config)"
	flagDurationDesc  = "Timeline duration in seconds (default: configured fallback duration)"
	flagFPSDesc       = "Pose track frame rate (default from config)"
	flagSeedDesc      = "Random seed; 0 draws a fresh one"
	flagOutputDesc    = "Write the pose track JSON to this path"
	flagConfigDesc    = "Path to project.toml (defaults only, optional)"
	flagCustomDesc    = "JSON file with custom mode settings"
)

// Error and log messages.
const (
	errFmtLoadConfig     = "failed to load configuration: %w"
	errFmtInitLogger     = "failed to initialize logger: %w"
	errFmtReadCustom     = "failed to read custom settings: %w"
	errFmtInvalidPreview = "invalid preview settings: %w"
	logFmtGenerated      = "Generated %d segments (%d frames) with seed %d in mode %s"
	logFmtWroteTrack     = "Wrote pose track: %s"
	msgWroteTrack        = "Pose track written to %s (%d frames at %g fps)\n"
	logFileName          = "motion-preview.log"
)

var errModeDisabled = errors.New("mode none generates no timeline")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	mode      string
	intensity float64
	duration  float64
	fps       float64
	seed      uint64
	output    string
	config    string
	custom    string
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

// run is the application entry point, returning an error on failure.
func run(args []string, stdout io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.config)
	if err != nil {
		return err
	}

	previewLog, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return fmt.Errorf(errFmtInitLogger, err)
	}
	defer previewLog.Close()

	applyDefaults(&flags, cfg)

	err = cfg.Motion.Limits().Check(flags.duration, flags.fps)
	if err != nil {
		return fmt.Errorf(errFmtInvalidPreview, err)
	}

	return generate(flags, stdout, previewLog)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("motion-preview", flag.ContinueOnError)
	flagSet.StringVar(&flags.mode, flagMode, "", flagModeDesc)
	flagSet.Float64Var(&flags.intensity, flagIntensity, 0, flagIntensityDesc)
	flagSet.Float64Var(&flags.duration, flagDuration, 0, flagDurationDesc)
	flagSet.Float64Var(&flags.fps, flagFPS, 0, flagFPSDesc)
	flagSet.Uint64Var(&flags.seed, flagSeed, 0, flagSeedDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.StringVar(&flags.config, flagConfig, "", flagConfigDesc)
	flagSet.StringVar(&flags.custom, flagCustom, "", flagCustomDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return appFlags{}, err
	}

	return flags, nil
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if path == "" {
		cfg, err = config.Parse(nil)
	} else {
		cfg, err = config.LoadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf(errFmtLoadConfig, err)
	}

	return cfg, nil
}

func applyDefaults(flags *appFlags, cfg *config.Config) {
	if flags.mode == "" {
		flags.mode = cfg.Motion.DefaultMode
	}

	if flags.intensity == 0 {
		flags.intensity = cfg.Motion.DefaultIntensity
	}

	if flags.duration == 0 {
		flags.duration = cfg.Motion.FallbackDurationSeconds
	}

	if flags.fps == 0 {
		flags.fps = cfg.Renderer.FPS
	}

	if flags.seed == 0 {
		flags.seed = rand.Uint64()
	}
}

func loadCustom(path string) (*motion.CustomSettings, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadCustom, err)
	}

	custom := motion.DefaultCustomSettings()

	err = json.Unmarshal(data, &custom)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadCustom, err)
	}

	return &custom, nil
}

// generate draws the timeline, prints the summary and report and writes the pose track.
func generate(flags appFlags, stdout io.Writer, previewLog *logger.Logger) error {
	mode, err := motion.ParseMode(flags.mode)
	if err != nil {
		return fmt.Errorf(errFmtInvalidPreview, err)
	}

	custom, err := loadCustom(flags.custom)
	if err != nil {
		return err
	}

	plan, err := motion.NewPlan(mode, flags.intensity, custom)
	if err != nil {
		return fmt.Errorf(errFmtInvalidPreview, err)
	}

	if !plan.Enabled {
		return errModeDisabled
	}

	timeline, err := motion.GenerateTimeline(plan.Config, flags.duration, flags.seed)
	if err != nil {
		return fmt.Errorf(errFmtInvalidPreview, err)
	}

	poses, err := motion.RenderPoseSequence(timeline, flags.duration, flags.fps)
	if err != nil {
		return fmt.Errorf(errFmtInvalidPreview, err)
	}

	previewLog.Info(logFmtGenerated, timeline.Len(), len(poses), flags.seed, mode)

	fmt.Fprint(stdout, motion.Report(motion.ReportInput{
		WorkID:      fmt.Sprintf("preview-%d", flags.seed),
		GeneratedAt: time.Now(),
		Plan:        plan,
		Timeline:    timeline,
	}))

	if flags.output == "" {
		return nil
	}

	_, err = render.WritePoseTrack(flags.output, flags.fps, poses)
	if err != nil {
		return err
	}

	previewLog.Info(logFmtWroteTrack, flags.output)
	fmt.Fprintf(stdout, msgWroteTrack, flags.output, len(poses), flags.fps)

	return nil
}
