package motion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigError.
	ErrInvalidConfig = errors.New("invalid motion config")
	// ErrInvalidDuration is wrapped by every InvalidDurationError.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidFrameRate indicates a non-positive or non-finite frame rate.
	ErrInvalidFrameRate = errors.New("frame rate must be a positive finite number")
	// ErrUnknownKind indicates a motion kind name or value outside Still, Nod and Tilt.
	ErrUnknownKind = errors.New("unknown motion kind")
	// ErrUnknownMode indicates a motion mode name that has no preset.
	ErrUnknownMode = errors.New("unknown motion mode")
	// ErrInvalidIntensity indicates an intensity multiplier outside [MinIntensity, MaxIntensity].
	ErrInvalidIntensity = errors.New("invalid motion intensity")
	// ErrCustomSettingsMissing indicates the custom mode was selected without settings.
	ErrCustomSettingsMissing = errors.New("custom motion mode requires custom settings")
)

// ConfigError reports a Config that violates its invariants.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

// Unwrap lets callers match ConfigError with errors.Is(err, ErrInvalidConfig).
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// InvalidDurationError reports a requested duration that is not a positive finite number.
type InvalidDurationError struct {
	Duration float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("%s: %g seconds", ErrInvalidDuration, e.Duration)
}

// Unwrap lets callers match InvalidDurationError with errors.Is(err, ErrInvalidDuration).
func (e *InvalidDurationError) Unwrap() error {
	return ErrInvalidDuration
}
