package motion

import (
	"fmt"
	"maps"
	"strings"
)

// Mode selects a preset or custom motion configuration for a synthesis request.
type Mode string

const (
	ModeNone         Mode = "none"
	ModeLightNod     Mode = "light_nod"
	ModeStrongNod    Mode = "strong_nod"
	ModeThinkingTilt Mode = "thinking_tilt"
	ModeRandomMix    Mode = "random_mix"
	ModeCustom       Mode = "custom"
)

// Intensity bounds and default.
const (
	MinIntensity     = 0.1
	MaxIntensity     = 2.0
	DefaultIntensity = 1.0
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeNone, ModeLightNod, ModeStrongNod, ModeThinkingTilt, ModeRandomMix, ModeCustom}

// Preset is the unscaled configuration behind a mode. Intensity scales only the ranges the
// preset marks; the other range keeps its base value.
type Preset struct {
	Mode        Mode   `json:"mode"`
	Description string `json:"description"`
	Config      Config `json:"-"`
	ScaleNod    bool   `json:"scale_nod"`
	ScaleTilt   bool   `json:"scale_tilt"`
}

var presets = map[Mode]Preset{
	ModeLightNod: {
		Mode:        ModeLightNod,
		Description: "occasional gentle nods of agreement",
		Config: NewConfig(
			Range{Min: 3, Max: 6},
			map[Kind]float64{Still: 0.6, Nod: 0.4, Tilt: 0},
			Range{Min: 3, Max: 6},
			Range{Min: defaultTiltMin, Max: defaultTiltMax},
		),
		ScaleNod:  true,
		ScaleTilt: false,
	},
	ModeStrongNod: {
		Mode:        ModeStrongNod,
		Description: "frequent, clearly visible nods",
		Config: NewConfig(
			Range{Min: 2, Max: 4},
			map[Kind]float64{Still: 0.3, Nod: 0.7, Tilt: 0},
			Range{Min: 6, Max: 12},
			Range{Min: defaultTiltMin, Max: defaultTiltMax},
		),
		ScaleNod:  true,
		ScaleTilt: false,
	},
	ModeThinkingTilt: {
		Mode:        ModeThinkingTilt,
		Description: "long pensive head tilts",
		Config: NewConfig(
			Range{Min: 4, Max: 8},
			map[Kind]float64{Still: 0.4, Nod: 0.1, Tilt: 0.5},
			Range{Min: defaultNodMin, Max: defaultNodMax},
			Range{Min: 5, Max: 15},
		),
		ScaleNod:  false,
		ScaleTilt: true,
	},
	ModeRandomMix: {
		Mode:        ModeRandomMix,
		Description: "mixed nods, tilts and rest",
		Config: NewConfig(
			Range{Min: 2, Max: 5},
			map[Kind]float64{Still: 0.4, Nod: 0.35, Tilt: 0.25},
			Range{Min: 4, Max: 8},
			Range{Min: 3, Max: 10},
		),
		ScaleNod:  true,
		ScaleTilt: true,
	},
}

// ParseMode converts a mode name into a Mode.
func ParseMode(name string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Modes {
		if mode == known {
			return mode, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// PresetFor returns the preset behind mode. ModeNone and ModeCustom have no preset.
func PresetFor(mode Mode) (Preset, bool) {
	preset, ok := presets[mode]
	preset.Config.Weights = maps.Clone(preset.Config.Weights)

	return preset, ok
}

// CustomSettings are the caller-provided values for ModeCustom. Amplitude ranges are given
// before intensity scaling.
type CustomSettings struct {
	StillWeight    float64 `json:"still_weight"`
	NodWeight      float64 `json:"nod_weight"`
	TiltWeight     float64 `json:"tilt_weight"`
	SwitchInterval Range   `json:"switch_interval"`
	NodRange       Range   `json:"nod_range"`
	TiltRange      Range   `json:"tilt_range"`
}

// Bounds accepted for CustomSettings.
var (
	CustomWeightBounds      = Range{Min: 0, Max: 1}
	CustomIntervalMinBounds = Range{Min: 0.5, Max: 10}
	CustomIntervalMaxBounds = Range{Min: 1, Max: 15}
	CustomAmplitudeMinBound = Range{Min: 1, Max: 20}
	CustomAmplitudeMaxBound = Range{Min: 2, Max: 25}
)

// Validate checks every custom value against its accepted bounds. Range ordering and the
// weight sum are left to Config.Validate.
func (c CustomSettings) Validate() error {
	checks := []struct {
		field  string
		value  float64
		bounds Range
	}{
		{fieldWeights + ".still", c.StillWeight, CustomWeightBounds},
		{fieldWeights + ".nod", c.NodWeight, CustomWeightBounds},
		{fieldWeights + ".tilt", c.TiltWeight, CustomWeightBounds},
		{fieldSwitchInterval + ".min", c.SwitchInterval.Min, CustomIntervalMinBounds},
		{fieldSwitchInterval + ".max", c.SwitchInterval.Max, CustomIntervalMaxBounds},
		{fieldNodRange + ".min", c.NodRange.Min, CustomAmplitudeMinBound},
		{fieldNodRange + ".max", c.NodRange.Max, CustomAmplitudeMaxBound},
		{fieldTiltRange + ".min", c.TiltRange.Min, CustomAmplitudeMinBound},
		{fieldTiltRange + ".max", c.TiltRange.Max, CustomAmplitudeMaxBound},
	}

	for _, check := range checks {
		if !isFinite(check.value) || !check.bounds.Contains(check.value) {
			return &ConfigError{
				Field:  check.field,
				Reason: fmt.Sprintf("%g is outside [%g, %g]", check.value, check.bounds.Min, check.bounds.Max),
			}
		}
	}

	return nil
}

// DefaultCustomSettings mirrors the initial values offered for the custom mode.
func DefaultCustomSettings() CustomSettings {
	return CustomSettings{
		StillWeight:    defaultStillWeight,
		NodWeight:      defaultNodWeight,
		TiltWeight:     defaultTiltWeight,
		SwitchInterval: Range{Min: defaultIntervalMin, Max: defaultIntervalMax},
		NodRange:       Range{Min: 3, Max: 8},
		TiltRange:      Range{Min: 3, Max: 8},
	}
}

// Plan is the resolved motion setup for one request.
type Plan struct {
	Mode      Mode
	Intensity float64
	Enabled   bool
	Config    Config
}

// NewPlan resolves mode and intensity into a validated Config. Intensity scales the ranges a
// preset marks and both ranges of custom settings. ModeNone yields a disabled plan with no
// config. Custom settings whose weights are all zero fail with a ConfigError instead of
// falling back to still only.
func NewPlan(mode Mode, intensity float64, custom *CustomSettings) (Plan, error) {
	if !isFinite(intensity) || intensity < MinIntensity || intensity > MaxIntensity {
		return Plan{}, fmt.Errorf("%w: %g is outside [%g, %g]", ErrInvalidIntensity, intensity, MinIntensity, MaxIntensity)
	}

	plan := Plan{Mode: mode, Intensity: intensity}

	var (
		base                Config
		scaleNod, scaleTilt bool
	)

	switch mode {
	case ModeNone:
		return plan, nil
	case ModeCustom:
		if custom == nil {
			return Plan{}, ErrCustomSettingsMissing
		}

		err := custom.Validate()
		if err != nil {
			return Plan{}, err
		}

		scaleNod, scaleTilt = true, true
		base = NewConfig(
			custom.SwitchInterval,
			map[Kind]float64{Still: custom.StillWeight, Nod: custom.NodWeight, Tilt: custom.TiltWeight},
			custom.NodRange,
			custom.TiltRange,
		)
	default:
		preset, ok := presets[mode]
		if !ok {
			return Plan{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
		}

		base = preset.Config
		scaleNod, scaleTilt = preset.ScaleNod, preset.ScaleTilt
	}

	nodRange, tiltRange := base.NodRange, base.TiltRange
	if scaleNod {
		nodRange = nodRange.Scale(intensity)
	}

	if scaleTilt {
		tiltRange = tiltRange.Scale(intensity)
	}

	cfg := NewConfig(base.SwitchInterval, base.Weights, nodRange, tiltRange)

	err := cfg.Validate()
	if err != nil {
		return Plan{}, err
	}

	plan.Enabled = true
	plan.Config = cfg

	return plan, nil
}
