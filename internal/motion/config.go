package motion

import (
	"fmt"
	"maps"
	"math"
)

// Field names used in ConfigError.
const (
	fieldSwitchInterval = "switch_interval"
	fieldWeights        = "weights"
	fieldNodRange       = "nod_range"
	fieldTiltRange      = "tilt_range"
)

// Reference defaults for a config built without explicit values.
const (
	defaultIntervalMin = 2.0
	defaultIntervalMax = 5.0
	defaultStillWeight = 0.50
	defaultNodWeight   = 0.30
	defaultTiltWeight  = 0.20
	defaultNodMin      = 5.0
	defaultNodMax      = 10.0
	defaultTiltMin     = 3.0
	defaultTiltMax     = 8.0
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min" toml:"min"`
	Max float64 `json:"max" toml:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Scale multiplies both bounds by factor.
func (r Range) Scale(factor float64) Range {
	return Range{Min: r.Min * factor, Max: r.Max * factor}
}

func (r Range) validate(field string) error {
	if !isFinite(r.Min) || !isFinite(r.Max) {
		return &ConfigError{Field: field, Reason: "bounds must be finite"}
	}

	if r.Min > r.Max {
		return &ConfigError{
			Field:  field,
			Reason: fmt.Sprintf("min %g is greater than max %g", r.Min, r.Max),
		}
	}

	return nil
}

// Config describes how a timeline is drawn. Treat it as a value: Weights is copied on
// construction through NewConfig and DefaultConfig, and the generator never mutates it.
type Config struct {
	SwitchInterval Range
	Weights        map[Kind]float64
	NodRange       Range
	TiltRange      Range
}

// NewConfig builds a Config holding its own copy of weights.
func NewConfig(switchInterval Range, weights map[Kind]float64, nodRange, tiltRange Range) Config {
	return Config{
		SwitchInterval: switchInterval,
		Weights:        maps.Clone(weights),
		NodRange:       nodRange,
		TiltRange:      tiltRange,
	}
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return NewConfig(
		Range{Min: defaultIntervalMin, Max: defaultIntervalMax},
		map[Kind]float64{
			Still: defaultStillWeight,
			Nod:   defaultNodWeight,
			Tilt:  defaultTiltWeight,
		},
		Range{Min: defaultNodMin, Max: defaultNodMax},
		Range{Min: defaultTiltMin, Max: defaultTiltMax},
	)
}

// Validate checks the config invariants. The switch interval minimum must be positive so that
// every drawn segment advances time.
func (c Config) Validate() error {
	err := c.SwitchInterval.validate(fieldSwitchInterval)
	if err != nil {
		return err
	}

	if c.SwitchInterval.Min <= 0 {
		return &ConfigError{
			Field:  fieldSwitchInterval,
			Reason: fmt.Sprintf("min %g must be greater than zero", c.SwitchInterval.Min),
		}
	}

	err = c.NodRange.validate(fieldNodRange)
	if err != nil {
		return err
	}

	err = c.TiltRange.validate(fieldTiltRange)
	if err != nil {
		return err
	}

	return c.validateWeights()
}

func (c Config) validateWeights() error {
	total := 0.0

	for kind, weight := range c.Weights {
		if !kind.Valid() {
			return &ConfigError{Field: fieldWeights, Reason: fmt.Sprintf("unknown kind %d", uint8(kind))}
		}

		if !isFinite(weight) || weight < 0 {
			return &ConfigError{
				Field:  fieldWeights,
				Reason: fmt.Sprintf("weight for %s must be a non-negative finite number, got %g", kind, weight),
			}
		}

		total += weight
	}

	if total <= 0 {
		return &ConfigError{Field: fieldWeights, Reason: "at least one weight must be greater than zero"}
	}

	return nil
}

// NormalizedWeights returns the weights scaled to sum to one, with every kind present.
// It returns all zeros when the weights do not sum to a positive value.
func (c Config) NormalizedWeights() map[Kind]float64 {
	total := 0.0
	for _, kind := range Kinds {
		total += c.Weights[kind]
	}

	normalized := make(map[Kind]float64, len(Kinds))

	for _, kind := range Kinds {
		if total > 0 {
			normalized[kind] = c.Weights[kind] / total
		} else {
			normalized[kind] = 0
		}
	}

	return normalized
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
