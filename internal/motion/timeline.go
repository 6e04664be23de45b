package motion

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Nod frequency bounds in Hz.
const (
	NodFrequencyMin = 0.5
	NodFrequencyMax = 1.2
)

// pcgStream is the second PCG word; the seed supplies the first.
const pcgStream = 0x9e3779b97f4a7c15

// Params carries the values drawn for a segment. Still leaves every field zero, Tilt leaves
// Frequency zero.
type Params struct {
	Amplitude float64 `json:"amplitude,omitempty"`
	Frequency float64 `json:"frequency,omitempty"`
	Direction int     `json:"direction,omitempty"`
}

// Segment is one time-bounded motion.
type Segment struct {
	ID     int     `json:"id"`
	Kind   Kind    `json:"kind"`
	Start  float64 `json:"start_time"`
	End    float64 `json:"end_time"`
	Params Params  `json:"params"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// MarshalJSON adds the derived duration to the encoded segment.
func (s Segment) MarshalJSON() ([]byte, error) {
	type plain Segment

	return json.Marshal(struct {
		plain
		Duration float64 `json:"duration"`
	}{plain: plain(s), Duration: s.Duration()})
}

// Timeline is an immutable, ordered run of contiguous segments covering [0, Duration()).
type Timeline struct {
	segments []Segment
	duration float64
}

// Segments returns a copy of the segments in order.
func (t *Timeline) Segments() []Segment {
	return slices.Clone(t.segments)
}

// Len returns the number of segments.
func (t *Timeline) Len() int {
	return len(t.segments)
}

// Duration returns the total covered duration in seconds.
func (t *Timeline) Duration() float64 {
	return t.duration
}

// CountByKind returns how many segments of each kind the timeline holds.
func (t *Timeline) CountByKind() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, seg := range t.segments {
		counts[seg.Kind]++
	}

	return counts
}

type timelineJSON struct {
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// MarshalJSON implements json.Marshaler.
func (t *Timeline) MarshalJSON() ([]byte, error) {
	return json.Marshal(timelineJSON{Duration: t.duration, Segments: t.segments})
}

// Generator draws timelines from a single random source. A Generator is not safe for
// concurrent use; give each request its own.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from rng.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// NewSeededGenerator returns a Generator with a PCG source derived from seed.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, pcgStream)))
}

// GenerateTimeline builds a timeline with a fresh generator seeded from seed.
func GenerateTimeline(cfg Config, duration float64, seed uint64) (*Timeline, error) {
	return NewSeededGenerator(seed).Generate(cfg, duration)
}

// Generate validates cfg and duration and then fills [0, duration) with segments. Each
// iteration picks a kind by weight, draws an interval from cfg.SwitchInterval, clamps the
// segment end to duration and draws the kind's parameters.
func (g *Generator) Generate(cfg Config, duration float64) (*Timeline, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if !isFinite(duration) || duration <= 0 {
		return nil, &InvalidDurationError{Duration: duration}
	}

	if duration/cfg.SwitchInterval.Min > MaxSegments {
		return nil, &ConfigError{
			Field:  fieldSwitchInterval,
			Reason: fmt.Sprintf("%s: min %g over %gs", ErrTooManySegments, cfg.SwitchInterval.Min, duration),
		}
	}

	var segments []Segment

	current := 0.0

	for current < duration {
		kind := g.selectKind(cfg.Weights)
		interval := g.uniform(cfg.SwitchInterval)
		end := math.Min(current+interval, duration)

		segments = append(segments, Segment{
			ID:     len(segments),
			Kind:   kind,
			Start:  current,
			End:    end,
			Params: g.drawParams(kind, cfg),
		})

		current = end
	}

	return &Timeline{segments: segments, duration: duration}, nil
}

// selectKind walks Kinds in fixed order so a seeded source is reproducible regardless of map
// iteration order.
func (g *Generator) selectKind(weights map[Kind]float64) Kind {
	total := 0.0
	for _, kind := range Kinds {
		total += weights[kind]
	}

	target := g.rng.Float64() * total
	cumulative := 0.0
	last := Still

	for _, kind := range Kinds {
		weight := weights[kind]
		if weight <= 0 {
			continue
		}

		cumulative += weight
		last = kind

		if target < cumulative {
			return kind
		}
	}

	// rounding can leave target == total
	return last
}

func (g *Generator) drawParams(kind Kind, cfg Config) Params {
	switch kind {
	case Nod:
		return Params{
			Amplitude: g.uniform(cfg.NodRange),
			Frequency: g.uniform(Range{Min: NodFrequencyMin, Max: NodFrequencyMax}),
			Direction: g.direction(),
		}
	case Tilt:
		return Params{
			Amplitude: g.uniform(cfg.TiltRange),
			Direction: g.direction(),
		}
	default:
		return Params{}
	}
}

func (g *Generator) uniform(r Range) float64 {
	return r.Min + g.rng.Float64()*(r.Max-r.Min)
}

func (g *Generator) direction() int {
	if g.rng.IntN(2) == 0 {
		return 1
	}

	return -1
}
