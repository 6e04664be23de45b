// Package motion_test tests timeline generation and pose sampling.
package motion_test

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/book-expert/avatar-service/internal/motion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func stillOnlyConfig() motion.Config {
	return motion.NewConfig(
		motion.Range{Min: 2, Max: 4},
		map[motion.Kind]float64{motion.Still: 1, motion.Nod: 0, motion.Tilt: 0},
		motion.Range{Min: 5, Max: 10},
		motion.Range{Min: 3, Max: 8},
	)
}

func singleKindConfig(kind motion.Kind) motion.Config {
	return motion.NewConfig(
		motion.Range{Min: 0.5, Max: 1.5},
		map[motion.Kind]float64{kind: 2.5},
		motion.Range{Min: 5, Max: 10},
		motion.Range{Min: 3, Max: 8},
	)
}

func TestGenerate_SegmentsAreContiguousAndCoverDuration(t *testing.T) {
	t.Parallel()

	durations := []float64{0.1, 1, 7.3, 8, 30, 125.5}

	for seed := range uint64(25) {
		for _, duration := range durations {
			tl, err := motion.GenerateTimeline(motion.DefaultConfig(), duration, seed)
			require.NoError(t, err)

			segments := tl.Segments()
			require.NotEmpty(t, segments)

			assert.InDelta(t, 0.0, segments[0].Start, epsilon)
			assert.Equal(t, duration, segments[len(segments)-1].End, "last segment must end exactly at duration")
			assert.Equal(t, duration, tl.Duration())

			for i, seg := range segments {
				assert.Equal(t, i, seg.ID)
				assert.Less(t, seg.Start, seg.End)
				assert.InDelta(t, seg.End-seg.Start, seg.Duration(), epsilon)

				if i > 0 {
					assert.Equal(t, segments[i-1].End, seg.Start, "segments must be contiguous")
				}
			}

			bound := int(math.Ceil(duration / motion.DefaultConfig().SwitchInterval.Min))
			assert.LessOrEqual(t, len(segments), bound)
		}
	}
}

func TestGenerate_SingleWeightSelectsOnlyThatKind(t *testing.T) {
	t.Parallel()

	for _, kind := range motion.Kinds {
		tl, err := motion.GenerateTimeline(singleKindConfig(kind), 40, 7)
		require.NoError(t, err)

		for _, seg := range tl.Segments() {
			assert.Equal(t, kind, seg.Kind)
		}
	}
}

func TestGenerate_ParametersWithinRanges(t *testing.T) {
	t.Parallel()

	cfg := motion.DefaultConfig()

	tl, err := motion.GenerateTimeline(cfg, 300, 42)
	require.NoError(t, err)

	counts := tl.CountByKind()
	assert.Positive(t, counts[motion.Still])
	assert.Positive(t, counts[motion.Nod])
	assert.Positive(t, counts[motion.Tilt])

	for _, seg := range tl.Segments() {
		switch seg.Kind {
		case motion.Still:
			assert.Equal(t, motion.Params{}, seg.Params)
		case motion.Nod:
			assert.True(t, cfg.NodRange.Contains(seg.Params.Amplitude))
			assert.GreaterOrEqual(t, seg.Params.Frequency, motion.NodFrequencyMin)
			assert.LessOrEqual(t, seg.Params.Frequency, motion.NodFrequencyMax)
			assert.Contains(t, []int{-1, 1}, seg.Params.Direction)
		case motion.Tilt:
			assert.True(t, cfg.TiltRange.Contains(seg.Params.Amplitude))
			assert.Zero(t, seg.Params.Frequency)
			assert.Contains(t, []int{-1, 1}, seg.Params.Direction)
		}

		if seg.End < tl.Duration() {
			assert.GreaterOrEqual(t, seg.Duration(), cfg.SwitchInterval.Min-1e-6)
			assert.LessOrEqual(t, seg.Duration(), cfg.SwitchInterval.Max+1e-6)
		}
	}
}

func TestGenerate_SameSeedIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := motion.GenerateTimeline(motion.DefaultConfig(), 60, 1234)
	require.NoError(t, err)

	second, err := motion.GenerateTimeline(motion.DefaultConfig(), 60, 1234)
	require.NoError(t, err)

	assert.Equal(t, first.Segments(), second.Segments())

	other, err := motion.GenerateTimeline(motion.DefaultConfig(), 60, 4321)
	require.NoError(t, err)

	assert.NotEqual(t, first.Segments(), other.Segments())
}

func TestGenerate_InjectedSource(t *testing.T) {
	t.Parallel()

	gen := motion.NewGenerator(rand.New(rand.NewPCG(1, 2)))

	tl, err := gen.Generate(motion.DefaultConfig(), 10)
	require.NoError(t, err)
	assert.Positive(t, tl.Len())
}

func TestGenerate_InvalidConfig(t *testing.T) {
	t.Parallel()

	base := motion.DefaultConfig()

	cases := map[string]motion.Config{
		"all weights zero": motion.NewConfig(base.SwitchInterval,
			map[motion.Kind]float64{motion.Still: 0, motion.Nod: 0, motion.Tilt: 0}, base.NodRange, base.TiltRange),
		"no weights": motion.NewConfig(base.SwitchInterval, nil, base.NodRange, base.TiltRange),
		"negative weight": motion.NewConfig(base.SwitchInterval,
			map[motion.Kind]float64{motion.Still: 1, motion.Nod: -0.5}, base.NodRange, base.TiltRange),
		"unknown kind": motion.NewConfig(base.SwitchInterval,
			map[motion.Kind]float64{motion.Still: 1, motion.Kind(9): 1}, base.NodRange, base.TiltRange),
		"inverted interval": motion.NewConfig(motion.Range{Min: 5, Max: 2}, base.Weights, base.NodRange, base.TiltRange),
		"zero interval":     motion.NewConfig(motion.Range{Min: 0, Max: 2}, base.Weights, base.NodRange, base.TiltRange),
		"inverted nod":      motion.NewConfig(base.SwitchInterval, base.Weights, motion.Range{Min: 10, Max: 5}, base.TiltRange),
		"inverted tilt":     motion.NewConfig(base.SwitchInterval, base.Weights, base.NodRange, motion.Range{Min: 8, Max: 3}),
		"nan tilt":          motion.NewConfig(base.SwitchInterval, base.Weights, base.NodRange, motion.Range{Min: math.NaN(), Max: 3}),
	}

	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tl, err := motion.GenerateTimeline(cfg, 8, 1)
			require.Error(t, err)
			assert.Nil(t, tl)
			require.ErrorIs(t, err, motion.ErrInvalidConfig)

			var cfgErr *motion.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.NotEmpty(t, cfgErr.Field)
		})
	}
}

func TestGenerate_InvalidDuration(t *testing.T) {
	t.Parallel()

	for _, duration := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := motion.GenerateTimeline(motion.DefaultConfig(), duration, 1)
		require.ErrorIs(t, err, motion.ErrInvalidDuration)

		var durErr *motion.InvalidDurationError
		require.ErrorAs(t, err, &durErr)
	}
}

func TestGenerate_ConfigErrorTakesPrecedence(t *testing.T) {
	t.Parallel()

	cfg := motion.NewConfig(motion.Range{Min: 1, Max: 2}, map[motion.Kind]float64{}, motion.Range{}, motion.Range{})

	_, err := motion.GenerateTimeline(cfg, -1, 1)
	require.ErrorIs(t, err, motion.ErrInvalidConfig)
}

func TestNewConfig_CopiesWeights(t *testing.T) {
	t.Parallel()

	weights := map[motion.Kind]float64{motion.Still: 1}
	cfg := motion.NewConfig(motion.Range{Min: 1, Max: 2}, weights, motion.Range{}, motion.Range{})

	weights[motion.Still] = 0

	require.NoError(t, cfg.Validate())
}

func TestNormalizedWeights(t *testing.T) {
	t.Parallel()

	cfg := motion.NewConfig(motion.Range{Min: 1, Max: 2},
		map[motion.Kind]float64{motion.Still: 2, motion.Nod: 1, motion.Tilt: 1}, motion.Range{}, motion.Range{})

	normalized := cfg.NormalizedWeights()
	assert.InDelta(t, 0.5, normalized[motion.Still], epsilon)
	assert.InDelta(t, 0.25, normalized[motion.Nod], epsilon)
	assert.InDelta(t, 0.25, normalized[motion.Tilt], epsilon)
}

func TestTimeline_MarshalJSON(t *testing.T) {
	t.Parallel()

	tl, err := motion.GenerateTimeline(singleKindConfig(motion.Tilt), 2, 3)
	require.NoError(t, err)

	data, err := json.Marshal(tl)
	require.NoError(t, err)

	var decoded struct {
		Duration float64 `json:"duration"`
		Segments []struct {
			ID       int         `json:"id"`
			Kind     motion.Kind `json:"kind"`
			Start    float64     `json:"start_time"`
			End      float64     `json:"end_time"`
			Duration float64     `json:"duration"`
			Params   struct {
				Amplitude float64 `json:"amplitude"`
				Direction int     `json:"direction"`
			} `json:"params"`
		} `json:"segments"`
	}

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.InDelta(t, 2.0, decoded.Duration, epsilon)
	require.Len(t, decoded.Segments, tl.Len())
	assert.Equal(t, motion.Tilt, decoded.Segments[0].Kind)
	assert.InDelta(t, tl.Segments()[0].Duration(), decoded.Segments[0].Duration, epsilon)
	assert.Contains(t, string(data), `"kind":"tilt"`)
}

func TestKind_ParseAndText(t *testing.T) {
	t.Parallel()

	for _, kind := range motion.Kinds {
		parsed, err := motion.ParseKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	parsed, err := motion.ParseKind(" NOD ")
	require.NoError(t, err)
	assert.Equal(t, motion.Nod, parsed)

	_, err = motion.ParseKind("shake")
	require.ErrorIs(t, err, motion.ErrUnknownKind)

	_, err = motion.Kind(7).MarshalText()
	require.ErrorIs(t, err, motion.ErrUnknownKind)
}

func TestGenerate_TinySwitchIntervalIsRejected(t *testing.T) {
	t.Parallel()

	cfg := motion.NewConfig(
		motion.Range{Min: 1e-300, Max: 4},
		map[motion.Kind]float64{motion.Still: 1},
		motion.Range{Min: 5, Max: 10},
		motion.Range{Min: 3, Max: 8},
	)
	require.NoError(t, cfg.Validate())

	require.NotPanics(t, func() {
		_, err := motion.GenerateTimeline(cfg, 8, 1)
		require.ErrorIs(t, err, motion.ErrInvalidConfig)
	})

	longRun := motion.NewConfig(
		motion.Range{Min: 0.5, Max: 1},
		map[motion.Kind]float64{motion.Nod: 1},
		motion.Range{Min: 5, Max: 10},
		motion.Range{Min: 3, Max: 8},
	)

	_, err := motion.GenerateTimeline(longRun, 0.5*motion.MaxSegments+1, 1)
	require.ErrorIs(t, err, motion.ErrInvalidConfig)

	tl, err := motion.GenerateTimeline(longRun, 3600, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tl.Len(), 3600)
}
