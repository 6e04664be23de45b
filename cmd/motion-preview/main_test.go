package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/avatar-service/internal/render"
)

// writeConfig writes a minimal project.toml that keeps logs inside the test directory.
func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "project.toml")
	content := "[paths]\nbase_logs_dir = \"" + filepath.ToSlash(dir) + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	flags, err := parseFlags([]string{
		"-mode", "strong_nod", "-intensity", "1.5", "-duration", "12",
		"-fps", "30", "-seed", "99", "-output", "poses.json",
	})
	require.NoError(t, err)

	assert.Equal(t, "strong_nod", flags.mode)
	assert.InDelta(t, 1.5, flags.intensity, 1e-9)
	assert.InDelta(t, 12.0, flags.duration, 1e-9)
	assert.InDelta(t, 30.0, flags.fps, 1e-9)
	assert.Equal(t, uint64(99), flags.seed)
	assert.Equal(t, "poses.json", flags.output)

	_, err = parseFlags([]string{"-seed", "not-a-number"})
	require.Error(t, err)
}

func TestRun_WritesPoseTrack(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "poses.json")

	var stdout bytes.Buffer

	err := run([]string{
		"-config", writeConfig(t), "-mode", "random_mix", "-seed", "5", "-output", output,
	}, &stdout)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Motion analysis report - task preview-5")
	assert.Contains(t, stdout.String(), "Segments generated:")
	assert.Contains(t, stdout.String(), "Pose track written to")

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var track render.PoseTrack
	require.NoError(t, json.Unmarshal(data, &track))
	assert.Len(t, track.Frames, 200, "8s fallback duration at 25 fps")
}

func TestRun_SameSeedSameReport(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t)
	args := []string{"-config", configPath, "-mode", "thinking_tilt", "-seed", "11", "-duration", "20"}

	var first, second bytes.Buffer

	require.NoError(t, run(args, &first))
	require.NoError(t, run(args, &second))

	segments := func(report string) string {
		var kept []string

		for _, line := range strings.Split(report, "\n") {
			if strings.HasPrefix(line, "  #") {
				kept = append(kept, line)
			}
		}

		return strings.Join(kept, "\n")
	}

	assert.NotEmpty(t, segments(first.String()))
	assert.Equal(t, segments(first.String()), segments(second.String()))
}

func TestRun_CustomSettings(t *testing.T) {
	t.Parallel()

	customPath := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(customPath,
		[]byte(`{"still_weight":0,"nod_weight":1,"tilt_weight":0,"nod_range":{"min":2,"max":4}}`), 0o600))

	var stdout bytes.Buffer

	err := run([]string{
		"-config", writeConfig(t), "-mode", "custom", "-custom", customPath, "-seed", "3",
	}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Nod amplitude: ±2.0° ~ ±4.0°")
	assert.NotContains(t, stdout.String(), "Tilt amplitude")
}

func TestRun_InvalidInput(t *testing.T) {
	t.Parallel()

	configPath := writeConfig(t)

	cases := map[string][]string{
		"unknown mode":     {"-mode", "dance"},
		"mode none":        {"-mode", "none"},
		"custom missing":   {"-mode", "custom"},
		"custom file gone": {"-mode", "custom", "-custom", filepath.Join(t.TempDir(), "missing.json")},
		"intensity":        {"-intensity", "3"},
		"negative fps":     {"-fps", "-1"},
		"negative length":  {"-duration", "-4"},
		"too long":         {"-duration", "601"},
		"fps too high":     {"-fps", "1e15"},
	}

	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var stdout bytes.Buffer

			err := run(append([]string{"-config", configPath}, args...), &stdout)
			require.Error(t, err)
		})
	}
}
