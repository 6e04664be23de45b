package media_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/avatar-service/internal/config"
	"github.com/book-expert/avatar-service/internal/media"
)

// writeScript writes an executable shell script standing in for ffmpeg or ffprobe.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))

	return path
}

func newToolkit(t *testing.T, ffmpegPath, ffprobePath string) *media.Toolkit {
	t.Helper()

	log, err := logger.New(t.TempDir(), "media-test.log")
	require.NoError(t, err)

	return media.NewToolkit(config.FFmpegConfig{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		CRF:         15,
	}, log)
}

func TestMuxArgs(t *testing.T) {
	t.Parallel()

	args := media.MuxArgs("a.mp3", "v.mp4", "out.mp4", 15)
	assert.Equal(t, []string{
		"-loglevel", "warning", "-y",
		"-i", "a.mp3", "-i", "v.mp4",
		"-c:a", "aac", "-c:v", "libx264",
		"-crf", "15", "-strict", "-2",
		"out.mp4",
	}, args)
}

func TestProbeArgs(t *testing.T) {
	t.Parallel()

	args := media.ProbeArgs("a.wav")
	assert.Equal(t, "format=duration", args[3])
	assert.Equal(t, "a.wav", args[len(args)-1])
}

func TestToolkit_ProbeDuration(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ffprobe := writeScript(t, dir, "ffprobe", `echo "12.480000"`)

	duration, err := newToolkit(t, "ffmpeg", ffprobe).ProbeDuration(context.Background(), "speech.mp3")
	require.NoError(t, err)
	assert.InDelta(t, 12.48, duration, 1e-9)
}

func TestToolkit_ProbeDuration_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	garbage := writeScript(t, dir, "ffprobe-garbage", `echo "N/A"`)
	failing := writeScript(t, dir, "ffprobe-fail", `echo "no such file" >&2; exit 1`)

	_, err := newToolkit(t, "ffmpeg", garbage).ProbeDuration(context.Background(), "speech.mp3")
	require.ErrorIs(t, err, media.ErrInvalidProbeOutput)

	_, err = newToolkit(t, "ffmpeg", failing).ProbeDuration(context.Background(), "speech.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")

	_, err = newToolkit(t, "ffmpeg", garbage).ProbeDuration(context.Background(), "")
	require.ErrorIs(t, err, media.ErrPathEmpty)
}

func TestToolkit_Mux(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	ffmpeg := writeScript(t, dir, "ffmpeg", `echo "$@" > `+argsFile)

	err := newToolkit(t, ffmpeg, "ffprobe").Mux(context.Background(), "a.mp3", "v.mp4", "out.mp4")
	require.NoError(t, err)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(media.MuxArgs("a.mp3", "v.mp4", "out.mp4", 15), " "), strings.TrimSpace(string(recorded)))

	failing := writeScript(t, dir, "ffmpeg-fail", `echo "encoder missing"; exit 1`)
	err = newToolkit(t, failing, "ffprobe").Mux(context.Background(), "a.mp3", "v.mp4", "out.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoder missing")

	err = newToolkit(t, ffmpeg, "ffprobe").Mux(context.Background(), "", "v.mp4", "out.mp4")
	require.ErrorIs(t, err, media.ErrPathEmpty)
}

func TestAudioFormatOf(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"a.wav", "b.MP3", "dir/c.m4a", "d.flac", "e.ogg"} {
		_, err := media.AudioFormatOf(name)
		require.NoError(t, err, name)
	}

	format, err := media.AudioFormatOf("speech.MP3")
	require.NoError(t, err)
	assert.Equal(t, media.FormatMP3, format)

	for _, name := range []string{"a.aac", "b.txt", "noext"} {
		_, err := media.AudioFormatOf(name)
		require.ErrorIs(t, err, media.ErrUnsupportedFormat, name)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "45.2s", media.FormatDuration(45.2))
	assert.Equal(t, "5m 30.5s", media.FormatDuration(330.5))
	assert.Equal(t, "1h 15m", media.FormatDuration(4500))
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", media.FormatFileSize(512))
	assert.Equal(t, "1.5 KB", media.FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", media.FormatFileSize(2*1024*1024))
	assert.Equal(t, "1.0 GB", media.FormatFileSize(1024*1024*1024))
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, media.EnsureDir(path))
	require.NoError(t, media.EnsureDir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
