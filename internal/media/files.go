package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultDirPermissions = 0o750

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// Time and size formatting constants.
const (
	secondsInMinute = 60
	secondsInHour   = 3600
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatHours     = "%dh %dm"
	formatGB        = "%.1f GB"
	formatMB        = "%.1f MB"
	formatKB        = "%.1f KB"
	formatBytes     = "%d B"
)

// ErrUnsupportedFormat is returned for uploaded audio in a format the renderer cannot read.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioFormat is an accepted upload audio container.
type AudioFormat string

// Accepted upload formats.
const (
	FormatWAV  AudioFormat = "wav"
	FormatMP3  AudioFormat = "mp3"
	FormatM4A  AudioFormat = "m4a"
	FormatFLAC AudioFormat = "flac"
	FormatOGG  AudioFormat = "ogg"
)

// UploadFormats lists the accepted upload formats in display order.
var UploadFormats = []AudioFormat{FormatWAV, FormatMP3, FormatM4A, FormatFLAC, FormatOGG}

// AudioFormatOf returns the upload format of a file name, judged by its extension.
func AudioFormatOf(name string) (AudioFormat, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	for _, format := range UploadFormats {
		if string(format) == ext {
			return format, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// EnsureDir creates a directory and its parents when missing.
func EnsureDir(path string) error {
	err := os.MkdirAll(path, defaultDirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// FormatDuration formats seconds for reports (e.g. "45.2s", "5m 30.5s", "1h 15m").
func FormatDuration(seconds float64) string {
	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if seconds < secondsInHour {
		minutes := int(seconds / secondsInMinute)

		return fmt.Sprintf(formatMinutes, minutes, seconds-float64(minutes*secondsInMinute))
	}

	hours := int(seconds / secondsInHour)
	minutes := int((seconds - float64(hours*secondsInHour)) / secondsInMinute)

	return fmt.Sprintf(formatHours, hours, minutes)
}

// FormatFileSize formats a byte count for reports (e.g. "500.5 MB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}
