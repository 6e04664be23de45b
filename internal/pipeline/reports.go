package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/avatar-service/internal/media"
)

const (
	reportTimeLayout        = "2006-01-02 15:04:05"
	textPreviewRunes        = 100
	estimatedBytesPerSecond = 4000
)

// speechReport describes a TTS-produced audio track.
type speechReport struct {
	GeneratedAt time.Time
	Text        string
	Model       string
	VoiceID     string
	VoiceName   string
	Format      string
	SizeBytes   int
	TraceID     string
}

func (r speechReport) String() string {
	var b strings.Builder

	runes := []rune(r.Text)
	preview := r.Text

	if len(runes) > textPreviewRunes {
		preview = string(runes[:textPreviewRunes]) + "..."
	}

	b.WriteString("TTS synthesis report\n")
	fmt.Fprintf(&b, "Generated at: %s\n\n", r.GeneratedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "Input text: %s\n", preview)
	fmt.Fprintf(&b, "Text length: %d characters\n\n", len(runes))
	b.WriteString("TTS parameters:\n")
	b.WriteString("  Provider: Minimax\n")
	fmt.Fprintf(&b, "  Model: %s\n", r.Model)
	fmt.Fprintf(&b, "  Voice: %s (%s)\n\n", r.VoiceName, r.VoiceID)
	b.WriteString("Audio output:\n")
	fmt.Fprintf(&b, "  Size: %.1f KB\n", float64(r.SizeBytes)/1024)
	fmt.Fprintf(&b, "  Format: %s\n", strings.ToUpper(r.Format))
	fmt.Fprintf(&b, "  Estimated duration: %.1f s\n", float64(r.SizeBytes)/estimatedBytesPerSecond)
	fmt.Fprintf(&b, "  Trace-Id: %s\n\n", r.TraceID)
	b.WriteString("Status: synthesized\n")
	b.WriteString("\nNote: every API call consumes quota.\n")

	return b.String()
}

// uploadReport describes an uploaded audio track.
type uploadReport struct {
	GeneratedAt time.Time
	Key         string
	FileName    string
	Format      media.AudioFormat
	SizeBytes   int
}

func (r uploadReport) String() string {
	var b strings.Builder

	formats := make([]string, len(media.UploadFormats))
	for i, format := range media.UploadFormats {
		formats[i] = strings.ToUpper(string(format))
	}

	b.WriteString("Audio upload report\n")
	fmt.Fprintf(&b, "Processed at: %s\n\n", r.GeneratedAt.Format(reportTimeLayout))
	b.WriteString("File:\n")
	fmt.Fprintf(&b, "  Name: %s\n", r.FileName)
	fmt.Fprintf(&b, "  Size: %.1f KB (%s)\n", float64(r.SizeBytes)/1024, media.FormatFileSize(int64(r.SizeBytes)))
	fmt.Fprintf(&b, "  Format: %s\n", strings.ToUpper(string(r.Format)))
	fmt.Fprintf(&b, "  Object key: %s\n\n", r.Key)
	b.WriteString("Processing:\n")
	b.WriteString("  Source: user upload\n")
	fmt.Fprintf(&b, "  Supported formats: %s\n", strings.Join(formats, ", "))
	b.WriteString("  Mode: used as is\n\n")
	b.WriteString("Status: received\n")

	return b.String()
}
