// Package core defines the interfaces and job types shared by the avatar-service components.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SpeechRequest holds the parameters of a single speech synthesis call.
type SpeechRequest struct {
	APIKey string
	Model  string
	Voice  string
	Text   string
}

// Speech is synthesized audio. Model and Voice are the values actually sent, after defaults.
type Speech struct {
	Audio   []byte
	Format  string
	Model   string
	Voice   string
	TraceID string
}

// SpeechSynthesizer defines the interface for a text-to-speech backend.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (*Speech, error)
	VoiceName(voiceID string) string
}

// RenderJob describes one digital-human render. PoseTrackPath is empty when no head motion
// is applied.
type RenderJob struct {
	WorkID        string
	AudioPath     string
	VideoPath     string
	PoseTrackPath string
	OutputPath    string
}

// VideoRenderer defines the interface for the external digital-human renderer.
type VideoRenderer interface {
	Render(ctx context.Context, job RenderJob) error
}

// MediaToolkit probes and muxes media files.
type MediaToolkit interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Mux(ctx context.Context, audioPath, videoPath, outputPath string) error
}
