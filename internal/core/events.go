package core

import (
	"time"

	"github.com/book-expert/events"
	"github.com/google/uuid"

	"github.com/book-expert/avatar-service/internal/motion"
)

// Audio input modes.
const (
	AudioInputTTS    = "tts"
	AudioInputUpload = "upload"
)

// SynthesisRequest is everything needed to produce one talking-head video.
type SynthesisRequest struct {
	WorkID         string                 `json:"work_id,omitempty"`
	AudioInputMode string                 `json:"audio_input_mode"`
	APIKey         string                 `json:"api_key,omitempty"`
	Voice          string                 `json:"voice,omitempty"`
	Model          string                 `json:"model,omitempty"`
	Text           string                 `json:"text,omitempty"`
	AudioKey       string                 `json:"audio_key,omitempty"`
	VideoKey       string                 `json:"video_key"`
	MotionMode     motion.Mode            `json:"motion_mode,omitempty"`
	Intensity      float64                `json:"motion_intensity,omitempty"`
	Custom         *motion.CustomSettings `json:"custom,omitempty"`
	Seed           uint64                 `json:"seed,omitempty"`
	Duration       float64                `json:"duration_seconds,omitempty"`
	FPS            float64                `json:"fps,omitempty"`
}

// SynthesisResult describes the artifacts of a finished job.
type SynthesisResult struct {
	WorkID         string  `json:"work_id"`
	VideoKey       string  `json:"video_key"`
	PoseTrackKey   string  `json:"pose_track_key,omitempty"`
	LocalVideoPath string  `json:"local_video_path,omitempty"`
	Duration       float64 `json:"duration_seconds"`
	FrameCount     int     `json:"frame_count"`
	SegmentCount   int     `json:"segment_count"`
	AudioReport    string  `json:"audio_report"`
	MotionReport   string  `json:"motion_report"`
}

// SynthesisRequestedEvent asks a worker to produce a video.
type SynthesisRequestedEvent struct {
	Header  events.EventHeader `json:"header"`
	Request SynthesisRequest   `json:"request"`
}

// VideoCreatedEvent is the reply to a SynthesisRequestedEvent. Error is set and Result is nil
// when the job failed.
type VideoCreatedEvent struct {
	Header events.EventHeader `json:"header"`
	Result *SynthesisResult   `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// NewEventHeader starts a new workflow header.
func NewEventHeader(workflowID string) events.EventHeader {
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	return events.EventHeader{
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		EventID:    uuid.NewString(),
		UserID:     "",
		TenantID:   "",
	}
}

// ReplyHeader derives the header of a reply from the header of the request.
func ReplyHeader(request events.EventHeader) events.EventHeader {
	reply := request
	reply.Timestamp = time.Now().UTC()
	reply.EventID = uuid.NewString()

	return reply
}
