package render

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/book-expert/avatar-service/internal/motion"
)

const poseTrackPermissions = 0o600

// PoseTrack is the per-frame head pose file read by the renderer. Each frame is
// [pitch, yaw, roll] in degrees.
type PoseTrack struct {
	FPS    float64      `json:"fps"`
	Frames [][3]float64 `json:"frames"`
}

// NewPoseTrack converts a pose sequence to its file representation.
func NewPoseTrack(fps float64, poses []motion.HeadPose) PoseTrack {
	frames := make([][3]float64, len(poses))
	for i, pose := range poses {
		frames[i] = pose.Triple()
	}

	return PoseTrack{FPS: fps, Frames: frames}
}

// EncodePoseTrack serializes a pose sequence.
func EncodePoseTrack(fps float64, poses []motion.HeadPose) ([]byte, error) {
	data, err := json.Marshal(NewPoseTrack(fps, poses))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pose track: %w", err)
	}

	return data, nil
}

// WritePoseTrack writes a pose sequence to path and returns the encoded bytes.
func WritePoseTrack(path string, fps float64, poses []motion.HeadPose) ([]byte, error) {
	data, err := EncodePoseTrack(fps, poses)
	if err != nil {
		return nil, err
	}

	err = os.WriteFile(path, data, poseTrackPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to write pose track %s: %w", path, err)
	}

	return data, nil
}
