package motion

import (
	"math"
)

// HeadPose is a head orientation in degrees. Yaw is reserved and always zero.
type HeadPose struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// RestPose is the neutral orientation.
var RestPose = HeadPose{}

// Triple returns the pose as [pitch, yaw, roll].
func (p HeadPose) Triple() [3]float64 {
	return [3]float64{p.Pitch, p.Yaw, p.Roll}
}

// SamplePose returns the pose at timePoint. Segments are tested in order with inclusive bounds
// and the first match wins, so a boundary shared by two segments resolves to the earlier one.
// Times outside every segment return RestPose.
func SamplePose(tl *Timeline, timePoint float64) HeadPose {
	if tl == nil {
		return RestPose
	}

	for _, seg := range tl.segments {
		if seg.Start <= timePoint && timePoint <= seg.End {
			return poseFor(seg, progressIn(seg, timePoint))
		}
	}

	return RestPose
}

// RenderPoseSequence samples floor(duration*fps) poses, frame f at f/fps seconds. Sequences
// longer than MaxPoseFrames are rejected with ErrTooManyFrames.
func RenderPoseSequence(tl *Timeline, duration, fps float64) ([]HeadPose, error) {
	if !isFinite(fps) || fps <= 0 {
		return nil, ErrInvalidFrameRate
	}

	if !isFinite(duration) || duration < 0 {
		return nil, &InvalidDurationError{Duration: duration}
	}

	err := checkFrames(duration, fps, MaxPoseFrames)
	if err != nil {
		return nil, err
	}

	frames := int(math.Floor(duration * fps))
	poses := make([]HeadPose, frames)

	for frame := range frames {
		poses[frame] = SamplePose(tl, float64(frame)/fps)
	}

	return poses, nil
}

func progressIn(seg Segment, timePoint float64) float64 {
	length := seg.Duration()
	if length == 0 {
		return 0
	}

	progress := (timePoint - seg.Start) / length

	return math.Max(0, math.Min(1, progress))
}

// poseFor maps a segment and its progress to a pose. Nod animates pitch and ignores
// Params.Direction because the sine already spans both signs; Tilt holds its roll for the
// whole segment.
func poseFor(seg Segment, progress float64) HeadPose {
	switch seg.Kind {
	case Nod:
		angle := 2 * math.Pi * seg.Params.Frequency * progress

		return HeadPose{Pitch: seg.Params.Amplitude * math.Sin(angle)}
	case Tilt:
		return HeadPose{Roll: seg.Params.Amplitude * float64(seg.Params.Direction)}
	default:
		return RestPose
	}
}
