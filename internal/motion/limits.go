package motion

import (
	"errors"
	"fmt"
	"math"
)

// Hard caps that hold regardless of configuration.
const (
	// MaxSegments bounds the number of segments one timeline may need.
	MaxSegments = 100_000
	// MaxPoseFrames bounds the length of one pose sequence.
	MaxPoseFrames = 1 << 20
)

var (
	// ErrTooManySegments indicates a duration that needs more than MaxSegments segments at the
	// shortest switch interval.
	ErrTooManySegments = errors.New("timeline would need too many segments")
	// ErrTooManyFrames indicates a pose sequence longer than the allowed frame count.
	ErrTooManyFrames = errors.New("pose sequence has too many frames")
	// ErrDurationTooLong indicates a duration above the configured maximum.
	ErrDurationTooLong = errors.New("duration exceeds the configured maximum")
)

// Limits bound the work one request may ask for.
type Limits struct {
	MaxDuration float64
	MaxFrames   int
}

// Check rejects a duration above MaxDuration or a frame count floor(duration*fps) above
// MaxFrames. Zero fields fall back to the hard caps only.
func (l Limits) Check(duration, fps float64) error {
	if l.MaxDuration > 0 && duration > l.MaxDuration {
		return fmt.Errorf("%w: %gs > %gs", ErrDurationTooLong, duration, l.MaxDuration)
	}

	return checkFrames(duration, fps, l.MaxFrames)
}

// checkFrames compares in float64 so that huge products never overflow int.
func checkFrames(duration, fps float64, maxFrames int) error {
	if maxFrames <= 0 || maxFrames > MaxPoseFrames {
		maxFrames = MaxPoseFrames
	}

	frames := math.Floor(duration * fps)
	if frames > float64(maxFrames) {
		return fmt.Errorf("%w: %g > %d", ErrTooManyFrames, frames, maxFrames)
	}

	return nil
}
