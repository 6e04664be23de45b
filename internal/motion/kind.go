// Package motion generates randomized head-motion timelines and samples head poses from them.
//
// A timeline is a contiguous run of segments covering [0, duration). Each segment holds one
// motion kind and the parameters drawn for it. Poses are derived from a timeline on demand and
// the renderer consumes them as a per-frame (pitch, yaw, roll) track.
package motion

import (
	"fmt"
	"strings"
)

// Kind identifies the head motion performed during a segment.
type Kind uint8

const (
	// Still holds the rest pose.
	Still Kind = iota
	// Nod swings pitch along a sine wave.
	Nod
	// Tilt holds a constant roll.
	Tilt
)

// Kinds lists every motion kind in selection order.
var Kinds = []Kind{Still, Nod, Tilt}

const (
	kindStillName = "still"
	kindNodName   = "nod"
	kindTiltName  = "tilt"
)

// String returns the lower-case wire name of the kind.
func (k Kind) String() string {
	switch k {
	case Still:
		return kindStillName
	case Nod:
		return kindNodName
	case Tilt:
		return kindTiltName
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k <= Tilt
}

// ParseKind converts a wire name into a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case kindStillName:
		return Still, nil
	case kindNodName:
		return Nod, nil
	case kindTiltName:
		return Tilt, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}
