package placement

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/cargoloop/simcore/internal/geo"
)

// HeadingMode selects how a placed passenger is turned.
type HeadingMode int

const (
	Random360 HeadingMode = iota
	Fixed
	FixedWithNoise
)

func (m HeadingMode) String() string {
	switch m {
	case Random360:
		return "random360"
	case Fixed:
		return "fixed"
	case FixedWithNoise:
		return "fixedWithNoise"
	default:
		return fmt.Sprintf("HeadingMode(%d)", int(m))
	}
}

// ParseHeadingMode is case insensitive.
func ParseHeadingMode(s string) (HeadingMode, error) {
	switch strings.ToLower(s) {
	case "random360", "random":
		return Random360, nil
	case "fixed":
		return Fixed, nil
	case "fixedwithnoise", "noise":
		return FixedWithNoise, nil
	default:
		return Random360, fmt.Errorf("unknown heading mode %q", s)
	}
}

// HeadingPolicy yields passenger headings in degrees relative to the frame
// they are placed in. Angle 0 faces the frame's forward axis.
type HeadingPolicy struct {
	Mode  HeadingMode
	Angle float64
	Noise float64 // +/- degrees for FixedWithNoise
}

// Sample draws a heading in [0, 360).
func (h HeadingPolicy) Sample(rng *rand.Rand) float64 {
	switch h.Mode {
	case Fixed:
		return geo.NormalizeDegrees(h.Angle)
	case FixedWithNoise:
		noise := (rng.Float64()*2 - 1) * h.Noise
		return geo.NormalizeDegrees(h.Angle + noise)
	default:
		return rng.Float64() * 360
	}
}
