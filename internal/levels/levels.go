package levels

import "errors"

// The scale is fixed at startup; ranks are indices into this slice.
var tiers = []string{
	"Iniciación",
	"5 baja", "5 media", "5 alta",
	"4 baja", "4 media", "4 alta",
	"3 baja", "3 media", "3 alta",
	"Profesional",
}

// Tolerance is how far apart two ranks may be and still play together.
const Tolerance = 1

var ErrUnknownTier = errors.New("unknown tier")

// Rank returns the position of a tier name on the scale.
func Rank(tier string) (int, error) {
	for i, t := range tiers {
		if t == tier {
			return i, nil
		}
	}
	return 0, ErrUnknownTier
}

// TierName returns the name for a rank, clamping out-of-range values.
func TierName(rank int) string {
	if rank < 0 {
		rank = 0
	}
	if rank > MaxRank() {
		rank = MaxRank()
	}
	return tiers[rank]
}

func MaxRank() int {
	return len(tiers) - 1
}

// Tiers returns the scale in ascending order.
func Tiers() []string {
	out := make([]string, len(tiers))
	copy(out, tiers)
	return out
}

// Compatible reports whether two ranks are within Tolerance of each other.
func Compatible(a, b int) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= Tolerance
}

// Adjust moves a rank one step in the given direction (+1 promotes,
// -1 demotes), clamped to the scale.
func Adjust(rank, direction int) int {
	rank += direction
	if rank < 0 {
		return 0
	}
	if rank > MaxRank() {
		return MaxRank()
	}
	return rank
}
