package detect

import (
	"image"
	"math"
)

// AdaptiveThreshold adjusts the base match threshold to the brightness
// statistics of the search region. Low contrast wins over darkness, which
// wins over brightness.
func AdaptiveThreshold(mean, std, base float64) float64 {
	switch {
	case std < 15:
		return math.Max(base-0.15, 0.4)
	case mean < 60:
		return math.Max(base-0.1, 0.5)
	case mean > 200:
		return math.Min(base+0.1, 0.9)
	default:
		return base
	}
}

// NeighborhoodPadding is the margin searched around a known ROI: 20% of its
// smaller side, kept within [20, 50] pixels.
func NeighborhoodPadding(r image.Rectangle) int {
	return min(50, max(20, int(float64(min(r.Dx(), r.Dy()))*0.2)))
}
