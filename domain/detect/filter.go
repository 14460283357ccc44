package detect

import (
	"image"
	"sort"
)

// IoU returns the intersection-over-union of two rectangles, 0 when they do
// not overlap.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := inter.Dx() * inter.Dy()
	union := a.Dx()*a.Dy() + b.Dx()*b.Dy() - ia
	if union <= 0 {
		return 0
	}
	return float64(ia) / float64(union)
}

// NMS keeps the most confident detections, dropping any candidate whose IoU
// with an already kept detection is >= threshold. Ties in confidence keep
// the earlier detection. The input slice is not modified.
func NMS(dets []Detection, threshold float64) []Detection {
	if len(dets) == 0 {
		return nil
	}
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })

	keep := make([]Detection, 0, len(sorted))
	for _, cand := range sorted {
		suppressed := false
		for _, k := range keep {
			if IoU(k.Rect, cand.Rect) >= threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			keep = append(keep, cand)
		}
	}
	return keep
}

// Cluster groups detections along the x axis and returns one representative
// per group, ordered left to right. Detections are visited by ascending x;
// each joins the first group holding a member less than dist pixels away
// horizontally, otherwise it opens a new group. A group is represented by its
// most confident member, the first one on ties.
func Cluster(dets []Detection, dist int) []Detection {
	if len(dets) == 0 {
		return nil
	}
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rect.Min.X < sorted[j].Rect.Min.X })

	var groups [][]Detection
	for _, d := range sorted {
		placed := false
		for gi := range groups {
			for _, m := range groups[gi] {
				if abs(d.Rect.Min.X-m.Rect.Min.X) < dist {
					groups[gi] = append(groups[gi], d)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			groups = append(groups, []Detection{d})
		}
	}

	reps := make([]Detection, 0, len(groups))
	for _, g := range groups {
		best := g[0]
		for _, m := range g[1:] {
			if m.Confidence > best.Confidence {
				best = m
			}
		}
		reps = append(reps, best)
	}
	sort.SliceStable(reps, func(i, j int) bool { return reps[i].Rect.Min.X < reps[j].Rect.Min.X })
	return reps
}

// BoundingBox returns the smallest rectangle covering every detection.
func BoundingBox(dets []Detection) image.Rectangle {
	var box image.Rectangle
	for i, d := range dets {
		if i == 0 {
			box = d.Rect
			continue
		}
		box = box.Union(d.Rect)
	}
	return box
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
