package capture

import (
	"image"
	"math"
)

// GrayPrecomp stores per-pixel grayscale values of a search region and their
// summed-area tables (integral images). The integrals allow O(1) window sum
// and variance queries.
type GrayPrecomp struct {
	gray       []float64 // per pixel grayscale (length W*H)
	integral   []float64 // summed-area table of grayscale
	integralSq []float64 // summed-area table of grayscale squared
	W, H       int
}

// TemplatePrecomp caches grayscale pixels and summary statistics for a
// template (or a scaled version of it).
type TemplatePrecomp struct {
	gray  []float64
	W, H  int
	meanT float64
	stdT  float64
}

// Size returns the template dimensions.
func (pc *TemplatePrecomp) Size() (int, int) { return pc.W, pc.H }

// NCCOptions configures normalized cross-correlation template matching.
type NCCOptions struct {
	Threshold float64 // Minimum NCC score for a positive match
	Stride    int     // Coarse stride for scanning (default 1)
}

// Match is one window position scoring at or above the threshold.
type Match struct {
	X, Y  int
	W, H  int
	Score float64
}

// coarseSlack widens the acceptance band of the coarse pass so peaks that fall
// between stride samples are still refined.
const coarseSlack = 0.10

// PrecomputeGray builds the grayscale buffer and summed-area tables for img.
// Coordinates are relative to img.Bounds().Min.
func PrecomputeGray(img *image.Gray) *GrayPrecomp {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	W, H := b.Dx(), b.Dy()
	need := W * H
	p := &GrayPrecomp{
		gray:       make([]float64, need),
		integral:   make([]float64, need),
		integralSq: make([]float64, need),
		W:          W,
		H:          H,
	}
	for y := 0; y < H; y++ {
		row := img.Pix[(y)*img.Stride : (y)*img.Stride+W]
		var rowSum, rowSum2 float64
		for x := 0; x < W; x++ {
			g := float64(row[x])
			off := y*W + x
			p.gray[off] = g
			rowSum += g
			rowSum2 += g * g
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

// PrecomputeTemplate returns the matching statistics for tmpl. It returns nil
// for empty templates and for flat templates whose correlation is undefined.
func PrecomputeTemplate(tmpl *image.Gray) *TemplatePrecomp {
	if tmpl == nil {
		return nil
	}
	b := tmpl.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	gray := make([]float64, w*h)
	var sumT, sumT2 float64
	for y := 0; y < h; y++ {
		row := tmpl.Pix[y*tmpl.Stride : y*tmpl.Stride+w]
		for x := 0; x < w; x++ {
			g := float64(row[x])
			gray[y*w+x] = g
			sumT += g
			sumT2 += g * g
		}
	}
	n := float64(w * h)
	meanT := sumT / n
	varT := (sumT2 - sumT*sumT/n) / n
	if varT <= 1e-9 {
		return nil
	}
	return &TemplatePrecomp{gray: gray, W: w, H: h, meanT: meanT, stdT: math.Sqrt(varT)}
}

// MatchAll computes the mean-normalized cross-correlation between pc and
// every window of pre and returns all positions scoring >= opts.Threshold,
// in row-major order. Windows with zero variance never match.
func MatchAll(pre *GrayPrecomp, pc *TemplatePrecomp, opts NCCOptions) []Match {
	if pre == nil || pc == nil {
		return nil
	}
	W, H := pre.W, pre.H
	w, h := pc.W, pc.H
	if w == 0 || h == 0 || W < w || H < h {
		return nil
	}
	stride := opts.Stride
	if stride <= 0 {
		stride = 1
	}
	var out []Match
	if stride == 1 {
		for y := 0; y <= H-h; y++ {
			for x := 0; x <= W-w; x++ {
				if s, ok := scoreAt(pre, pc, x, y); ok && s >= opts.Threshold {
					out = append(out, Match{X: x, Y: y, W: w, H: h, Score: s})
				}
			}
		}
		return out
	}

	// Coarse pass on the stride grid, then an exhaustive pass around every
	// promising sample.
	maxX, maxY := W-w, H-h
	visited := make([]bool, (maxX+1)*(maxY+1))
	hits := make([]float64, (maxX+1)*(maxY+1))
	for y := 0; y <= maxY; y += stride {
		for x := 0; x <= maxX; x += stride {
			s, ok := scoreAt(pre, pc, x, y)
			if !ok || s < opts.Threshold-coarseSlack {
				continue
			}
			for ry := max(0, y-stride+1); ry <= min(maxY, y+stride-1); ry++ {
				for rx := max(0, x-stride+1); rx <= min(maxX, x+stride-1); rx++ {
					idx := ry*(maxX+1) + rx
					if visited[idx] {
						continue
					}
					visited[idx] = true
					if rs, rok := scoreAt(pre, pc, rx, ry); rok {
						hits[idx] = rs
					} else {
						hits[idx] = -1
					}
				}
			}
		}
	}
	for y := 0; y <= maxY; y++ {
		for x := 0; x <= maxX; x++ {
			idx := y*(maxX+1) + x
			if visited[idx] && hits[idx] >= opts.Threshold {
				out = append(out, Match{X: x, Y: y, W: w, H: h, Score: hits[idx]})
			}
		}
	}
	return out
}

// scoreAt returns the correlation coefficient of the template placed at (x, y).
func scoreAt(pre *GrayPrecomp, pc *TemplatePrecomp, x, y int) (float64, bool) {
	w, h := pc.W, pc.H
	n := float64(w * h)
	sumF := integralSum(pre.integral, pre.W, x, y, x+w-1, y+h-1)
	sumF2 := integralSum(pre.integralSq, pre.W, x, y, x+w-1, y+h-1)
	meanF := sumF / n
	varF := (sumF2 - sumF*sumF/n) / n
	if varF <= 1e-9 {
		return 0, false
	}
	stdF := math.Sqrt(varF)
	var sumFT float64
	for py := 0; py < h; py++ {
		frow := pre.gray[(y+py)*pre.W+x : (y+py)*pre.W+x+w]
		trow := pc.gray[py*w : py*w+w]
		for px := range trow {
			sumFT += frow[px] * trow[px]
		}
	}
	denom := n * stdF * pc.stdT
	if denom <= 0 {
		return 0, false
	}
	score := (sumFT - n*meanF*pc.meanT) / denom
	if score > 1 {
		score = 1
	}
	return score, true
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}
