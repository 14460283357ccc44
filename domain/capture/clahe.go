package capture

import "image"

// CLAHE applies contrast-limited adaptive histogram equalization to g and
// returns a new image. The image is split into tilesX x tilesY tiles, each
// tile histogram is clipped at clip times its average bin height with the
// excess redistributed, and every pixel is mapped by bilinear interpolation
// between the four nearest tile transfer functions.
func CLAHE(g *image.Gray, tilesX, tilesY int, clip float64) *image.Gray {
	src := ToGray(g)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if isFlat(src) {
		copy(out.Pix, src.Pix)
		return out
	}
	tilesX = max(1, min(tilesX, w))
	tilesY = max(1, min(tilesY, h))
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	// no empty trailing tiles
	tilesX = (w + tileW - 1) / tileW
	tilesY = (h + tileH - 1) / tileH

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[ty*tilesX+tx] = tileLUT(src, x0, y0, x1, y1, clip)
		}
	}

	for y := 0; y < h; y++ {
		// position relative to tile centres
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := clampInt(int(floor(fy)), 0, tilesY-1)
		ty1 := clampInt(ty0+1, 0, tilesY-1)
		wy := fy - float64(ty0)
		if fy < 0 {
			wy = 0
		}
		if wy > 1 {
			wy = 1
		}
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := clampInt(int(floor(fx)), 0, tilesX-1)
			tx1 := clampInt(tx0+1, 0, tilesX-1)
			wx := fx - float64(tx0)
			if fx < 0 {
				wx = 0
			}
			if wx > 1 {
				wx = 1
			}
			v := src.Pix[y*src.Stride+x]
			a := float64(luts[ty0*tilesX+tx0][v])
			b := float64(luts[ty0*tilesX+tx1][v])
			c := float64(luts[ty1*tilesX+tx0][v])
			d := float64(luts[ty1*tilesX+tx1][v])
			top := a*(1-wx) + b*wx
			bot := c*(1-wx) + d*wx
			out.Pix[y*out.Stride+x] = uint8(top*(1-wy) + bot*wy + 0.5)
		}
	}
	return out
}

func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clip float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
		}
	}
	n := (x1 - x0) * (y1 - y0)
	var lut [256]uint8
	if n == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}
	if clip > 0 {
		limit := max(1, int(clip*float64(n)/256))
		excess := 0
		for i := range hist {
			if hist[i] > limit {
				excess += hist[i] - limit
				hist[i] = limit
			}
		}
		per, rem := excess/256, excess%256
		for i := range hist {
			hist[i] += per
		}
		// spread the remainder evenly across the range
		if rem > 0 {
			step := max(1, 256/rem)
			for i := 0; i < 256 && rem > 0; i += step {
				hist[i]++
				rem--
			}
		}
	}
	scale := 255.0 / float64(n)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(min(255, float64(sum)*scale+0.5))
	}
	return lut
}

func isFlat(g *image.Gray) bool {
	if len(g.Pix) == 0 {
		return true
	}
	v := g.Pix[0]
	for _, p := range g.Pix {
		if p != v {
			return false
		}
	}
	return true
}

func floor(v float64) float64 {
	i := float64(int(v))
	if v < 0 && i != v {
		return i - 1
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
