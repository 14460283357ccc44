package capture

import (
	"image"
	"image/draw"
	"math"
)

// ToGray converts img to an 8-bit grayscale image anchored at (0,0) using the
// ITU-R BT.601 luma weights. RGBA and Gray inputs take a fast path.
func ToGray(img image.Image) *image.Gray {
	if img == nil {
		return image.NewGray(image.Rectangle{})
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * dst.Stride
			for x := 0; x < w; x++ {
				r := uint32(src.Pix[si])
				g := uint32(src.Pix[si+1])
				bl := uint32(src.Pix[si+2])
				dst.Pix[di+x] = uint8((299*r + 587*g + 114*bl + 500) / 1000)
				si += 4
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[si:si+w])
		}
	default:
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	return dst
}

// GrayStats returns the mean and population standard deviation of g.
func GrayStats(g *image.Gray) (mean, std float64) {
	if g == nil {
		return 0, 0
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	n := float64(w * h)
	if n == 0 {
		return 0, 0
	}
	var sum, sum2 float64
	for y := 0; y < h; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			v := float64(row[x])
			sum += v
			sum2 += v * v
		}
	}
	mean = sum / n
	variance := sum2/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
