package render

import (
	"image"
	"image/draw"
)

// blur applies a two-pass box blur of the given radius to img and scales the
// result's opacity. The image is premultiplied, so all four channels are
// averaged alike.
func blur(img image.Image, radius int, opacity float64) *image.RGBA {
	b := img.Bounds()
	src := image.NewRGBA(b)
	draw.Draw(src, b, img, b.Min, draw.Src)

	if radius > 0 {
		tmp := image.NewRGBA(b)
		boxPass(tmp, src, radius, 1, 0)
		boxPass(src, tmp, radius, 0, 1)
	}

	if opacity < 1 {
		for i := range src.Pix {
			src.Pix[i] = uint8(float64(src.Pix[i]) * opacity)
		}
	}
	return src
}

// boxPass averages each pixel of src with its neighbours along (dx, dy)
// into dst
func boxPass(dst, src *image.RGBA, radius, dx, dy int) {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var sum [4]int
			n := 0
			for k := -radius; k <= radius; k++ {
				sx, sy := x+k*dx, y+k*dy
				if sx < b.Min.X || sx >= b.Max.X || sy < b.Min.Y || sy >= b.Max.Y {
					continue
				}
				i := src.PixOffset(sx, sy)
				sum[0] += int(src.Pix[i])
				sum[1] += int(src.Pix[i+1])
				sum[2] += int(src.Pix[i+2])
				sum[3] += int(src.Pix[i+3])
				n++
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i] = uint8(sum[0] / n)
			dst.Pix[i+1] = uint8(sum[1] / n)
			dst.Pix[i+2] = uint8(sum[2] / n)
			dst.Pix[i+3] = uint8(sum[3] / n)
		}
	}
}
