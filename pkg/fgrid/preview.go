package fgrid

import(
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

// WritePreviewPNG saves a simple grayscale rendering of the grid,
// stretched between the 1st and 99th percentile values and gamma
// scaled to look normal for human vision.
func (g *Grid)WritePreviewPNG(title, filename string) error {
	lo, hi := g.PercentileRange(0.01, 0.99)
	if hi <= lo {
		hi = lo + 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{g.Dx(), g.Dy()}})
	for x := 0; x < g.Dx(); x++ {
		for y := 0; y < g.Dy(); y++ {
			v := clamp((g.Get(x,y) - lo) / (hi - lo), 0, 1)
			gray := gammaExpand(v)
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 20, 20)
	return dc.SavePNG(filename)
}

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
func gammaExpand(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}
