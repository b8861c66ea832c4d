package imaging

import (
	"image"
	"image/color"
	"math"
)

// Gray is a single-channel intensity buffer with values in the 0-255 range,
// stored row-major. Algorithms work on Gray rather than image.Image so that
// per-pixel access avoids the color.Color interface.
type Gray struct {
	W, H int
	Pix  []float64
}

// NewGray allocates a zeroed w×h buffer.
func NewGray(w, h int) *Gray {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Gray{W: w, H: h, Pix: make([]float64, w*h)}
}

// ToGray converts img to intensity using ITU-R BT.601 luminance weights
// (0.299*R + 0.587*G + 0.114*B). Single-channel images are copied as-is.
func ToGray(img image.Image) *Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := NewGray(w, h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):]
			for x := 0; x < w; x++ {
				g.Pix[y*w+x] = float64(row[x])
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X)*4:]
			for x := 0; x < w; x++ {
				i := x * 4
				g.Pix[y*w+x] = luma(float64(row[i]), float64(row[i+1]), float64(row[i+2]))
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, gg, bb, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
				g.Pix[y*w+x] = luma(float64(r>>8), float64(gg>>8), float64(bb>>8))
			}
		}
	}
	return g
}

func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// Empty reports whether the buffer has no pixels.
func (g *Gray) Empty() bool {
	return g == nil || g.W == 0 || g.H == 0
}

// In reports whether (x, y) is inside the buffer.
func (g *Gray) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.W && y < g.H
}

// At returns the value at (x, y). Out-of-range coordinates are clamped to the
// nearest edge pixel.
func (g *Gray) At(x, y int) float64 {
	return g.Pix[clamp(y, 0, g.H-1)*g.W+clamp(x, 0, g.W-1)]
}

// Set stores v at (x, y). Out-of-range writes are ignored.
func (g *Gray) Set(x, y int, v float64) {
	if g.In(x, y) {
		g.Pix[y*g.W+x] = v
	}
}

// Bilinear samples the buffer at a sub-pixel position. ok is false when the
// position lies outside [0, W-1]×[0, H-1].
func (g *Gray) Bilinear(x, y float64) (v float64, ok bool) {
	if g.Empty() || x < 0 || y < 0 || x > float64(g.W-1) || y > float64(g.H-1) {
		return 0, false
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	if x1 >= g.W {
		x1 = g.W - 1
	}
	y1 := y0 + 1
	if y1 >= g.H {
		y1 = g.H - 1
	}
	dx := x - float64(x0)
	dy := y - float64(y0)

	top := g.Pix[y0*g.W+x0]*(1-dx) + g.Pix[y0*g.W+x1]*dx
	bottom := g.Pix[y1*g.W+x0]*(1-dx) + g.Pix[y1*g.W+x1]*dx
	return top*(1-dy) + bottom*dy, true
}

// Clone returns a deep copy.
func (g *Gray) Clone() *Gray {
	c := &Gray{W: g.W, H: g.H, Pix: make([]float64, len(g.Pix))}
	copy(c.Pix, g.Pix)
	return c
}

// Resize resamples the buffer to w×h with bilinear interpolation using
// pixel-centre alignment.
func (g *Gray) Resize(w, h int) *Gray {
	out := NewGray(w, h)
	if g.Empty() || w == 0 || h == 0 {
		return out
	}
	fx := float64(g.W) / float64(w)
	fy := float64(g.H) / float64(h)
	for y := 0; y < h; y++ {
		sy := math.Max(0, math.Min((float64(y)+0.5)*fy-0.5, float64(g.H-1)))
		for x := 0; x < w; x++ {
			sx := math.Max(0, math.Min((float64(x)+0.5)*fx-0.5, float64(g.W-1)))
			v, _ := g.Bilinear(sx, sy)
			out.Pix[y*w+x] = v
		}
	}
	return out
}

// Image converts the buffer to an 8-bit *image.Gray, rounding and clamping.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.W, g.H))
	for i, v := range g.Pix {
		img.Pix[i] = toUint8(v)
	}
	return img
}

// Mean returns the average intensity.
func (g *Gray) Mean() float64 {
	if g.Empty() {
		return 0
	}
	var s float64
	for _, v := range g.Pix {
		s += v
	}
	return s / float64(len(g.Pix))
}

func toUint8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// GrayColor converts an intensity to a color.Gray.
func GrayColor(v float64) color.Gray {
	return color.Gray{Y: toUint8(v)}
}
