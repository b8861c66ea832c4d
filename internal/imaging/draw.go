package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is an RGBA drawing surface used to render overlays.
//
// All primitives clip silently at the image border and accept float
// coordinates, which are rounded to the nearest pixel. A thickness below 1
// is treated as 1, except for Circle where a negative thickness fills.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas returns a canvas holding a copy of base re-based at (0,0).
// A nil base yields an empty canvas.
func NewCanvas(base image.Image) *Canvas {
	if base == nil {
		return &Canvas{img: image.NewRGBA(image.Rectangle{})}
	}
	b := base.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), base, b.Min, draw.Src)
	return &Canvas{img: img}
}

// Image returns the underlying image. It is not copied.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) set(x, y int, col color.Color) {
	if image.Pt(x, y).In(c.img.Rect) {
		c.img.Set(x, y, col)
	}
}

// stamp paints a filled disk of the given diameter centred at (x, y).
func (c *Canvas) stamp(x, y int, thickness int, col color.Color) {
	if thickness <= 1 {
		c.set(x, y, col)
		return
	}
	r := float64(thickness) / 2
	ri := int(math.Ceil(r))
	for dy := -ri; dy <= ri; dy++ {
		for dx := -ri; dx <= ri; dx++ {
			if float64(dx*dx+dy*dy) <= r*r {
				c.set(x+dx, y+dy, col)
			}
		}
	}
}

// Line draws a segment from p to q using Bresenham's algorithm.
func (c *Canvas) Line(p, q Point, col color.Color, thickness int) {
	x0, y0 := int(math.Round(p.X)), int(math.Round(p.Y))
	x1, y1 := int(math.Round(q.X)), int(math.Round(q.Y))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.stamp(x0, y0, thickness, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Rect outlines an axis-aligned rectangle with top-left p and the given size.
func (c *Canvas) Rect(p Point, w, h float64, col color.Color, thickness int) {
	if w <= 0 || h <= 0 {
		return
	}
	x1, y1 := p.X+w-1, p.Y+h-1
	c.Polygon([]Point{p, {x1, p.Y}, {x1, y1}, {p.X, y1}}, col, thickness)
}

// Polygon outlines a closed polygon.
func (c *Canvas) Polygon(pts []Point, col color.Color, thickness int) {
	switch len(pts) {
	case 0:
		return
	case 1:
		c.stamp(int(math.Round(pts[0].X)), int(math.Round(pts[0].Y)), thickness, col)
		return
	}
	for i := range pts {
		c.Line(pts[i], pts[(i+1)%len(pts)], col, thickness)
	}
}

// Circle outlines a circle, or fills it when thickness is negative.
func (c *Canvas) Circle(center Point, radius float64, col color.Color, thickness int) {
	if radius <= 0 {
		c.stamp(int(math.Round(center.X)), int(math.Round(center.Y)), thickness, col)
		return
	}
	if thickness < 0 {
		ri := int(math.Ceil(radius))
		cx, cy := int(math.Round(center.X)), int(math.Round(center.Y))
		for dy := -ri; dy <= ri; dy++ {
			for dx := -ri; dx <= ri; dx++ {
				if float64(dx*dx+dy*dy) <= radius*radius {
					c.set(cx+dx, cy+dy, col)
				}
			}
		}
		return
	}
	c.Ellipse(center, radius*2, radius*2, 0, col, thickness)
}

// Ellipse outlines an ellipse with full axis lengths w and h, rotated by
// angle degrees.
func (c *Canvas) Ellipse(center Point, w, h, angle float64, col color.Color, thickness int) {
	a, b := w/2, h/2
	if a <= 0 && b <= 0 {
		return
	}
	steps := int(math.Max(16, math.Ceil(2*math.Pi*math.Max(a, b))))
	rad := angle * math.Pi / 180
	cosA, sinA := math.Cos(rad), math.Sin(rad)
	pts := make([]Point, steps)
	for i := range pts {
		t := 2 * math.Pi * float64(i) / float64(steps)
		ex, ey := a*math.Cos(t), b*math.Sin(t)
		pts[i] = Point{X: center.X + ex*cosA - ey*sinA, Y: center.Y + ex*sinA + ey*cosA}
	}
	c.Polygon(pts, col, thickness)
}

// Crosshair draws a plus sign of the given arm length centred at p.
func (c *Canvas) Crosshair(p Point, size float64, col color.Color, thickness int) {
	if size <= 0 {
		size = 10
	}
	c.Line(Point{p.X - size, p.Y}, Point{p.X + size, p.Y}, col, thickness)
	c.Line(Point{p.X, p.Y - size}, Point{p.X, p.Y + size}, col, thickness)
}

// Marker draws a small filled dot.
func (c *Canvas) Marker(p Point, col color.Color, thickness int) {
	r := float64(thickness) + 1
	c.Circle(p, r, col, -1)
}

// Text renders s with its baseline-left corner at p using a fixed 7x13 face.
func (c *Canvas) Text(p Point, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(math.Round(p.X)), int(math.Round(p.Y))),
	}
	d.DrawString(s)
}

// TextBox renders s on a filled background box whose top-left corner is p.
func (c *Canvas) TextBox(p Point, s string, fg, bg color.Color) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Metrics().Height.Ceil()
	x, y := int(math.Round(p.X)), int(math.Round(p.Y))
	box := image.Rect(x-1, y-1, x+w+1, y+h).Intersect(c.img.Rect)
	draw.Draw(c.img, box, image.NewUniform(bg), image.Point{}, draw.Over)
	c.Text(Point{X: p.X, Y: p.Y + float64(face.Metrics().Ascent.Ceil())}, s, fg)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
