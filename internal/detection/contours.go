package detection

import (
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// Mask is a binary image: true marks foreground.
type Mask struct {
	W, H int
	Pix  []bool
}

// NewMask allocates an all-background w×h mask.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Pix: make([]bool, w*h)}
}

// At reports whether (x, y) is foreground. Outside the mask is background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x]
}

// Set marks (x, y). Out-of-range writes are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x >= 0 && y >= 0 && x < m.W && y < m.H {
		m.Pix[y*m.W+x] = v
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Image renders the mask as 0/255.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for i, v := range m.Pix {
		if v {
			img.Pix[i] = 255
		}
	}
	return img
}

// Binarize marks pixels brighter than threshold as foreground, or darker-or-equal
// when invert is set.
func Binarize(g *vimg.Gray, threshold float64, invert bool) *Mask {
	m := NewMask(g.W, g.H)
	for i, v := range g.Pix {
		m.Pix[i] = (v > threshold) != invert
	}
	return m
}

// MaskFromBinary treats any non-zero pixel of an already binary image as
// foreground, or zero pixels when invert is set.
func MaskFromBinary(g *vimg.Gray, invert bool) *Mask {
	return Binarize(g, 0, invert)
}

// RetrievalMode selects which boundaries FindContours reports.
type RetrievalMode string

const (
	// RetrieveExternal reports outer boundaries of top-level components only.
	RetrieveExternal RetrievalMode = "external"
	// RetrieveTree reports every outer and hole boundary with parent links.
	RetrieveTree RetrievalMode = "tree"
)

// Approximation selects how many boundary pixels a contour keeps.
type Approximation string

const (
	// ApproxNone keeps every boundary pixel.
	ApproxNone Approximation = "none"
	// ApproxSimple compresses straight runs to their end points.
	ApproxSimple Approximation = "simple"
)

// Contour is one traced boundary.
//
// Parent is the index of the enclosing contour in the slice returned by
// FindContours, or -1. A hole's parent is the outer boundary of the component
// around it; a component inside a hole has that hole as parent.
type Contour struct {
	Points []image.Point
	Hole   bool
	Parent int
}

// Moore neighbourhood in clockwise screen order, starting east.
var ring = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const (
	dirEast = 0
	dirWest = 4
)

func ringIndex(d image.Point) int {
	for i, r := range ring {
		if r == d {
			return i
		}
	}
	return -1
}

// FindContours traces the boundaries of the 8-connected foreground components
// of m.
//
// Components and holes are found in raster order. Background is
// 4-connected; a background region that does not touch the mask border is a
// hole. Each boundary is followed with Moore-neighbour tracing from its first
// raster pixel, so outer contours run clockwise on screen.
func FindContours(m *Mask, mode RetrievalMode, approx Approximation) []Contour {
	if m == nil || m.W == 0 || m.H == 0 {
		return nil
	}
	w, h := m.W, m.H

	// Foreground components, 8-connected.
	fgLabel := make([]int, w*h)
	for i := range fgLabel {
		fgLabel[i] = -1
	}
	// Background regions, 4-connected.
	bgLabel := make([]int, w*h)
	for i := range bgLabel {
		bgLabel[i] = -1
	}

	var (
		contours  []Contour
		compIndex []int // component label -> contour index
		holeIndex []int // background label -> contour index, -1 when not a hole
		bgCount   int
	)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if m.Pix[i] {
				if fgLabel[i] >= 0 {
					continue
				}
				label := len(compIndex)
				floodFill(m, fgLabel, x, y, label, true)

				parent := -1
				if x > 0 {
					if bl := bgLabel[i-1]; bl >= 0 {
						parent = holeIndex[bl]
					}
				}
				compIndex = append(compIndex, len(contours))
				contours = append(contours, Contour{
					Points: traceBoundary(m, image.Pt(x, y), dirWest),
					Parent: parent,
				})
				continue
			}

			if bgLabel[i] >= 0 {
				continue
			}
			label := bgCount
			bgCount++
			touches := floodFill(m, bgLabel, x, y, label, false)
			if touches || x == 0 {
				holeIndex = append(holeIndex, -1)
				continue
			}
			// The pixel left of a hole's first raster pixel is foreground.
			holeIndex = append(holeIndex, len(contours))
			contours = append(contours, Contour{
				Points: traceBoundary(m, image.Pt(x-1, y), dirEast),
				Hole:   true,
				Parent: compIndex[fgLabel[i-1]],
			})
		}
	}

	if mode != RetrieveTree {
		outer := contours[:0:0]
		for _, c := range contours {
			if !c.Hole && c.Parent < 0 {
				outer = append(outer, c)
			}
		}
		contours = outer
	}
	if approx == ApproxSimple {
		for i := range contours {
			contours[i].Points = simplifyChain(contours[i].Points)
		}
	}
	return contours
}

// floodFill labels the region containing (startX, startY). Foreground uses
// 8-connectivity and background 4-connectivity. It reports whether the region
// touches the mask border.
func floodFill(m *Mask, labels []int, startX, startY, label int, fg bool) bool {
	w, h := m.W, m.H
	touches := false
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		i := p.Y*w + p.X
		if labels[i] >= 0 || m.Pix[i] != fg {
			continue
		}

		labels[i] = label
		if p.X == 0 || p.Y == 0 || p.X == w-1 || p.Y == h-1 {
			touches = true
		}

		for k, d := range ring {
			if !fg && k%2 == 1 {
				continue
			}
			stack = append(stack, p.Add(d))
		}
	}
	return touches
}

// traceBoundary follows the foreground boundary starting at s, with the
// background neighbour in direction back. Tracing stops when it is about to
// repeat its first move.
func traceBoundary(m *Mask, s image.Point, back int) []image.Point {
	pts := []image.Point{s}
	p1, b1, ok := nextBoundary(m, s, back)
	if !ok {
		return pts
	}

	cur, b := p1, b1
	limit := 4*m.W*m.H + 8
	for step := 0; step < limit; step++ {
		next, nb, _ := nextBoundary(m, cur, b)
		if cur == s && next == p1 {
			break
		}
		pts = append(pts, cur)
		cur, b = next, nb
	}
	return pts
}

// nextBoundary scans the neighbours of p clockwise, starting after the
// background neighbour in direction back, and returns the first foreground
// pixel with the direction from it back to the last background pixel seen.
func nextBoundary(m *Mask, p image.Point, back int) (image.Point, int, bool) {
	for i := 1; i <= 8; i++ {
		k := (back + i) % 8
		q := p.Add(ring[k])
		if !m.At(q.X, q.Y) {
			continue
		}
		prev := p.Add(ring[(k+7)%8])
		return q, ringIndex(prev.Sub(q)), true
	}
	return p, back, false
}

// simplifyChain drops points whose incoming and outgoing steps share a
// direction.
func simplifyChain(pts []image.Point) []image.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}
	out := make([]image.Point, 0, n)
	for i, p := range pts {
		in := p.Sub(pts[(i+n-1)%n])
		outStep := pts[(i+1)%n].Sub(p)
		if in != outStep {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return pts[:1]
	}
	return out
}
