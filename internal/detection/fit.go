package detection

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// ErrTooFewPoints is returned when a fit has fewer points than it needs.
var ErrTooFewPoints = errors.New("too few points to fit")

// Line is an infinite line through Point along the unit vector Dir.
type Line struct {
	Point vimg.Point `json:"point"`
	Dir   vimg.Point `json:"dir"`
}

// Project returns the foot of the perpendicular from p.
func (l Line) Project(p vimg.Point) vimg.Point {
	d := p.Sub(l.Point)
	t := d.X*l.Dir.X + d.Y*l.Dir.Y
	return l.Point.Add(l.Dir.Mul(t))
}

// Distance returns the perpendicular distance from p to l.
func (l Line) Distance(p vimg.Point) float64 {
	return vimg.Distance(p, l.Project(p))
}

// AngleDegrees is the direction of l in (-90, 90].
func (l Line) AngleDegrees() float64 {
	return normalizeAxisAngle(math.Atan2(l.Dir.Y, l.Dir.X) * 180 / math.Pi)
}

// FitLine fits a total-least-squares line: it passes through the centroid
// along the principal axis of the points. The residual is the RMS
// perpendicular distance.
func FitLine(pts []vimg.Point) (Line, float64, error) {
	if len(pts) < 2 {
		return Line{}, 0, ErrTooFewPoints
	}
	c := vimg.Centroid(pts)
	var sxx, sxy, syy float64
	for _, p := range pts {
		dx, dy := p.X-c.X, p.Y-c.Y
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	n := float64(len(pts))

	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(2, []float64{sxx / n, sxy / n, sxy / n, syy / n}), true) {
		return Line{}, 0, errors.New("line fit did not converge")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	dir := vimg.Pt(vecs.At(0, 1), vecs.At(1, 1))
	if dir.X < 0 || (dir.X == 0 && dir.Y < 0) {
		dir = dir.Mul(-1)
	}
	return Line{Point: c, Dir: dir}, math.Sqrt(math.Max(vals[0], 0)), nil
}

// Circle is a fitted circle.
type Circle struct {
	Center vimg.Point `json:"center"`
	Radius float64    `json:"radius"`
}

// FitCircle solves the algebraic (Kasa) fit x²+y²+Dx+Ey+F = 0 by least
// squares and returns the circle with the RMS radial residual.
func FitCircle(pts []vimg.Point) (Circle, float64, error) {
	n := len(pts)
	if n < 3 {
		return Circle{}, 0, ErrTooFewPoints
	}
	a := mat.NewDense(n, 3, nil)
	b := mat.NewDense(n, 1, nil)
	for i, p := range pts {
		a.SetRow(i, []float64{p.X, p.Y, 1})
		b.Set(i, 0, -(p.X*p.X + p.Y*p.Y))
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		return Circle{}, 0, errors.New("circle fit is degenerate: points are collinear")
	}
	d, e, f := sol.At(0, 0), sol.At(1, 0), sol.At(2, 0)
	center := vimg.Pt(-d/2, -e/2)
	r2 := center.X*center.X + center.Y*center.Y - f
	if r2 <= 0 || math.IsNaN(r2) || math.IsInf(r2, 0) {
		return Circle{}, 0, errors.New("circle fit is degenerate")
	}

	c := Circle{Center: center, Radius: math.Sqrt(r2)}
	var ss float64
	for _, p := range pts {
		d := vimg.Distance(p, c.Center) - c.Radius
		ss += d * d
	}
	return c, math.Sqrt(ss / float64(n)), nil
}
