package detection

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// RotatedRect is a rectangle of the given size centred on Center and rotated
// by Angle degrees (the direction of the Width side, in (-90, 90]).
type RotatedRect struct {
	Center vimg.Point `json:"center"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Angle  float64    `json:"angle"`
}

// Corners returns the four corners in order around the rectangle.
func (r RotatedRect) Corners() []vimg.Point {
	rad := r.Angle * math.Pi / 180
	u := vimg.Pt(math.Cos(rad), math.Sin(rad)).Mul(r.Width / 2)
	v := vimg.Pt(-math.Sin(rad), math.Cos(rad)).Mul(r.Height / 2)
	return []vimg.Point{
		r.Center.Sub(u).Sub(v),
		r.Center.Add(u).Sub(v),
		r.Center.Add(u).Add(v),
		r.Center.Sub(u).Add(v),
	}
}

// Ellipse is a fitted ellipse. Width is the full major axis, Height the full
// minor axis and Angle the major axis direction in degrees.
type Ellipse struct {
	Center vimg.Point `json:"center"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Angle  float64    `json:"angle"`
}

// ToPoints converts integer pixel positions to sub-pixel points.
func ToPoints(pts []image.Point) []vimg.Point {
	out := make([]vimg.Point, len(pts))
	for i, p := range pts {
		out[i] = vimg.FromImagePoint(p)
	}
	return out
}

// PolygonArea returns the absolute shoelace area of a closed polygon.
func PolygonArea(pts []vimg.Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var s float64
	for i, p := range pts {
		q := pts[(i+1)%n]
		s += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(s) / 2
}

// ContourArea is PolygonArea over pixel centres.
func ContourArea(pts []image.Point) float64 {
	return PolygonArea(ToPoints(pts))
}

// ArcLength returns the length of the polyline through pts, including the
// closing segment when closed is set.
func ArcLength(pts []image.Point, closed bool) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var l float64
	for i := 1; i < n; i++ {
		l += math.Hypot(float64(pts[i].X-pts[i-1].X), float64(pts[i].Y-pts[i-1].Y))
	}
	if closed {
		l += math.Hypot(float64(pts[0].X-pts[n-1].X), float64(pts[0].Y-pts[n-1].Y))
	}
	return l
}

// BoundingRect returns the smallest pixel rectangle containing pts.
func BoundingRect(pts []image.Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Pt(1, 1))
	return r
}

// ContourCentroid returns the area centroid of the polygon through pts
// (first-order moments over zeroth). Degenerate contours with no area fall
// back to the centre of their pixel extent.
func ContourCentroid(pts []image.Point) vimg.Point {
	n := len(pts)
	var a, cx, cy float64
	for i, p := range pts {
		q := pts[(i+1)%n]
		cross := float64(p.X*q.Y - q.X*p.Y)
		a += cross
		cx += float64(p.X+q.X) * cross
		cy += float64(p.Y+q.Y) * cross
	}
	if math.Abs(a) < 1e-9 {
		r := BoundingRect(pts)
		return vimg.Pt(float64(r.Min.X+r.Max.X-1)/2, float64(r.Min.Y+r.Max.Y-1)/2)
	}
	return vimg.Pt(cx/(3*a), cy/(3*a))
}

func cross(o, a, b vimg.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the convex hull of pts using Andrew's monotone chain.
// Collinear points on hull edges are dropped.
func ConvexHull(pts []vimg.Point) []vimg.Point {
	if len(pts) < 3 {
		return append([]vimg.Point(nil), pts...)
	}
	sorted := append([]vimg.Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	hull := make([]vimg.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// MinAreaRect returns the smallest-area rectangle enclosing pts. One side of
// the optimum always lies along a hull edge, so every edge is tried.
func MinAreaRect(pts []vimg.Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: hull[0]}
	}

	best := RotatedRect{}
	bestArea := math.MaxFloat64
	for i := range hull {
		e := hull[(i+1)%len(hull)].Sub(hull[i])
		l := math.Hypot(e.X, e.Y)
		if l == 0 {
			continue
		}
		u := e.Mul(1 / l)
		v := vimg.Pt(-u.Y, u.X)

		minU, maxU := math.MaxFloat64, -math.MaxFloat64
		minV, maxV := math.MaxFloat64, -math.MaxFloat64
		for _, p := range hull {
			pu := p.X*u.X + p.Y*u.Y
			pv := p.X*v.X + p.Y*v.Y
			minU, maxU = math.Min(minU, pu), math.Max(maxU, pu)
			minV, maxV = math.Min(minV, pv), math.Max(maxV, pv)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			best = RotatedRect{
				Center: u.Mul((minU + maxU) / 2).Add(v.Mul((minV + maxV) / 2)),
				Width:  maxU - minU,
				Height: maxV - minV,
				Angle:  normalizeAxisAngle(math.Atan2(u.Y, u.X) * 180 / math.Pi),
			}
		}
	}
	return best
}

// normalizeAxisAngle folds an undirected axis angle into (-90, 90].
func normalizeAxisAngle(a float64) float64 {
	for a > 90 {
		a -= 180
	}
	for a <= -90 {
		a += 180
	}
	return a
}

// FitEllipse fits an ellipse to boundary points from their second moments.
// Points sampled along an ellipse with semi-axis s have variance s²/2 along
// that axis. ok is false with fewer than five points.
func FitEllipse(pts []vimg.Point) (Ellipse, bool) {
	if len(pts) < 5 {
		return Ellipse{}, false
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
	sym := mat.NewSymDense(2, []float64{sxx / n, sxy / n, sxy / n, syy / n})

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return Ellipse{}, false
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	major := math.Max(vals[1], 0)
	minor := math.Max(vals[0], 0)
	return Ellipse{
		Center: c,
		Width:  2 * math.Sqrt(2*major),
		Height: 2 * math.Sqrt(2*minor),
		Angle:  normalizeAxisAngle(math.Atan2(vecs.At(1, 1), vecs.At(0, 1)) * 180 / math.Pi),
	}, true
}
