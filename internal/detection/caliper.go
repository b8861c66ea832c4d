package detection

import (
	"errors"
	"fmt"
	"math"
	"sort"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// ErrCaliperTooShort is returned for a search segment under one pixel long.
var ErrCaliperTooShort = errors.New("caliper segment shorter than one pixel")

// Polarity is the intensity transition of an edge walking from start to end.
type Polarity string

const (
	DarkToLight Polarity = "dark_to_light"
	LightToDark Polarity = "light_to_dark"
	AnyPolarity Polarity = "any"
)

// ParsePolarity validates a polarity name.
func ParsePolarity(s string) (Polarity, error) {
	switch p := Polarity(s); p {
	case DarkToLight, LightToDark, AnyPolarity:
		return p, nil
	}
	return "", fmt.Errorf("unknown polarity %q", s)
}

func (p Polarity) accepts(edge Polarity) bool {
	return p == AnyPolarity || p == "" || p == edge
}

// Edge is one transition found along a caliper profile.
type Edge struct {
	// Position is the sample index along the profile; plateaus give half steps.
	Position float64    `json:"position"`
	Score    float64    `json:"score"`
	Polarity Polarity   `json:"polarity"`
	Point    vimg.Point `json:"point"`
}

// EdgePair is an opposite-polarity pair of edges.
type EdgePair struct {
	First     Edge       `json:"first"`
	Second    Edge       `json:"second"`
	Center    vimg.Point `json:"center"`
	Width     float64    `json:"width"`
	Deviation float64    `json:"deviation"`
}

// Caliper is a rectangular search region laid along the segment Start→End,
// Width pixels across.
type Caliper struct {
	Start, End vimg.Point
	Width      float64
	Polarity   Polarity
	Threshold  float64
	HalfWidth  int
	MaxEdges   int
}

// Axes returns the unit direction along the caliper, its perpendicular and
// the segment length.
func (c Caliper) Axes() (u, v vimg.Point, length float64) {
	d := c.End.Sub(c.Start)
	length = math.Hypot(d.X, d.Y)
	if length == 0 {
		return vimg.Point{}, vimg.Point{}, 0
	}
	u = d.Mul(1 / length)
	return u, vimg.Pt(-u.Y, u.X), length
}

// Region returns the corners of the search rectangle.
func (c Caliper) Region() []vimg.Point {
	_, v, _ := c.Axes()
	half := v.Mul(c.Width / 2)
	return []vimg.Point{
		c.Start.Sub(half), c.End.Sub(half), c.End.Add(half), c.Start.Add(half),
	}
}

// Profile samples int(length) points along the segment. Each sample averages
// bilinear lookups across the width; lookups outside g are left out.
func (c Caliper) Profile(g *vimg.Gray) ([]float64, error) {
	u, v, length := c.Axes()
	if length < 1 {
		return nil, ErrCaliperTooShort
	}

	n := int(length)
	half := c.Width / 2
	profile := make([]float64, n)
	for i := 0; i < n; i++ {
		base := c.Start.Add(u.Mul(float64(i)))
		var sum float64
		count := 0
		for o := -half; o <= half; o++ {
			p := base.Add(v.Mul(o))
			if val, ok := g.Bilinear(p.X, p.Y); ok {
				sum += val
				count++
			}
		}
		if count > 0 {
			profile[i] = sum / float64(count)
		}
	}
	return profile, nil
}

// Gradient convolves profile with an antisymmetric ramp of half-width h.
// Samples within h of either end are zero.
func Gradient(profile []float64, h int) []float64 {
	if h < 1 {
		h = 1
	}
	n := len(profile)
	g := make([]float64, n)
	norm := float64(2*h + 1)
	for i := h; i < n-h; i++ {
		var s float64
		for j := -h; j <= h; j++ {
			s += profile[i+j] * float64(j)
		}
		g[i] = s / norm
	}
	return g
}

// FindEdges returns the local extrema of gradient whose magnitude exceeds
// threshold. A positive sample must be greater than both neighbours and a
// negative one less than both. A run of equal values counts once, at its
// centre. Positive gradients are DarkToLight.
func FindEdges(gradient []float64, threshold float64, want Polarity) []Edge {
	n := len(gradient)
	var edges []Edge
	for i := 0; i < n; i++ {
		v := gradient[i]
		a := math.Abs(v)
		if a <= threshold {
			continue
		}
		j := i
		for j+1 < n && gradient[j+1] == v {
			j++
		}
		exceeds := func(k int) bool {
			if v > 0 {
				return gradient[k] < v
			}
			return gradient[k] > v
		}
		if (i == 0 || exceeds(i-1)) && (j == n-1 || exceeds(j+1)) {
			pol := DarkToLight
			if v < 0 {
				pol = LightToDark
			}
			if want.accepts(pol) {
				edges = append(edges, Edge{Position: float64(i+j) / 2, Score: a, Polarity: pol})
			}
		}
		i = j
	}
	sort.SliceStable(edges, func(a, b int) bool { return edges[a].Score > edges[b].Score })
	return edges
}

// Measure samples the caliper over g and returns its edges ranked by
// strength, at most MaxEdges of them when MaxEdges is positive.
func (c Caliper) Measure(g *vimg.Gray) ([]Edge, error) {
	profile, err := c.Profile(g)
	if err != nil {
		return nil, err
	}
	edges := FindEdges(Gradient(profile, c.HalfWidth), c.Threshold, c.Polarity)
	if c.MaxEdges > 0 && len(edges) > c.MaxEdges {
		edges = edges[:c.MaxEdges]
	}
	u, _, _ := c.Axes()
	for i := range edges {
		edges[i].Point = c.Start.Add(u.Mul(edges[i].Position))
	}
	return edges, nil
}

// FindEdgePairs pairs edges of opposite polarity, first before second along
// the profile, whose separation is within tolerance of expected. Pairs are
// ranked by closeness to expected, then by combined score.
func FindEdgePairs(edges []Edge, expected, tolerance float64) []EdgePair {
	var pairs []EdgePair
	for _, a := range edges {
		for _, b := range edges {
			if b.Position <= a.Position || a.Polarity == b.Polarity {
				continue
			}
			sep := b.Position - a.Position
			dev := math.Abs(sep - expected)
			if dev > tolerance {
				continue
			}
			pairs = append(pairs, EdgePair{
				First:     a,
				Second:    b,
				Center:    vimg.Midpoint(a.Point, b.Point),
				Width:     sep,
				Deviation: dev,
			})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Deviation != pairs[j].Deviation {
			return pairs[i].Deviation < pairs[j].Deviation
		}
		return pairs[i].First.Score+pairs[i].Second.Score > pairs[j].First.Score+pairs[j].Second.Score
	})
	return pairs
}
