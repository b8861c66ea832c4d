package detection

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand"
	"sort"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// DetectorKind selects the keypoint detector and descriptor family.
type DetectorKind string

const (
	// DetectorORB: FAST corners ranked by Harris response, intensity-centroid
	// orientation, steered BRIEF descriptors.
	DetectorORB DetectorKind = "orb"
	// DetectorBRIEF: as ORB with every keypoint at angle zero.
	DetectorBRIEF DetectorKind = "brief"
	// DetectorHarris: Harris corners with steered BRIEF descriptors.
	DetectorHarris DetectorKind = "harris"
)

// ParseDetectorKind validates a detector name.
func ParseDetectorKind(s string) (DetectorKind, error) {
	switch k := DetectorKind(s); k {
	case DetectorORB, DetectorBRIEF, DetectorHarris:
		return k, nil
	}
	return "", fmt.Errorf("unknown detector %q", s)
}

// Keypoint is a detected interest point in full-resolution coordinates.
type Keypoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Response float64 `json:"response"`
	Level    int     `json:"level"`
}

// Descriptor is a 256-bit binary descriptor.
type Descriptor [4]uint64

// Hamming returns the number of differing bits.
func Hamming(a, b Descriptor) int {
	return bits.OnesCount64(a[0]^b[0]) + bits.OnesCount64(a[1]^b[1]) +
		bits.OnesCount64(a[2]^b[2]) + bits.OnesCount64(a[3]^b[3])
}

// Features pairs keypoints with their descriptors index for index.
type Features struct {
	Keypoints   []Keypoint
	Descriptors []Descriptor
}

// FeatureOptions controls DetectFeatures.
type FeatureOptions struct {
	Detector    DetectorKind
	MaxFeatures int
	// FastThreshold is the intensity difference a FAST arc must exceed.
	FastThreshold float64
}

// DefaultFeatureOptions returns ORB with up to 500 features.
func DefaultFeatureOptions() FeatureOptions {
	return FeatureOptions{Detector: DetectorORB, MaxFeatures: 500, FastThreshold: 20}
}

const (
	pyramidLevels = 3
	pyramidScale  = 1.25
	harrisK       = 0.04
	harrisBlock   = 3 // half-size of the 7×7 Harris window
	orientRadius  = 15
	patchRadius   = 13
	featureBorder = 16
)

// featureDetector and featureMatcher do the work behind DetectFeatures and
// MatchFeatures. Builds with the gocv tag swap in OpenCV's ORB and
// brute-force matcher.
var (
	featureDetector = detectFeatures
	featureMatcher  = matchFeatures
)

// DetectFeatures finds keypoints on a three-level pyramid and describes them.
// The strongest MaxFeatures keypoints by Harris response are kept.
func DetectFeatures(g *vimg.Gray, opts FeatureOptions) Features {
	return featureDetector(g, opts)
}

func detectFeatures(g *vimg.Gray, opts FeatureOptions) Features {
	if opts.FastThreshold <= 0 {
		opts.FastThreshold = 20
	}

	type described struct {
		kp   Keypoint
		desc Descriptor
	}
	var all []described

	level := g
	factor := 1.0
	for l := 0; l < pyramidLevels; l++ {
		if l > 0 {
			factor *= pyramidScale
			w := int(math.Round(float64(g.W) / factor))
			h := int(math.Round(float64(g.H) / factor))
			if w <= 2*featureBorder || h <= 2*featureBorder {
				break
			}
			level = g.Resize(w, h)
		}
		if level.W <= 2*featureBorder || level.H <= 2*featureBorder {
			break
		}

		var kps []Keypoint
		if opts.Detector == DetectorHarris {
			kps = harrisCorners(level)
		} else {
			kps = fastCorners(level, opts.FastThreshold)
		}

		smooth := vimg.GaussianBlur5(level)
		for _, kp := range kps {
			if opts.Detector != DetectorBRIEF {
				kp.Angle = intensityAngle(level, int(kp.X), int(kp.Y))
			}
			d := steeredBRIEF(smooth, int(kp.X), int(kp.Y), kp.Angle)
			kp.Level = l
			kp.X *= factor
			kp.Y *= factor
			all = append(all, described{kp, d})
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].kp.Response > all[j].kp.Response })
	if opts.MaxFeatures > 0 && len(all) > opts.MaxFeatures {
		all = all[:opts.MaxFeatures]
	}

	f := Features{
		Keypoints:   make([]Keypoint, len(all)),
		Descriptors: make([]Descriptor, len(all)),
	}
	for i, d := range all {
		f.Keypoints[i] = d.kp
		f.Descriptors[i] = d.desc
	}
	return f
}

// Bresenham circle of radius 3 used by FAST, clockwise from the top.
var fastCircle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// isFast9 reports whether nine contiguous circle pixels are all brighter than
// the centre plus t or all darker than the centre minus t.
func isFast9(g *vimg.Gray, x, y int, t float64) bool {
	c := g.Pix[y*g.W+x]
	var state [16]int
	for i, o := range fastCircle {
		v := g.Pix[(y+o[1])*g.W+x+o[0]]
		switch {
		case v > c+t:
			state[i] = 1
		case v < c-t:
			state[i] = -1
		}
	}
	for _, want := range []int{1, -1} {
		run := 0
		for i := 0; i < 32; i++ {
			if state[i%16] == want {
				run++
				if run >= 9 {
					return true
				}
			} else {
				run = 0
			}
		}
	}
	return false
}

// fastCorners runs FAST-9 away from the border, scores corners by Harris
// response and keeps 3×3 local maxima.
func fastCorners(g *vimg.Gray, t float64) []Keypoint {
	score := make([]float64, g.W*g.H)
	for y := featureBorder; y < g.H-featureBorder; y++ {
		for x := featureBorder; x < g.W-featureBorder; x++ {
			if isFast9(g, x, y, t) {
				score[y*g.W+x] = math.Max(harrisResponse(g, x, y), 1e-12)
			}
		}
	}
	return suppress(g.W, g.H, score, 0)
}

// harrisCorners keeps pixels whose Harris response exceeds 1% of the
// strongest, after 3×3 suppression.
func harrisCorners(g *vimg.Gray) []Keypoint {
	score := make([]float64, g.W*g.H)
	best := 0.0
	for y := featureBorder; y < g.H-featureBorder; y++ {
		for x := featureBorder; x < g.W-featureBorder; x++ {
			r := harrisResponse(g, x, y)
			score[y*g.W+x] = r
			best = math.Max(best, r)
		}
	}
	if best <= 0 {
		return nil
	}
	return suppress(g.W, g.H, score, 0.01*best)
}

// suppress returns positions whose score is above floor and not beaten by a
// neighbour. Equal neighbours earlier in raster order win.
func suppress(w, h int, score []float64, floor float64) []Keypoint {
	var kps []Keypoint
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := score[y*w+x]
			if s <= floor || s == 0 {
				continue
			}
			peak := true
			for dy := -1; dy <= 1 && peak; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ns := score[ny*w+nx]
					if ns > s || (ns == s && ny*w+nx < y*w+x) {
						peak = false
						break
					}
				}
			}
			if peak {
				kps = append(kps, Keypoint{X: float64(x), Y: float64(y), Response: s})
			}
		}
	}
	return kps
}

// harrisResponse computes det(M) − k·trace(M)² over a 7×7 window of central
// difference gradients.
func harrisResponse(g *vimg.Gray, x, y int) float64 {
	var sxx, syy, sxy float64
	for dy := -harrisBlock; dy <= harrisBlock; dy++ {
		for dx := -harrisBlock; dx <= harrisBlock; dx++ {
			px, py := x+dx, y+dy
			ix := (g.At(px+1, py) - g.At(px-1, py)) / 2
			iy := (g.At(px, py+1) - g.At(px, py-1)) / 2
			sxx += ix * ix
			syy += iy * iy
			sxy += ix * iy
		}
	}
	return sxx*syy - sxy*sxy - harrisK*(sxx+syy)*(sxx+syy)
}

// intensityAngle is the direction from (x, y) to the intensity centroid of
// the surrounding disc, in radians.
func intensityAngle(g *vimg.Gray, x, y int) float64 {
	var m10, m01 float64
	for dy := -orientRadius; dy <= orientRadius; dy++ {
		for dx := -orientRadius; dx <= orientRadius; dx++ {
			if dx*dx+dy*dy > orientRadius*orientRadius {
				continue
			}
			v := g.At(x+dx, y+dy)
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}

// briefPairs are 256 fixed test pairs drawn from an isotropic Gaussian and
// kept inside the patch radius.
var briefPairs = makeBriefPairs()

func makeBriefPairs() [256][4]float64 {
	rng := rand.New(rand.NewSource(0x5eed))
	sigma := float64(2*patchRadius+1) / 5
	sample := func() (float64, float64) {
		for {
			x := math.Round(rng.NormFloat64() * sigma)
			y := math.Round(rng.NormFloat64() * sigma)
			if x*x+y*y <= patchRadius*patchRadius {
				return x, y
			}
		}
	}
	var pairs [256][4]float64
	for i := range pairs {
		x1, y1 := sample()
		x2, y2 := sample()
		pairs[i] = [4]float64{x1, y1, x2, y2}
	}
	return pairs
}

// steeredBRIEF rotates the test pattern by angle and sets bit i when the
// first sample of pair i is darker than the second.
func steeredBRIEF(g *vimg.Gray, x, y int, angle float64) Descriptor {
	cos, sin := math.Cos(angle), math.Sin(angle)
	at := func(px, py float64) float64 {
		rx := int(math.Round(px*cos - py*sin))
		ry := int(math.Round(px*sin + py*cos))
		return g.At(x+rx, y+ry)
	}
	var d Descriptor
	for i, p := range briefPairs {
		if at(p[0], p[1]) < at(p[2], p[3]) {
			d[i/64] |= 1 << uint(i%64)
		}
	}
	return d
}

// FeatureMatch links a query descriptor to its nearest train descriptor.
type FeatureMatch struct {
	Query    int `json:"query"`
	Train    int `json:"train"`
	Distance int `json:"distance"`
}

// MatchFeatures finds the two nearest train descriptors of every query by
// Hamming distance. total counts queries with two neighbours; good holds
// the nearest neighbours that pass the ratio test d1 < ratio·d2.
func MatchFeatures(query, train []Descriptor, ratio float64) (total int, good []FeatureMatch) {
	return featureMatcher(query, train, ratio)
}

func matchFeatures(query, train []Descriptor, ratio float64) (total int, good []FeatureMatch) {
	if len(train) < 2 {
		return 0, nil
	}
	for qi, q := range query {
		best, second := math.MaxInt, math.MaxInt
		bestIdx := -1
		for ti, t := range train {
			d := Hamming(q, t)
			switch {
			case d < best:
				second = best
				best, bestIdx = d, ti
			case d < second:
				second = d
			}
		}
		total++
		if float64(best) < ratio*float64(second) {
			good = append(good, FeatureMatch{Query: qi, Train: bestIdx, Distance: best})
		}
	}
	return total, good
}
