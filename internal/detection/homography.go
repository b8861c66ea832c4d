package detection

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// ErrNoHomography is returned when no consistent projective mapping exists.
var ErrNoHomography = errors.New("no homography found")

// Homography is a row-major 3×3 projective transform.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Project maps p through h. ok is false when p maps to infinity.
func (h Homography) Project(p vimg.Point) (vimg.Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return vimg.Point{}, false
	}
	return vimg.Pt((h[0]*p.X+h[1]*p.Y+h[2])/w, (h[3]*p.X+h[4]*p.Y+h[5])/w), true
}

// normalization returns the similarity that moves pts to zero mean and mean
// distance √2 from the origin, as (scale, cx, cy).
func normalization(pts []vimg.Point) (s, cx, cy float64) {
	c := vimg.Centroid(pts)
	var d float64
	for _, p := range pts {
		d += vimg.Distance(p, c)
	}
	d /= float64(len(pts))
	if d == 0 {
		return 1, c.X, c.Y
	}
	return math.Sqrt2 / d, c.X, c.Y
}

// EstimateHomography solves the direct linear transform for src→dst in the
// least-squares sense. At least four correspondences are needed.
func EstimateHomography(src, dst []vimg.Point) (Homography, error) {
	n := len(src)
	if n < 4 || len(dst) != n {
		return Homography{}, ErrNoHomography
	}
	s1, cx1, cy1 := normalization(src)
	s2, cx2, cy2 := normalization(dst)

	rows := max(2*n, 9)
	a := mat.NewDense(rows, 9, nil)
	for i := 0; i < n; i++ {
		x := (src[i].X - cx1) * s1
		y := (src[i].Y - cy1) * s1
		u := (dst[i].X - cx2) * s2
		v := (dst[i].Y - cy2) * s2
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Homography{}, ErrNoHomography
	}
	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	t1 := mat.NewDense(3, 3, []float64{s1, 0, -s1 * cx1, 0, s1, -s1 * cy1, 0, 0, 1})
	t2inv := mat.NewDense(3, 3, []float64{1 / s2, 0, cx2, 0, 1 / s2, cy2, 0, 0, 1})
	var tmp, full mat.Dense
	tmp.Mul(hn, t1)
	full.Mul(t2inv, &tmp)

	scale := full.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		return Homography{}, ErrNoHomography
	}
	var h Homography
	for i := 0; i < 9; i++ {
		h[i] = full.At(i/3, i%3) / scale
	}
	return h, nil
}

// RANSACOptions controls FindHomography.
type RANSACOptions struct {
	Threshold  float64
	Iterations int
	Seed       int64
}

// DefaultRANSACOptions uses a 5 pixel reprojection threshold.
func DefaultRANSACOptions() RANSACOptions {
	return RANSACOptions{Threshold: 5, Iterations: 2000, Seed: 1}
}

// FindHomography fits src→dst robustly: random four-point models are scored
// by how many correspondences reproject within the threshold, and the best
// model is refitted on its inliers. The inlier mask is returned alongside.
func FindHomography(src, dst []vimg.Point, opts RANSACOptions) (Homography, []bool, error) {
	return homographyFinder(src, dst, opts)
}

// homographyFinder is replaced by OpenCV's RANSAC in gocv builds.
var homographyFinder = findHomography

func findHomography(src, dst []vimg.Point, opts RANSACOptions) (Homography, []bool, error) {
	n := len(src)
	if n < 4 || len(dst) != n {
		return Homography{}, nil, ErrNoHomography
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	bestCount := 0
	var bestMask []bool
	sample := make([]vimg.Point, 4)
	target := make([]vimg.Point, 4)
	for it := 0; it < opts.Iterations && bestCount < n; it++ {
		idx := rng.Perm(n)[:4]
		for i, k := range idx {
			sample[i] = src[k]
			target[i] = dst[k]
		}
		if degenerate(sample) || degenerate(target) {
			continue
		}
		h, err := EstimateHomography(sample, target)
		if err != nil {
			continue
		}
		mask, count := inliers(h, src, dst, opts.Threshold)
		if count > bestCount {
			bestCount, bestMask = count, mask
		}
	}
	if bestCount < 4 {
		return Homography{}, nil, ErrNoHomography
	}

	var in, out []vimg.Point
	for i, ok := range bestMask {
		if ok {
			in = append(in, src[i])
			out = append(out, dst[i])
		}
	}
	h, err := EstimateHomography(in, out)
	if err != nil {
		return Homography{}, nil, err
	}
	mask, _ := inliers(h, src, dst, opts.Threshold)
	return h, mask, nil
}

func inliers(h Homography, src, dst []vimg.Point, threshold float64) ([]bool, int) {
	mask := make([]bool, len(src))
	count := 0
	for i, p := range src {
		q, ok := h.Project(p)
		if ok && vimg.Distance(q, dst[i]) <= threshold {
			mask[i] = true
			count++
		}
	}
	return mask, count
}

// degenerate reports whether any three of four points are collinear.
func degenerate(p []vimg.Point) bool {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			for k := j + 1; k < 4; k++ {
				if math.Abs(cross(p[i], p[j], p[k])) < 1e-6 {
					return true
				}
			}
		}
	}
	return false
}
