//go:build gocv

package detection

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

func init() {
	featureDetector = detectFeaturesOpenCV
	featureMatcher = matchFeaturesOpenCV
	homographyFinder = findHomographyOpenCV
}

// descriptorBytes is the width of an OpenCV ORB descriptor.
const descriptorBytes = 32

func toMat8(g *vimg.Gray) (gocv.Mat, error) {
	data := make([]byte, len(g.Pix))
	for i, v := range g.Pix {
		data[i] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return gocv.NewMatFromBytes(g.H, g.W, gocv.MatTypeCV8U, data)
}

// detectFeaturesOpenCV runs OpenCV's ORB. BRIEF and Harris have no OpenCV
// counterpart with the same descriptor and stay on the Go detector.
func detectFeaturesOpenCV(g *vimg.Gray, opts FeatureOptions) Features {
	if opts.Detector != DetectorORB || g.Empty() {
		return detectFeatures(g, opts)
	}
	fast := int(opts.FastThreshold)
	if fast <= 0 {
		fast = 20
	}

	src, err := toMat8(g)
	if err != nil {
		return Features{}
	}
	defer src.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	orb := gocv.NewORBWithParams(opts.MaxFeatures, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, fast)
	defer orb.Close()
	kps, desc := orb.DetectAndCompute(src, mask)
	defer desc.Close()
	if desc.Empty() || desc.Cols() != descriptorBytes || desc.Rows() != len(kps) {
		return Features{}
	}

	f := Features{
		Keypoints:   make([]Keypoint, len(kps)),
		Descriptors: make([]Descriptor, len(kps)),
	}
	for i, kp := range kps {
		f.Keypoints[i] = Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Angle:    kp.Angle * math.Pi / 180,
			Response: kp.Response,
			Level:    kp.Octave,
		}
		for b := 0; b < descriptorBytes; b++ {
			f.Descriptors[i][b/8] |= uint64(desc.GetUCharAt(i, b)) << (8 * (b % 8))
		}
	}
	return f
}

func descriptorMat(ds []Descriptor) gocv.Mat {
	m := gocv.NewMatWithSize(len(ds), descriptorBytes, gocv.MatTypeCV8U)
	for i, d := range ds {
		for b := 0; b < descriptorBytes; b++ {
			m.SetUCharAt(i, b, uint8(d[b/8]>>(8*(b%8))))
		}
	}
	return m
}

// matchFeaturesOpenCV runs the same two-nearest ratio test through OpenCV's
// brute-force Hamming matcher.
func matchFeaturesOpenCV(query, train []Descriptor, ratio float64) (total int, good []FeatureMatch) {
	if len(train) < 2 || len(query) == 0 {
		return 0, nil
	}
	q := descriptorMat(query)
	defer q.Close()
	t := descriptorMat(train)
	defer t.Close()

	bf := gocv.NewBFMatcherWithParams(gocv.NormHamming, false)
	defer bf.Close()
	for _, pair := range bf.KnnMatch(q, t, 2) {
		if len(pair) < 2 {
			continue
		}
		total++
		if pair[0].Distance < ratio*pair[1].Distance {
			good = append(good, FeatureMatch{
				Query:    pair[0].QueryIdx,
				Train:    pair[0].TrainIdx,
				Distance: int(pair[0].Distance),
			})
		}
	}
	return total, good
}

func pointMat(pts []vimg.Point) gocv.Mat {
	m := gocv.NewMatWithSize(len(pts), 2, gocv.MatTypeCV64F)
	for i, p := range pts {
		m.SetDoubleAt(i, 0, p.X)
		m.SetDoubleAt(i, 1, p.Y)
	}
	return m
}

// findHomographyOpenCV fits src→dst with OpenCV's RANSAC. The seed in opts
// is ignored; OpenCV draws its own samples.
func findHomographyOpenCV(src, dst []vimg.Point, opts RANSACOptions) (Homography, []bool, error) {
	n := len(src)
	if n < 4 || len(dst) != n {
		return Homography{}, nil, ErrNoHomography
	}
	s := pointMat(src)
	defer s.Close()
	d := pointMat(dst)
	defer d.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	hm := gocv.FindHomography(s, &d, gocv.HomographyMethodRANSAC, opts.Threshold, &mask, opts.Iterations, 0.995)
	defer hm.Close()
	if hm.Empty() || hm.Rows() != 3 || hm.Cols() != 3 {
		return Homography{}, nil, ErrNoHomography
	}

	scale := hm.GetDoubleAt(2, 2)
	if math.Abs(scale) < 1e-12 {
		return Homography{}, nil, ErrNoHomography
	}
	var h Homography
	for i := 0; i < 9; i++ {
		h[i] = hm.GetDoubleAt(i/3, i%3) / scale
	}

	in := make([]bool, n)
	if mask.Rows() == n {
		for i := range in {
			in[i] = mask.GetUCharAt(i, 0) != 0
		}
	} else {
		in, _ = inliers(h, src, dst, opts.Threshold)
	}
	if c := countTrue(in); c < 4 {
		return Homography{}, nil, fmt.Errorf("%d inliers: %w", c, ErrNoHomography)
	}
	return h, in, nil
}

func countTrue(b []bool) int {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return n
}
