package detection

import (
	"errors"
	"math/rand"
	"testing"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// blockTexture fills a w×h buffer with random-intensity square blocks, which
// gives FAST a corner at most block junctions.
func blockTexture(w, h, block int, seed int64) *vimg.Gray {
	rng := rand.New(rand.NewSource(seed))
	bw := (w + block - 1) / block
	bh := (h + block - 1) / block
	vals := make([]float64, bw*bh)
	for i := range vals {
		vals[i] = float64(rng.Intn(256))
	}
	return grayFrom(w, h, func(x, y int) float64 { return vals[(y/block)*bw+x/block] })
}

func TestHamming(t *testing.T) {
	a := Descriptor{0, 0, 0, 0}
	b := Descriptor{0b1011, 0, 1 << 63, 0}
	if d := Hamming(a, b); d != 4 {
		t.Errorf("got %d, want 4", d)
	}
	if Hamming(b, b) != 0 {
		t.Error("identical descriptors differ")
	}
}

func TestMatchFeatures_RatioTest(t *testing.T) {
	train := []Descriptor{
		{0xFF, 0, 0, 0},
		{0xFFFF_FFFF, 0, 0, 0},
		{0, 0, 0, 0xF},
	}
	query := []Descriptor{
		{0xFE, 0, 0, 0}, // 1 from train[0], 11 from train[2]
		{0, 0, 0, 0},    // 4 from train[2], 8 from train[0]
	}

	total, good := MatchFeatures(query, train, 0.4)
	if total != 2 {
		t.Errorf("total: got %d, want 2", total)
	}
	if len(good) != 1 || good[0].Query != 0 || good[0].Train != 0 || good[0].Distance != 1 {
		t.Errorf("good: %+v", good)
	}

	if total, good := MatchFeatures(query, train[:1], 0.75); total != 0 || good != nil {
		t.Error("a single train descriptor cannot give two neighbours")
	}
}

func TestDetectFeatures(t *testing.T) {
	img := blockTexture(160, 160, 6, 11)

	for _, kind := range []DetectorKind{DetectorORB, DetectorBRIEF, DetectorHarris} {
		t.Run(string(kind), func(t *testing.T) {
			opts := DefaultFeatureOptions()
			opts.Detector = kind
			f := DetectFeatures(img, opts)
			if len(f.Keypoints) == 0 {
				t.Fatal("no keypoints on a textured image")
			}
			if len(f.Keypoints) != len(f.Descriptors) {
				t.Errorf("%d keypoints, %d descriptors", len(f.Keypoints), len(f.Descriptors))
			}
			for i, kp := range f.Keypoints {
				if kp.X < featureBorder-1 || kp.Y < featureBorder-1 || kp.X > 160-featureBorder+1 || kp.Y > 160-featureBorder+1 {
					t.Errorf("keypoint %d inside the border: %+v", i, kp)
				}
				if kind == DetectorBRIEF && kp.Angle != 0 {
					t.Errorf("BRIEF keypoints are unoriented: %+v", kp)
				}
				if i > 0 && kp.Response > f.Keypoints[i-1].Response {
					t.Error("keypoints should be ordered by response")
					break
				}
			}
		})
	}

	opts := DefaultFeatureOptions()
	opts.MaxFeatures = 5
	if f := DetectFeatures(img, opts); len(f.Keypoints) != 5 {
		t.Errorf("max features: got %d", len(f.Keypoints))
	}

	if f := DetectFeatures(vimg.NewGray(160, 160), DefaultFeatureOptions()); len(f.Keypoints) != 0 {
		t.Errorf("flat image: got %d keypoints", len(f.Keypoints))
	}
}

func TestFeatureMatching_LocatesCrop(t *testing.T) {
	search := blockTexture(200, 200, 6, 21)
	tmpl := crop(search, 50, 60, 100, 100)

	opts := DefaultFeatureOptions()
	opts.MaxFeatures = 0
	tf := DetectFeatures(tmpl, opts)
	sf := DetectFeatures(search, opts)

	_, good := MatchFeatures(tf.Descriptors, sf.Descriptors, 0.75)
	if len(good) < 10 {
		t.Fatalf("only %d good matches", len(good))
	}

	src := make([]vimg.Point, len(good))
	dst := make([]vimg.Point, len(good))
	for i, m := range good {
		q, r := tf.Keypoints[m.Query], sf.Keypoints[m.Train]
		src[i] = vimg.Pt(q.X, q.Y)
		dst[i] = vimg.Pt(r.X, r.Y)
	}
	h, _, err := FindHomography(src, dst, DefaultRANSACOptions())
	if err != nil {
		t.Fatalf("FindHomography: %v", err)
	}
	for _, c := range []vimg.Point{{X: 0, Y: 0}, {X: 100, Y: 100}} {
		p, ok := h.Project(c)
		if !ok || !near(p.X, c.X+50, 1.5) || !near(p.Y, c.Y+60, 1.5) {
			t.Errorf("corner %v projected to %v, want offset (50,60)", c, p)
		}
	}
}

func TestEstimateHomography(t *testing.T) {
	want := Homography{1.2, 0.1, 15, -0.05, 0.9, -7, 0.0005, 0.0002, 1}
	src := []vimg.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 80}, {X: 0, Y: 80}, {X: 40, Y: 30}}
	dst := make([]vimg.Point, len(src))
	for i, p := range src {
		dst[i], _ = want.Project(p)
	}

	h, err := EstimateHomography(src[:4], dst[:4])
	if err != nil {
		t.Fatalf("EstimateHomography: %v", err)
	}
	for i, p := range src {
		q, _ := h.Project(p)
		if !near(q.X, dst[i].X, 1e-6) || !near(q.Y, dst[i].Y, 1e-6) {
			t.Errorf("point %d: got %v, want %v", i, q, dst[i])
		}
	}

	if _, err := EstimateHomography(src[:3], dst[:3]); !errors.Is(err, ErrNoHomography) {
		t.Errorf("three points: got %v", err)
	}
}

func TestFindHomography_RejectsOutliers(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	shift := Homography{1, 0, 12, 0, 1, -4, 0, 0, 1}

	var src, dst []vimg.Point
	for i := 0; i < 20; i++ {
		p := vimg.Pt(rng.Float64()*200, rng.Float64()*200)
		q, _ := shift.Project(p)
		src, dst = append(src, p), append(dst, q)
	}
	for i := 0; i < 6; i++ {
		src = append(src, vimg.Pt(rng.Float64()*200, rng.Float64()*200))
		dst = append(dst, vimg.Pt(rng.Float64()*200+300, rng.Float64()*200))
	}

	h, mask, err := FindHomography(src, dst, DefaultRANSACOptions())
	if err != nil {
		t.Fatalf("FindHomography: %v", err)
	}
	for i, in := range mask {
		if in != (i < 20) {
			t.Errorf("correspondence %d: inlier=%v", i, in)
		}
	}
	p, _ := h.Project(vimg.Pt(0, 0))
	if !near(p.X, 12, 1e-6) || !near(p.Y, -4, 1e-6) {
		t.Errorf("origin maps to %v", p)
	}

	if _, _, err := FindHomography(src[:3], dst[:3], DefaultRANSACOptions()); !errors.Is(err, ErrNoHomography) {
		t.Errorf("too few: got %v", err)
	}
	if p, _ := Identity().Project(vimg.Pt(3, 4)); p != vimg.Pt(3, 4) {
		t.Errorf("identity: %v", p)
	}
}

func TestParseDetectorKind(t *testing.T) {
	if k, err := ParseDetectorKind("harris"); err != nil || k != DetectorHarris {
		t.Errorf("got %v %v", k, err)
	}
	if _, err := ParseDetectorKind("sift"); err == nil {
		t.Error("unknown detector should fail")
	}
}
