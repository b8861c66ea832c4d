package tools

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/vision-job/internal/detection"
	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type featureConfig struct {
	Detector       string  `json:"detector"`
	MaxFeatures    int     `json:"max_features"`
	RatioThreshold float64 `json:"ratio_threshold"`
	MinMatchCount  int     `json:"min_match_count"`
	DrawMatches    bool    `json:"draw_matches"`
}

func (c *featureConfig) validate() error {
	if _, err := detection.ParseDetectorKind(c.Detector); err != nil {
		return vision.Invalid("detector", "%v", err)
	}
	if c.MaxFeatures < 10 || c.MaxFeatures > 10000 {
		return vision.Invalid("max_features", "must be in 10..10000, got %d", c.MaxFeatures)
	}
	if c.RatioThreshold <= 0 || c.RatioThreshold > 1 {
		return vision.Invalid("ratio_threshold", "must be in (0, 1], got %v", c.RatioThreshold)
	}
	if c.MinMatchCount < 4 {
		return vision.Invalid("min_match_count", "a homography needs at least 4, got %d", c.MinMatchCount)
	}
	return nil
}

func (c *featureConfig) options() detection.FeatureOptions {
	o := detection.DefaultFeatureOptions()
	o.Detector = detection.DetectorKind(c.Detector)
	o.MaxFeatures = c.MaxFeatures
	return o
}

// FeatureMatchTool locates a trained pattern under perspective change by
// matching binary keypoint descriptors and fitting a homography.
type FeatureMatchTool struct {
	vision.ToolBase
	cfg featureConfig

	pattern  image.Image
	template *vimg.Gray
	features detection.Features
	trainErr error
}

// NewFeatureMatchTool returns an untrained ORB matcher.
func NewFeatureMatchTool() *FeatureMatchTool {
	return &FeatureMatchTool{
		ToolBase: vision.NewToolBase(TypeFeatureMatch, "Feature Match"),
		cfg: featureConfig{
			Detector:       string(detection.DetectorORB),
			MaxFeatures:    500,
			RatioThreshold: 0.75,
			MinMatchCount:  10,
		},
	}
}

// Configure re-trains from the stored pattern when the detector settings
// change. The tool becomes untrained if the pattern no longer yields enough
// keypoints, and the next Execute reports why.
func (t *FeatureMatchTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, (*featureConfig).validate)
	if err != nil {
		return err
	}
	retrain := t.pattern != nil && (cfg.Detector != t.cfg.Detector ||
		cfg.MaxFeatures != t.cfg.MaxFeatures || cfg.MinMatchCount != t.cfg.MinMatchCount)
	t.cfg = cfg
	if retrain {
		t.retrain()
	}
	return nil
}

// retrain re-detects keypoints on the stored pattern, keeping any failure
// for Execute to report.
func (t *FeatureMatchTool) retrain() {
	if t.pattern != nil {
		t.trainErr = t.Train(t.pattern)
	}
}

// Parameters returns the detector and matching settings.
func (t *FeatureMatchTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Train detects keypoints on pattern. It fails with vision.ErrNotTrained when
// the pattern has no more keypoints than the minimum match count, and the
// previous training is discarded.
func (t *FeatureMatchTool) Train(pattern image.Image) error {
	if vimg.Empty(pattern) {
		return fmt.Errorf("feature pattern: %w", vision.ErrEmptyImage)
	}
	pattern = vimg.Clone(pattern)
	g := vimg.ToGray(pattern)
	f := detection.DetectFeatures(g, t.cfg.options())

	t.pattern = pattern
	if len(f.Keypoints) <= t.cfg.MinMatchCount {
		err := fmt.Errorf("pattern has %d keypoints, need more than %d: %w",
			len(f.Keypoints), t.cfg.MinMatchCount, vision.ErrNotTrained)
		t.template, t.features, t.trainErr = nil, detection.Features{}, err
		return err
	}
	t.template, t.features, t.trainErr = g, f, nil
	return nil
}

// Trained reports whether a pattern with enough keypoints is stored.
func (t *FeatureMatchTool) Trained() bool { return t.template != nil }

// Execute matches the trained pattern against the ROI of img.
func (t *FeatureMatchTool) Execute(img image.Image) (*vision.Result, error) {
	if t.template == nil {
		if t.trainErr != nil {
			return nil, fmt.Errorf("template not set: %w", t.trainErr)
		}
		return nil, fmt.Errorf("template not set: %w", vision.ErrNotTrained)
	}
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	sf := detection.DetectFeatures(vimg.ToGray(region), t.cfg.options())

	r := vision.NewResult("")
	r.Set("TemplateKeypoints", vision.Int(len(t.features.Keypoints)))
	r.Set("SearchKeypoints", vision.Int(len(sf.Keypoints)))
	if len(sf.Keypoints) < t.cfg.MinMatchCount {
		annotate(&t.ToolBase, r, img, clipped, nil)
		return r.Fail(vision.NoDetection, "Not enough features in search image: %d", len(sf.Keypoints)), nil
	}

	total, good := detection.MatchFeatures(t.features.Descriptors, sf.Descriptors, t.cfg.RatioThreshold)
	r.Set("TotalMatches", vision.Int(total))
	r.Set("GoodMatches", vision.Int(len(good)))
	if t.cfg.DrawMatches {
		r.Set("MatchImage", vision.ImageValue(t.matchImage(region, sf, good)))
	}
	if len(good) < t.cfg.MinMatchCount {
		annotate(&t.ToolBase, r, img, clipped, nil)
		return r.Fail(vision.NoDetection, "Not enough matches: %d (need %d)", len(good), t.cfg.MinMatchCount), nil
	}

	src := make([]vimg.Point, len(good))
	dst := make([]vimg.Point, len(good))
	for i, m := range good {
		q, s := t.features.Keypoints[m.Query], sf.Keypoints[m.Train]
		src[i] = vimg.Pt(q.X, q.Y)
		dst[i] = vimg.Pt(s.X, s.Y)
	}
	h, inliers, err := detection.FindHomography(src, dst, detection.DefaultRANSACOptions())
	if err != nil {
		annotate(&t.ToolBase, r, img, clipped, nil)
		return r.Fail(vision.NoDetection, "%v", err), nil
	}

	w, ht := float64(t.template.W), float64(t.template.H)
	corners := make([]vimg.Point, 4)
	for i, c := range []vimg.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: ht}, {X: 0, Y: ht}} {
		p, ok := h.Project(c)
		if !ok {
			annotate(&t.ToolBase, r, img, clipped, nil)
			return r.Fail(vision.NoDetection, "Homography maps the pattern to infinity"), nil
		}
		corners[i] = p
	}
	center := vimg.Centroid(corners)
	scale := vimg.Distance(corners[0], corners[1]) / w
	angle := vimg.AngleDegrees(corners[0], corners[1])

	annotate(&t.ToolBase, r, img, clipped, []vision.Graphic{
		vision.PolygonGraphic(corners, vimg.Green, 2),
		vision.CrosshairGraphic(center, 15, vimg.Red, 2),
	})

	n := 0
	for _, in := range inliers {
		if in {
			n++
		}
	}
	abs := offsetPoints(corners, clipped.Min)
	c := center.Offset(clipped.Min)
	r.Set(vision.KeyCenterX, vision.Number(c.X))
	r.Set(vision.KeyCenterY, vision.Number(c.Y))
	r.Set("Scale", vision.Number(scale))
	r.Set("Angle", vision.Number(angle))
	r.Set("DetectedCorners", vision.PointsValue(abs))
	r.Set("Inliers", vision.Int(n))
	r.Message = fmt.Sprintf("Feature match: %d good matches", len(good))
	return r, nil
}

// matchImage places the pattern left of the search region and joins each
// good match with a line.
func (t *FeatureMatchTool) matchImage(region image.Image, sf detection.Features, good []detection.FeatureMatch) *image.RGBA {
	pb, sb := t.pattern.Bounds(), region.Bounds()
	canvas := imaging.New(pb.Dx()+sb.Dx(), max(pb.Dy(), sb.Dy()), color.Black)
	canvas = imaging.Paste(canvas, t.pattern, image.Pt(0, 0))
	canvas = imaging.Paste(canvas, region, image.Pt(pb.Dx(), 0))

	c := vimg.NewCanvas(canvas)
	shift := vimg.Pt(float64(pb.Dx()), 0)
	for i, m := range good {
		q, s := t.features.Keypoints[m.Query], sf.Keypoints[m.Train]
		a := vimg.Pt(q.X, q.Y)
		b := vimg.Pt(s.X, s.Y).Add(shift)
		col := vimg.PaletteColor(i)
		c.Line(a, b, col, 1)
		c.Circle(a, 3, col, 1)
		c.Circle(b, 3, col, 1)
	}
	return c.Image()
}

// Clone returns a copy with a fresh id, retrained from the same pattern.
func (t *FeatureMatchTool) Clone() vision.Tool {
	c := &FeatureMatchTool{ToolBase: t.CloneBase(), cfg: t.cfg, pattern: t.pattern}
	c.retrain()
	return c
}
