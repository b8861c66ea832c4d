package tools

import (
	"fmt"
	"image"
	"strconv"

	"github.com/ironsheep/vision-job/internal/detection"
	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type blobConfig struct {
	UseInternalThreshold bool    `json:"use_internal_threshold"`
	Threshold            float64 `json:"threshold"`
	Invert               bool    `json:"invert"`

	MinArea        float64 `json:"min_area"`
	MaxArea        float64 `json:"max_area"`
	MinPerimeter   float64 `json:"min_perimeter"`
	MaxPerimeter   float64 `json:"max_perimeter"`
	MinCircularity float64 `json:"min_circularity"`
	MaxCircularity float64 `json:"max_circularity"`
	MinAspectRatio float64 `json:"min_aspect_ratio"`
	MaxAspectRatio float64 `json:"max_aspect_ratio"`
	MinConvexity   float64 `json:"min_convexity"`

	MaxCount      int    `json:"max_count"`
	SortBy        string `json:"sort_by"`
	Descending    bool   `json:"descending"`
	Retrieval     string `json:"retrieval"`
	Approximation string `json:"approximation"`

	DrawContours    bool `json:"draw_contours"`
	DrawBoundingBox bool `json:"draw_bounding_box"`
	DrawCenter      bool `json:"draw_center"`
	DrawLabels      bool `json:"draw_labels"`
}

func defaultBlobConfig() blobConfig {
	opts := detection.DefaultBlobOptions()
	f := opts.Filter
	return blobConfig{
		UseInternalThreshold: true,
		Threshold:            128,
		MinArea:              f.Area.Min,
		MaxArea:              f.Area.Max,
		MinPerimeter:         f.Perimeter.Min,
		MaxPerimeter:         f.Perimeter.Max,
		MinCircularity:       f.Circularity.Min,
		MaxCircularity:       f.Circularity.Max,
		MinAspectRatio:       f.AspectRatio.Min,
		MaxAspectRatio:       f.AspectRatio.Max,
		MinConvexity:         f.MinConvexity,
		MaxCount:             opts.MaxCount,
		SortBy:               string(opts.SortBy),
		Descending:           opts.Descending,
		Retrieval:            string(opts.Mode),
		Approximation:        string(opts.Approx),
		DrawContours:         true,
		DrawBoundingBox:      true,
		DrawCenter:           true,
		DrawLabels:           true,
	}
}

func (c *blobConfig) validate() error {
	ranges := []struct {
		name     string
		min, max float64
	}{
		{"area", c.MinArea, c.MaxArea},
		{"perimeter", c.MinPerimeter, c.MaxPerimeter},
		{"circularity", c.MinCircularity, c.MaxCircularity},
		{"aspect_ratio", c.MinAspectRatio, c.MaxAspectRatio},
	}
	for _, r := range ranges {
		if r.min < 0 || r.max < r.min {
			return vision.Invalid("min_"+r.name, "need 0 <= min <= max, got %v and %v", r.min, r.max)
		}
	}
	if c.Threshold < 0 || c.Threshold > 255 {
		return vision.Invalid("threshold", "must be in 0..255, got %v", c.Threshold)
	}
	if c.MinConvexity < 0 {
		return vision.Invalid("min_convexity", "must not be negative")
	}
	if c.MaxCount < 0 {
		return vision.Invalid("max_count", "must not be negative")
	}
	if _, err := detection.ParseSortKey(c.SortBy); err != nil {
		return vision.Invalid("sort_by", "%v", err)
	}
	switch detection.RetrievalMode(c.Retrieval) {
	case detection.RetrieveExternal, detection.RetrieveTree:
	default:
		return vision.Invalid("retrieval", "want external or tree, got %q", c.Retrieval)
	}
	switch detection.Approximation(c.Approximation) {
	case detection.ApproxNone, detection.ApproxSimple:
	default:
		return vision.Invalid("approximation", "want none or simple, got %q", c.Approximation)
	}
	return nil
}

func (c *blobConfig) options() detection.BlobOptions {
	return detection.BlobOptions{
		Filter: detection.BlobFilter{
			Area:         detection.Range{Min: c.MinArea, Max: c.MaxArea},
			Perimeter:    detection.Range{Min: c.MinPerimeter, Max: c.MaxPerimeter},
			Circularity:  detection.Range{Min: c.MinCircularity, Max: c.MaxCircularity},
			AspectRatio:  detection.Range{Min: c.MinAspectRatio, Max: c.MaxAspectRatio},
			MinConvexity: c.MinConvexity,
		},
		SortBy:     detection.SortKey(c.SortBy),
		Descending: c.Descending,
		MaxCount:   c.MaxCount,
		Mode:       detection.RetrievalMode(c.Retrieval),
		Approx:     detection.Approximation(c.Approximation),
	}
}

// BlobTool binarises its region, extracts connected components and filters
// them by shape.
type BlobTool struct {
	vision.ToolBase
	cfg blobConfig
}

// NewBlobTool returns a blob tool thresholding at 128 with no shape filter.
func NewBlobTool() *BlobTool {
	return &BlobTool{
		ToolBase: vision.NewToolBase(TypeBlob, "Blob"),
		cfg:      defaultBlobConfig(),
	}
}

// Configure validates the threshold, filter ranges and sort key.
func (t *BlobTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, (*blobConfig).validate)
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the binarisation, filter and sort settings.
func (t *BlobTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute binarises the ROI, traces connected regions and returns the
// filtered blobs sorted by the configured key. The mask becomes the output
// image and the first blob supplies the result centre.
func (t *BlobTool) Execute(img image.Image) (*vision.Result, error) {
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}

	g := vimg.ToGray(region)
	var mask *detection.Mask
	if t.cfg.UseInternalThreshold {
		mask = detection.Binarize(g, t.cfg.Threshold, t.cfg.Invert)
	} else {
		mask = detection.MaskFromBinary(g, t.cfg.Invert)
	}
	blobs := detection.ExtractBlobs(mask, t.cfg.options())

	r := vision.NewResult(fmt.Sprintf("Found %d blobs", len(blobs)))
	r.Output = t.Restore(img, mask.Image())

	var gs []vision.Graphic
	for i, b := range blobs {
		gs = append(gs, t.blobGraphics(i, b)...)
	}
	annotate(&t.ToolBase, r, img, clipped, gs)

	abs := make([]detection.Blob, len(blobs))
	for i, b := range blobs {
		abs[i] = offsetBlob(b, clipped.Min)
	}
	stats := detection.SummarizeBlobs(abs)
	r.Set("BlobCount", vision.Int(stats.Count))
	r.Set("Blobs", vision.Records(abs))
	if len(abs) == 0 {
		return r.Fail(vision.NoDetection, "No blobs found"), nil
	}
	r.Set("TotalArea", vision.Number(stats.TotalArea))
	r.Set("AverageArea", vision.Number(stats.AverageArea))
	r.Set("LargestBlobArea", vision.Number(stats.Largest))
	r.Set("SmallestBlobArea", vision.Number(stats.Smallest))
	r.Set(vision.KeyBoundingRect, vision.RectValue(abs[0].Bounds.Rect()))
	r.Set(vision.KeyCenterX, vision.Number(abs[0].Centroid.X))
	r.Set(vision.KeyCenterY, vision.Number(abs[0].Centroid.Y))
	return r, nil
}

func (t *BlobTool) blobGraphics(i int, b detection.Blob) []vision.Graphic {
	c := vimg.PaletteColor(i)
	var gs []vision.Graphic
	if t.cfg.DrawContours && len(b.Contour) > 1 {
		gs = append(gs, vision.PolygonGraphic(detection.ToPoints(b.Contour), c, 2))
	}
	if t.cfg.DrawBoundingBox {
		gs = append(gs, vision.RectGraphic(b.Bounds.Rect(), c, 1))
	}
	if t.cfg.DrawCenter {
		gs = append(gs, vision.CrosshairGraphic(b.Centroid, 6, vimg.Red, 1))
	}
	if t.cfg.DrawLabels {
		gs = append(gs, vision.TextGraphic(vimg.FromImagePoint(b.Bounds.Rect().Min).Add(vimg.Pt(0, -14)), strconv.Itoa(b.ID), c))
	}
	return gs
}

// offsetBlob moves a blob measured on an ROI region into image coordinates.
func offsetBlob(b detection.Blob, d image.Point) detection.Blob {
	if d == (image.Point{}) {
		return b
	}
	contour := make([]image.Point, len(b.Contour))
	for i, p := range b.Contour {
		contour[i] = p.Add(d)
	}
	b.Contour = contour
	b.Centroid = b.Centroid.Offset(d)
	b.Bounds = detection.BoundsOf(b.Bounds.Rect().Add(d))
	if b.RotatedRect != nil {
		rr := *b.RotatedRect
		rr.Center = rr.Center.Offset(d)
		b.RotatedRect = &rr
	}
	if b.Ellipse != nil {
		e := *b.Ellipse
		e.Center = e.Center.Offset(d)
		b.Ellipse = &e
	}
	return b
}

// Clone returns an independent copy with a fresh id.
func (t *BlobTool) Clone() vision.Tool {
	return &BlobTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
