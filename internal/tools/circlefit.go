package tools

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/vision-job/internal/detection"
	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type circleFitConfig struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Radius  float64 `json:"radius"`

	CaliperCount  int     `json:"caliper_count"`
	CaliperLength float64 `json:"caliper_length"`
	CaliperWidth  float64 `json:"caliper_width"`
	edgeSearch
}

func (c *circleFitConfig) validate() error {
	if err := c.edgeSearch.validate(); err != nil {
		return err
	}
	if c.Radius <= 0 {
		return vision.Invalid("radius", "must be positive, got %v", c.Radius)
	}
	if c.CaliperCount < 3 || c.CaliperCount > 360 {
		return vision.Invalid("caliper_count", "must be in 3..360, got %d", c.CaliperCount)
	}
	if c.CaliperLength < 2 {
		return vision.Invalid("caliper_length", "must be at least 2, got %v", c.CaliperLength)
	}
	if c.CaliperWidth <= 0 {
		return vision.Invalid("caliper_width", "must be positive, got %v", c.CaliperWidth)
	}
	return nil
}

// calipers places radial calipers evenly around the nominal circle, each
// running outward across it.
func (c *circleFitConfig) calipers() []detection.Caliper {
	center := vimg.Pt(c.CenterX, c.CenterY)
	inner := math.Max(0, c.Radius-c.CaliperLength/2)
	outer := c.Radius + c.CaliperLength/2

	out := make([]detection.Caliper, c.CaliperCount)
	for i := range out {
		th := 2 * math.Pi * float64(i) / float64(c.CaliperCount)
		dir := vimg.Pt(math.Cos(th), math.Sin(th))
		out[i] = detection.Caliper{
			Start:     center.Add(dir.Mul(inner)),
			End:       center.Add(dir.Mul(outer)),
			Width:     c.CaliperWidth,
			Polarity:  detection.Polarity(c.Polarity),
			Threshold: c.Threshold,
			HalfWidth: c.HalfWidth,
			MaxEdges:  1,
		}
	}
	return out
}

// CircleFitTool locates a circular edge from radial calipers around a
// nominal circle given in ROI coordinates.
type CircleFitTool struct {
	vision.ToolBase
	cfg circleFitConfig
}

// NewCircleFitTool returns a 12-caliper circle fit around (50,50) r=40.
func NewCircleFitTool() *CircleFitTool {
	return &CircleFitTool{
		ToolBase: vision.NewToolBase(TypeCircleFit, "Circle Fit"),
		cfg: circleFitConfig{
			CenterX:       50,
			CenterY:       50,
			Radius:        40,
			CaliperCount:  12,
			CaliperLength: 30,
			CaliperWidth:  10,
			edgeSearch:    edgeSearch{Polarity: string(detection.AnyPolarity), Threshold: 30, HalfWidth: 2},
		},
	}
}

// Configure validates the nominal circle and caliper layout.
func (t *CircleFitTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, (*circleFitConfig).validate)
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the nominal circle and caliper settings.
func (t *CircleFitTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute runs radial calipers from the nominal centre and fits a circle
// through the strongest edge of each. Fewer than three edges is NoDetection.
func (t *CircleFitTool) Execute(img image.Image) (*vision.Result, error) {
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	pts, gs := strongestEdges(vimg.ToGray(region), t.cfg.calipers())

	r := vision.NewResult("")
	r.Set("PointCount", vision.Int(len(pts)))
	if len(pts) < 3 {
		annotate(&t.ToolBase, r, img, clipped, gs)
		return r.Fail(vision.NoDetection, "Circle fit needs 3 edge points, found %d", len(pts)), nil
	}

	circle, residual, err := detection.FitCircle(pts)
	if err != nil {
		return r.Fail(vision.NoDetection, "Circle fit failed: %v", err), nil
	}
	gs = append(gs,
		vision.CircleGraphic(circle.Center, circle.Radius, vimg.Green, 2).
			WithLabel(fmt.Sprintf("r=%.2f", circle.Radius)),
		vision.CrosshairGraphic(circle.Center, 8, vimg.Red, 1),
	)
	annotate(&t.ToolBase, r, img, clipped, gs)

	c := circle.Center.Offset(clipped.Min)
	r.Set(vision.KeyCenterX, vision.Number(c.X))
	r.Set(vision.KeyCenterY, vision.Number(c.Y))
	r.Set("Radius", vision.Number(circle.Radius))
	r.Set("Diameter", vision.Number(2*circle.Radius))
	r.Set("Residual", vision.Number(residual))
	r.Set("Points", vision.PointsValue(offsetPoints(pts, clipped.Min)))
	r.Message = fmt.Sprintf("Circle fitted through %d points, radius %.2f", len(pts), circle.Radius)
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *CircleFitTool) Clone() vision.Tool {
	return &CircleFitTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
