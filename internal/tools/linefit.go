package tools

import (
	"fmt"
	"image"

	"github.com/ironsheep/vision-job/internal/detection"
	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type lineFitConfig struct {
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`

	CaliperCount  int     `json:"caliper_count"`
	CaliperLength float64 `json:"caliper_length"`
	CaliperWidth  float64 `json:"caliper_width"`
	edgeSearch
}

func (c *lineFitConfig) validate() error {
	if err := c.edgeSearch.validate(); err != nil {
		return err
	}
	if c.CaliperCount < 2 || c.CaliperCount > 100 {
		return vision.Invalid("caliper_count", "must be in 2..100, got %d", c.CaliperCount)
	}
	if c.CaliperLength < 2 {
		return vision.Invalid("caliper_length", "must be at least 2, got %v", c.CaliperLength)
	}
	if c.CaliperWidth <= 0 {
		return vision.Invalid("caliper_width", "must be positive, got %v", c.CaliperWidth)
	}
	return nil
}

// calipers spreads CaliperCount calipers evenly along the nominal segment,
// each searching across it.
func (c *lineFitConfig) calipers() []detection.Caliper {
	start, end := vimg.Pt(c.StartX, c.StartY), vimg.Pt(c.EndX, c.EndY)
	nominal := detection.Caliper{Start: start, End: end}
	_, v, _ := nominal.Axes()
	half := v.Mul(c.CaliperLength / 2)

	out := make([]detection.Caliper, c.CaliperCount)
	for i := range out {
		f := (float64(i) + 0.5) / float64(c.CaliperCount)
		mid := start.Add(end.Sub(start).Mul(f))
		out[i] = detection.Caliper{
			Start:     mid.Sub(half),
			End:       mid.Add(half),
			Width:     c.CaliperWidth,
			Polarity:  detection.Polarity(c.Polarity),
			Threshold: c.Threshold,
			HalfWidth: c.HalfWidth,
			MaxEdges:  1,
		}
	}
	return out
}

// LineFitTool locates a straight edge: calipers placed across a nominal
// segment each contribute their strongest edge and a total-least-squares
// line is fitted through them.
type LineFitTool struct {
	vision.ToolBase
	cfg lineFitConfig
}

// NewLineFitTool returns a 5-caliper line fit along (0,0)-(100,0).
func NewLineFitTool() *LineFitTool {
	return &LineFitTool{
		ToolBase: vision.NewToolBase(TypeLineFit, "Line Fit"),
		cfg: lineFitConfig{
			EndX:          100,
			CaliperCount:  5,
			CaliperLength: 40,
			CaliperWidth:  10,
			edgeSearch:    edgeSearch{Polarity: string(detection.AnyPolarity), Threshold: 30, HalfWidth: 2},
		},
	}
}

// Configure validates the segment and caliper layout.
func (t *LineFitTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, (*lineFitConfig).validate)
	if err != nil {
		return err
	}
	if cfg.StartX == cfg.EndX && cfg.StartY == cfg.EndY {
		return vision.Invalid("end_x", "segment start and end coincide")
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the segment and caliper settings.
func (t *LineFitTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute spreads calipers across the segment and fits a line through the
// strongest edge of each. Fewer than two edges is NoDetection.
func (t *LineFitTool) Execute(img image.Image) (*vision.Result, error) {
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	pts, gs := strongestEdges(vimg.ToGray(region), t.cfg.calipers())

	r := vision.NewResult("")
	r.Set("PointCount", vision.Int(len(pts)))
	if len(pts) < 2 {
		annotate(&t.ToolBase, r, img, clipped, gs)
		return r.Fail(vision.NoDetection, "Line fit needs 2 edge points, found %d", len(pts)), nil
	}

	line, residual, err := detection.FitLine(pts)
	if err != nil {
		return nil, err
	}
	// Endpoints are the extreme edge points projected onto the line.
	a, b := line.Project(pts[0]), line.Project(pts[len(pts)-1])
	gs = append(gs, vision.LineGraphic(a, b, vimg.Green, 2).
		WithLabel(fmt.Sprintf("%.2f°", line.AngleDegrees())))
	annotate(&t.ToolBase, r, img, clipped, gs)

	abs := offsetPoints(pts, clipped.Min)
	a, b = a.Offset(clipped.Min), b.Offset(clipped.Min)
	mid := vimg.Midpoint(a, b)
	r.Set("Angle", vision.Number(line.AngleDegrees()))
	r.Set("Residual", vision.Number(residual))
	r.Set("StartX", vision.Number(a.X))
	r.Set("StartY", vision.Number(a.Y))
	r.Set("EndX", vision.Number(b.X))
	r.Set("EndY", vision.Number(b.Y))
	r.Set(vision.KeyCenterX, vision.Number(mid.X))
	r.Set(vision.KeyCenterY, vision.Number(mid.Y))
	r.Set("Points", vision.PointsValue(abs))
	r.Message = fmt.Sprintf("Line fitted through %d points, angle %.2f°", len(pts), line.AngleDegrees())
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *LineFitTool) Clone() vision.Tool {
	return &LineFitTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
