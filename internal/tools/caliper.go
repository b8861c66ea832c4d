package tools

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ironsheep/vision-job/internal/detection"
	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

// Caliper measurement modes.
const (
	ModeSingleEdge = "single_edge"
	ModeEdgePair   = "edge_pair"
)

// edgeSearch holds the edge criteria shared by every caliper-based tool.
type edgeSearch struct {
	Polarity  string  `json:"polarity"`
	Threshold float64 `json:"threshold"`
	HalfWidth int     `json:"half_width"`
}

func (e *edgeSearch) validate() error {
	if _, err := detection.ParsePolarity(e.Polarity); err != nil {
		return vision.Invalid("polarity", "%v", err)
	}
	if e.Threshold < 0 {
		return vision.Invalid("threshold", "must not be negative")
	}
	if e.HalfWidth < 1 || e.HalfWidth > 20 {
		return vision.Invalid("half_width", "must be in 1..20, got %d", e.HalfWidth)
	}
	return nil
}

type caliperConfig struct {
	StartX float64 `json:"start_x"`
	StartY float64 `json:"start_y"`
	EndX   float64 `json:"end_x"`
	EndY   float64 `json:"end_y"`
	Width  float64 `json:"width"`
	edgeSearch

	Mode          string  `json:"mode"`
	ExpectedWidth float64 `json:"expected_width"`
	Tolerance     float64 `json:"tolerance"`
	MaxEdges      int     `json:"max_edges"`
}

func (c *caliperConfig) validate() error {
	if err := c.edgeSearch.validate(); err != nil {
		return err
	}
	if c.Width <= 0 {
		return vision.Invalid("width", "must be positive, got %v", c.Width)
	}
	if c.Mode != ModeSingleEdge && c.Mode != ModeEdgePair {
		return vision.Invalid("mode", "want %s or %s, got %q", ModeSingleEdge, ModeEdgePair, c.Mode)
	}
	if c.ExpectedWidth < 0 || c.Tolerance < 0 {
		return vision.Invalid("expected_width", "width and tolerance must not be negative")
	}
	if c.MaxEdges < 1 {
		return vision.Invalid("max_edges", "must be at least 1, got %d", c.MaxEdges)
	}
	return nil
}

func (c *caliperConfig) caliper() detection.Caliper {
	return detection.Caliper{
		Start:     vimg.Pt(c.StartX, c.StartY),
		End:       vimg.Pt(c.EndX, c.EndY),
		Width:     c.Width,
		Polarity:  detection.Polarity(c.Polarity),
		Threshold: c.Threshold,
		HalfWidth: c.HalfWidth,
		MaxEdges:  c.MaxEdges,
	}
}

// CaliperTool finds edges, or a pair of edges a given distance apart, along
// a segment given in ROI coordinates.
type CaliperTool struct {
	vision.ToolBase
	cfg caliperConfig
}

// NewCaliperTool returns a 100 px horizontal caliper looking for a single
// dark-to-light edge.
func NewCaliperTool() *CaliperTool {
	return &CaliperTool{
		ToolBase: vision.NewToolBase(TypeCaliper, "Caliper"),
		cfg: caliperConfig{
			EndX:          100,
			Width:         20,
			edgeSearch:    edgeSearch{Polarity: string(detection.DarkToLight), Threshold: 30, HalfWidth: 2},
			Mode:          ModeSingleEdge,
			ExpectedWidth: 50,
			Tolerance:     20,
			MaxEdges:      10,
		},
	}
}

// Configure validates the caliper geometry, edge search and mode.
func (t *CaliperTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, (*caliperConfig).validate)
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the caliper settings.
func (t *CaliperTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute samples the caliper and reports the strongest edge, or in pair
// mode the best edge pair within tolerance of the expected width.
func (t *CaliperTool) Execute(img image.Image) (*vision.Result, error) {
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	c := t.cfg.caliper()
	edges, err := c.Measure(vimg.ToGray(region))
	if err != nil {
		return nil, err
	}

	r := vision.NewResult("")
	gs := caliperFrame(c, vimg.Yellow)

	abs := make([]detection.Edge, len(edges))
	for i, e := range edges {
		abs[i] = e
		abs[i].Point = e.Point.Offset(clipped.Min)
	}
	r.Set("EdgeCount", vision.Int(len(abs)))
	r.Set("Edges", vision.Records(abs))

	if t.cfg.Mode == ModeEdgePair {
		pairs := detection.FindEdgePairs(edges, t.cfg.ExpectedWidth, t.cfg.Tolerance)
		if len(pairs) == 0 {
			annotate(&t.ToolBase, r, img, clipped, gs)
			return r.Fail(vision.NoDetection, "No edge pair within %.1f±%.1f px", t.cfg.ExpectedWidth, t.cfg.Tolerance), nil
		}
		best := pairs[0]
		gs = append(gs,
			edgeMark(c, best.First.Point, vimg.Green),
			edgeMark(c, best.Second.Point, vimg.Cyan),
			vision.LineGraphic(best.First.Point, best.Second.Point, vimg.Magenta, 2),
			vision.TextGraphic(best.Center.Add(vimg.Pt(4, 8)), fmt.Sprintf("%.2fpx", best.Width), vimg.Magenta),
		)
		e1 := best.First.Point.Offset(clipped.Min)
		e2 := best.Second.Point.Offset(clipped.Min)
		center := best.Center.Offset(clipped.Min)
		r.Set("Width", vision.Number(best.Width))
		r.Set("Edge1X", vision.Number(e1.X))
		r.Set("Edge1Y", vision.Number(e1.Y))
		r.Set("Edge2X", vision.Number(e2.X))
		r.Set("Edge2Y", vision.Number(e2.Y))
		r.Set(vision.KeyCenterX, vision.Number(center.X))
		r.Set(vision.KeyCenterY, vision.Number(center.Y))
		r.Set("PairCount", vision.Int(len(pairs)))
		r.Message = fmt.Sprintf("Edge pair width %.2f px", best.Width)
		annotate(&t.ToolBase, r, img, clipped, gs)
		return r, nil
	}

	if len(edges) == 0 {
		annotate(&t.ToolBase, r, img, clipped, gs)
		return r.Fail(vision.NoDetection, "No edge found"), nil
	}
	best := abs[0]
	for _, e := range edges {
		gs = append(gs, edgeMark(c, e.Point, vimg.Green))
	}
	r.Set("EdgeX", vision.Number(best.Point.X))
	r.Set("EdgeY", vision.Number(best.Point.Y))
	r.Set("EdgeScore", vision.Number(best.Score))
	r.Set("EdgePolarity", vision.Text(string(best.Polarity)))
	r.Message = fmt.Sprintf("Found %d edges", len(edges))
	annotate(&t.ToolBase, r, img, clipped, gs)
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *CaliperTool) Clone() vision.Tool {
	return &CaliperTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}

// caliperFrame outlines the search region and its centreline.
func caliperFrame(c detection.Caliper, col color.RGBA) []vision.Graphic {
	return []vision.Graphic{
		vision.PolygonGraphic(c.Region(), col, 1),
		vision.LineGraphic(c.Start, c.End, col, 1),
	}
}

// edgeMark is a line across the caliper width through p.
func edgeMark(c detection.Caliper, p vimg.Point, col color.RGBA) vision.Graphic {
	_, v, _ := c.Axes()
	half := v.Mul(c.Width / 2)
	return vision.LineGraphic(p.Sub(half), p.Add(half), col, 2)
}

// strongestEdges runs each caliper over g and returns the strongest edge
// point of every caliper that found one, with the calipers' outlines and
// edge markers.
func strongestEdges(g *vimg.Gray, calipers []detection.Caliper) ([]vimg.Point, []vision.Graphic) {
	var pts []vimg.Point
	var gs []vision.Graphic
	for _, c := range calipers {
		gs = append(gs, vision.PolygonGraphic(c.Region(), vimg.Yellow, 1))
		edges, err := c.Measure(g)
		if err != nil || len(edges) == 0 {
			continue
		}
		pts = append(pts, edges[0].Point)
		gs = append(gs, vision.CrosshairGraphic(edges[0].Point, 4, vimg.Green, 1))
	}
	return pts, gs
}

func offsetPoints(pts []vimg.Point, d image.Point) []vimg.Point {
	out := make([]vimg.Point, len(pts))
	for i, p := range pts {
		out[i] = p.Offset(d)
	}
	return out
}
