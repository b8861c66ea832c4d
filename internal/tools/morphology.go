package tools

import (
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type morphologyConfig struct {
	Operation  string  `json:"operation"`
	Radius     float64 `json:"radius"`
	Iterations int     `json:"iterations"`
}

// MorphologyTool erodes, dilates, opens or closes its region.
type MorphologyTool struct {
	vision.ToolBase
	cfg morphologyConfig
}

// NewMorphologyTool returns a single erosion of radius 1.
func NewMorphologyTool() *MorphologyTool {
	return &MorphologyTool{
		ToolBase: vision.NewToolBase(TypeMorphology, "Morphology"),
		cfg:      morphologyConfig{Operation: string(vimg.MorphErode), Radius: 1, Iterations: 1},
	}
}

// Configure sets the operation, radius and iteration count.
func (t *MorphologyTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, func(c *morphologyConfig) error {
		op, err := vimg.ParseMorphOp(c.Operation)
		if err != nil {
			return vision.Invalid("operation", "%v", err)
		}
		c.Operation = string(op)
		if c.Radius <= 0 || c.Radius > 20 {
			return vision.Invalid("radius", "must be in (0, 20], got %v", c.Radius)
		}
		if c.Iterations < 1 || c.Iterations > 20 {
			return vision.Invalid("iterations", "must be in 1..20, got %d", c.Iterations)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the operation settings.
func (t *MorphologyTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute applies the operation to the ROI the configured number of times.
func (t *MorphologyTool) Execute(img image.Image) (*vision.Result, error) {
	region, _, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	out := vimg.Morphology(region, vimg.MorphOp(t.cfg.Operation), t.cfg.Radius, t.cfg.Iterations)

	r := vision.NewResult("Morphology complete")
	r.Output = t.Restore(img, out)
	r.Set("Operation", vision.Text(t.cfg.Operation))
	r.Set("Iterations", vision.Int(t.cfg.Iterations))
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *MorphologyTool) Clone() vision.Tool {
	return &MorphologyTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
