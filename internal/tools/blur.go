package tools

import (
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type blurConfig struct {
	Kind   string  `json:"kind"`
	Radius float64 `json:"radius"`
}

// BlurTool smooths its region with a gaussian, box or median kernel.
type BlurTool struct {
	vision.ToolBase
	cfg blurConfig
}

// NewBlurTool returns a gaussian blur of radius 2.
func NewBlurTool() *BlurTool {
	return &BlurTool{
		ToolBase: vision.NewToolBase(TypeBlur, "Blur"),
		cfg:      blurConfig{Kind: string(vimg.BlurGaussian), Radius: 2},
	}
}

// Configure sets the kernel kind and radius.
func (t *BlurTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, func(c *blurConfig) error {
		kind, err := vimg.ParseBlurKind(c.Kind)
		if err != nil {
			return vision.Invalid("kind", "%v", err)
		}
		c.Kind = string(kind)
		if c.Radius < 0 || c.Radius > 50 {
			return vision.Invalid("radius", "must be in 0..50, got %v", c.Radius)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the kernel kind and radius.
func (t *BlurTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute smooths the ROI and returns the image with the ROI replaced.
func (t *BlurTool) Execute(img image.Image) (*vision.Result, error) {
	region, _, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	out := vimg.Blur(region, vimg.BlurKind(t.cfg.Kind), t.cfg.Radius)

	r := vision.NewResult("Blur complete")
	r.Output = t.Restore(img, out)
	r.Set("Kind", vision.Text(t.cfg.Kind))
	r.Set("Radius", vision.Number(t.cfg.Radius))
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *BlurTool) Clone() vision.Tool {
	return &BlurTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
