package tools

import (
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type thresholdConfig struct {
	Level  int  `json:"level"`
	Invert bool `json:"invert"`
	// Auto picks the level with Otsu's method and ignores Level.
	Auto bool `json:"auto"`
}

// ThresholdTool binarises its region.
type ThresholdTool struct {
	vision.ToolBase
	cfg thresholdConfig
}

// NewThresholdTool returns a fixed threshold at level 128.
func NewThresholdTool() *ThresholdTool {
	return &ThresholdTool{
		ToolBase: vision.NewToolBase(TypeThreshold, "Threshold"),
		cfg:      thresholdConfig{Level: 128},
	}
}

// Configure sets the level, inversion and automatic Otsu mode.
func (t *ThresholdTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, func(c *thresholdConfig) error {
		if c.Level < 0 || c.Level > 255 {
			return vision.Invalid("level", "must be in 0..255, got %d", c.Level)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the threshold settings.
func (t *ThresholdTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute binarises the ROI and reports the level used.
func (t *ThresholdTool) Execute(img image.Image) (*vision.Result, error) {
	region, _, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	level := uint8(t.cfg.Level)
	if t.cfg.Auto {
		level = vimg.OtsuLevel(region)
	}
	bin := vimg.Threshold(region, level, t.cfg.Invert)

	white := 0
	for _, v := range bin.Pix {
		if v > 0 {
			white++
		}
	}

	r := vision.NewResult("Threshold complete")
	r.Output = t.Restore(img, bin)
	r.Set("Threshold", vision.Int(int(level)))
	r.Set("ForegroundPixels", vision.Int(white))
	r.Set("ForegroundRatio", vision.Number(float64(white)/float64(len(bin.Pix))))
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *ThresholdTool) Clone() vision.Tool {
	return &ThresholdTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
