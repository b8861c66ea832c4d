package tools

import (
	"fmt"
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type histogramConfig struct {
	DominantColors int `json:"dominant_colors"`
}

// HistogramTool reports gray-level statistics and the colour makeup of its
// region. It produces no output image.
type HistogramTool struct {
	vision.ToolBase
	cfg histogramConfig
}

// NewHistogramTool returns a histogram tool reporting three dominant colours.
func NewHistogramTool() *HistogramTool {
	return &HistogramTool{
		ToolBase: vision.NewToolBase(TypeHistogram, "Histogram"),
		cfg:      histogramConfig{DominantColors: 3},
	}
}

// Configure sets how many dominant colours are reported.
func (t *HistogramTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, func(c *histogramConfig) error {
		if c.DominantColors < 0 || c.DominantColors > 32 {
			return vision.Invalid("dominant_colors", "must be in 0..32, got %d", c.DominantColors)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the dominant colour count.
func (t *HistogramTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute reports gray-level statistics and the mean colour of the ROI.
// It leaves the image unchanged.
func (t *HistogramTool) Execute(img image.Image) (*vision.Result, error) {
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	stats := vimg.GrayHistogram(region)
	mean := vimg.MeanColor(region)

	r := vision.NewResult(fmt.Sprintf("Histogram: mean %.1f, std-dev %.1f", stats.Mean, stats.StdDev))
	r.Set("Mean", vision.Number(stats.Mean))
	r.Set("StdDev", vision.Number(stats.StdDev))
	r.Set("Min", vision.Int(stats.Min))
	r.Set("Max", vision.Int(stats.Max))
	r.Set("PixelCount", vision.Int(stats.Total))
	r.Set("Bins", vision.Records(stats.Bins))
	r.Set("MeanColor", vision.Text(mean.Hex))
	r.Set("MeanHue", vision.Int(mean.HSL.H))
	r.Set("MeanSaturation", vision.Int(mean.HSL.S))
	r.Set("MeanLightness", vision.Int(mean.HSL.L))
	if t.cfg.DominantColors > 0 {
		r.Set("DominantColors", vision.Records(vimg.DominantColors(region, t.cfg.DominantColors)))
	}

	label := fmt.Sprintf("mean %.1f  sd %.1f  %s", stats.Mean, stats.StdDev, mean.Hex)
	annotate(&t.ToolBase, r, img, clipped, []vision.Graphic{
		vision.TextGraphic(vimg.Pt(4, 4), label, vimg.White),
	})
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *HistogramTool) Clone() vision.Tool {
	return &HistogramTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
