package tools

import (
	"fmt"
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type edgeConfig struct {
	Method string  `json:"method"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
}

// EdgeDetectionTool produces a Canny edge map or a Sobel magnitude image.
type EdgeDetectionTool struct {
	vision.ToolBase
	cfg edgeConfig
}

// NewEdgeDetectionTool returns a Canny detector with thresholds 50 and 150.
func NewEdgeDetectionTool() *EdgeDetectionTool {
	return &EdgeDetectionTool{
		ToolBase: vision.NewToolBase(TypeEdgeDetection, "Edge Detection"),
		cfg:      edgeConfig{Method: "canny", Low: 50, High: 150},
	}
}

// Configure sets the method and the Canny hysteresis thresholds.
func (t *EdgeDetectionTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, func(c *edgeConfig) error {
		if c.Method != "canny" && c.Method != "sobel" {
			return vision.Invalid("method", "want canny or sobel, got %q", c.Method)
		}
		if c.Low < 0 || c.High < c.Low {
			return vision.Invalid("low", "need 0 <= low <= high, got %v and %v", c.Low, c.High)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the method and thresholds.
func (t *EdgeDetectionTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Execute replaces the ROI with its edge map and counts edge pixels.
func (t *EdgeDetectionTool) Execute(img image.Image) (*vision.Result, error) {
	region, _, err := t.Region(img)
	if err != nil {
		return nil, err
	}

	var edges *image.Gray
	if t.cfg.Method == "sobel" {
		edges = vimg.Sobel(region)
	} else {
		edges = vimg.Canny(region, t.cfg.Low, t.cfg.High)
	}

	n := 0
	for _, v := range edges.Pix {
		if v > 0 {
			n++
		}
	}

	r := vision.NewResult(fmt.Sprintf("Edge detection complete: %d edge pixels", n))
	r.Output = t.Restore(img, edges)
	r.Set("EdgePixels", vision.Int(n))
	r.Set("Method", vision.Text(t.cfg.Method))
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *EdgeDetectionTool) Clone() vision.Tool {
	return &EdgeDetectionTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
