package tools

import (
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

// GrayscaleTool converts its region to 8-bit luma.
type GrayscaleTool struct {
	vision.ToolBase
}

// NewGrayscaleTool returns a luminance conversion tool.
func NewGrayscaleTool() *GrayscaleTool {
	return &GrayscaleTool{ToolBase: vision.NewToolBase(TypeGrayscale, "Grayscale")}
}

// Configure accepts no tool parameters.
func (t *GrayscaleTool) Configure(p vision.Params) error {
	_, err := decode(struct{}{}, p, nil)
	return err
}

// Parameters is always empty.
func (t *GrayscaleTool) Parameters() vision.Params { return vision.Params{} }

// Execute converts the ROI to gray.
func (t *GrayscaleTool) Execute(img image.Image) (*vision.Result, error) {
	region, _, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	gray := vimg.Grayscale(region)

	r := vision.NewResult("Grayscale conversion complete")
	r.Output = t.Restore(img, gray)
	r.Set("Channels", vision.Int(1))
	r.Set("Width", vision.Int(gray.Bounds().Dx()))
	r.Set("Height", vision.Int(gray.Bounds().Dy()))
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *GrayscaleTool) Clone() vision.Tool {
	return &GrayscaleTool{ToolBase: t.CloneBase()}
}
