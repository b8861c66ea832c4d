package tools

import (
	"image"

	"github.com/ironsheep/vision-job/internal/vision"
)

// Tool type identifiers.
const (
	TypeGrayscale     = "GrayscaleTool"
	TypeBlur          = "BlurTool"
	TypeThreshold     = "ThresholdTool"
	TypeEdgeDetection = "EdgeDetectionTool"
	TypeMorphology    = "MorphologyTool"
	TypeHistogram     = "HistogramTool"
	TypeTemplateMatch = "TemplateMatchTool"
	TypeFeatureMatch  = "FeatureMatchTool"
	TypeBlob          = "BlobTool"
	TypeCaliper       = "CaliperTool"
	TypeLineFit       = "LineFitTool"
	TypeCircleFit     = "CircleFitTool"
	TypeOCR           = "OCRTool"
)

// Categories.
const (
	CategoryImageProcessing = "Image Processing"
	CategoryPatternMatching = "Pattern Matching"
	CategoryBlobAnalysis    = "Blob Analysis"
	CategoryMeasurement     = "Measurement"
	CategoryIdentification  = "Identification"
)

// annotate adds the ROI frame and gs, given in region coordinates, to r and
// renders them over the full input.
func annotate(b *vision.ToolBase, r *vision.Result, img image.Image, clipped image.Rectangle, gs []vision.Graphic) {
	r.AddGraphic(b.ROIGraphic(clipped)...)
	r.AddGraphic(vision.TranslateAll(gs, clipped.Min)...)
	r.Overlay = vision.RenderOverlay(img, r.Graphics)
}

// decode overlays p onto a copy of cfg, runs validate on it and returns the
// copy. cfg is left untouched on any error.
func decode[T any](cfg T, p vision.Params, validate func(*T) error) (T, error) {
	next := cfg
	if err := p.Decode(&next); err != nil {
		return cfg, err
	}
	if validate != nil {
		if err := validate(&next); err != nil {
			return cfg, err
		}
	}
	return next, nil
}

var (
	_ vision.Trainable = (*TemplateMatchTool)(nil)
	_ vision.Trainable = (*FeatureMatchTool)(nil)
)
