package tools

import (
	"github.com/ironsheep/vision-job/internal/vision"
)

// Option customises a registry built by NewRegistry.
type Option func(*options)

type options struct {
	ocrLanguage    string
	tessdataPrefix string
}

// WithOCR sets the defaults of newly created OCR tools.
func WithOCR(language, tessdataPrefix string) Option {
	return func(o *options) {
		o.ocrLanguage = language
		o.tessdataPrefix = tessdataPrefix
	}
}

// NewRegistry returns a registry holding every tool type in this package,
// grouped by category.
func NewRegistry(opts ...Option) *vision.Registry {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := vision.NewRegistry()
	add := func(id, name, category string, ctor func() vision.Tool) {
		r.Register(vision.ToolType{ID: id, DisplayName: name, Category: category, New: ctor})
	}

	add(TypeGrayscale, "Grayscale", CategoryImageProcessing, func() vision.Tool { return NewGrayscaleTool() })
	add(TypeBlur, "Blur", CategoryImageProcessing, func() vision.Tool { return NewBlurTool() })
	add(TypeThreshold, "Threshold", CategoryImageProcessing, func() vision.Tool { return NewThresholdTool() })
	add(TypeEdgeDetection, "Edge Detection", CategoryImageProcessing, func() vision.Tool { return NewEdgeDetectionTool() })
	add(TypeMorphology, "Morphology", CategoryImageProcessing, func() vision.Tool { return NewMorphologyTool() })
	add(TypeHistogram, "Histogram", CategoryImageProcessing, func() vision.Tool { return NewHistogramTool() })

	add(TypeTemplateMatch, "Template Match", CategoryPatternMatching, func() vision.Tool { return NewTemplateMatchTool() })
	add(TypeFeatureMatch, "Feature Match", CategoryPatternMatching, func() vision.Tool { return NewFeatureMatchTool() })

	add(TypeBlob, "Blob Analysis", CategoryBlobAnalysis, func() vision.Tool { return NewBlobTool() })

	add(TypeCaliper, "Caliper", CategoryMeasurement, func() vision.Tool { return NewCaliperTool() })
	add(TypeLineFit, "Line Fit", CategoryMeasurement, func() vision.Tool { return NewLineFitTool() })
	add(TypeCircleFit, "Circle Fit", CategoryMeasurement, func() vision.Tool { return NewCircleFitTool() })

	add(TypeOCR, "OCR", CategoryIdentification, func() vision.Tool {
		return NewOCRTool(o.ocrLanguage, o.tessdataPrefix)
	})
	return r
}

var defaultRegistry = NewRegistry()

// New creates a tool from the default registry. Unknown identifiers return
// false.
func New(id string) (vision.Tool, bool) {
	return defaultRegistry.Create(id)
}
