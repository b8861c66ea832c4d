// Package tools implements the concrete vision tools and the registry that
// maps their type identifiers to constructors.
//
// Every tool embeds vision.ToolBase and keeps its parameters in a small
// JSON-tagged config struct, so Configure and Parameters are symmetric:
//
//	t, _ := tools.New(tools.TypeBlob)
//	_ = vision.Configure(t, vision.Params{"min_area": 500, "sort_by": "center_x"})
//	res := vision.Run(t, img)
//
// Tools work on the ROI region of their input. Measurements are reported in
// absolute image coordinates, and overlays are rendered on the full input.
//
// # Categories
//
//   - Image Processing: GrayscaleTool, BlurTool, ThresholdTool,
//     EdgeDetectionTool, MorphologyTool, HistogramTool
//   - Pattern Matching: TemplateMatchTool, FeatureMatchTool
//   - Blob Analysis: BlobTool
//   - Measurement: CaliperTool, LineFitTool, CircleFitTool
//   - Identification: OCRTool
//
// Conditioning tools (and BlobTool, whose output is its binary mask) return
// an output image composited back to full size when an ROI is used. Analysis
// tools return no output, so the pipeline's working image passes through
// them unchanged.
package tools
