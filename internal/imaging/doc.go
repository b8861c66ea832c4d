// Package imaging provides the pixel-level building blocks of the vision
// tools: region-of-interest handling, intensity buffers, filters, edge
// detection, overlay drawing, color description and PNG transport.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Coordinate System
//
// Pixel coordinates are 0-based and image-relative: an image whose bounds do
// not start at the origin is still addressed from (0,0). Regions use
// image.Rectangle with an inclusive Min and exclusive Max. Sub-pixel
// positions use Point.
//
// # Regions of Interest
//
// ExtractROI and CompositeROI form a pair. A tool extracts its ROI, works on
// the extracted image (which starts at 0,0), then shifts any geometry by the
// clipped rectangle's Min and composites processed pixels back into a full
// frame. Out-of-range ROIs are clipped, never rejected.
//
// # Intensity Buffers
//
// Gray holds float64 intensities in the 0-255 range. Measurement code
// (calipers, correlation, feature detection) reads Gray rather than
// image.Image to avoid per-pixel interface calls.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Everything else is stateless
// apart from Canvas, which must not be shared between goroutines.
package imaging
