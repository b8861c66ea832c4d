package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ROIActive reports whether a region of interest should restrict processing.
// A disabled ROI, or one with a non-positive width or height, means "whole image".
func ROIActive(roi image.Rectangle, use bool) bool {
	return use && roi.Dx() > 0 && roi.Dy() > 0
}

// ClipROI clips roi to the extent of an image with the given bounds.
//
// The roi is expressed in image-relative coordinates (0,0 is the top-left pixel
// regardless of bounds.Min). The result never extends past the image: a
// negative origin is moved to 0 and an oversized width or height is reduced.
// An roi that lies entirely outside the image yields an empty rectangle.
func ClipROI(bounds image.Rectangle, roi image.Rectangle) image.Rectangle {
	full := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	clipped := roi.Canon().Intersect(full)
	if clipped.Empty() {
		return image.Rectangle{}
	}
	return clipped
}

// ExtractROI returns a deep copy of the region of img selected by roi, together
// with the clipped rectangle in image-relative coordinates.
//
// When the ROI is inactive (see ROIActive) the whole image is copied and the
// returned rectangle covers it. The returned image always starts at (0,0), so
// geometry measured on it must be shifted by the rectangle's Min to get back to
// source coordinates.
func ExtractROI(img image.Image, roi image.Rectangle, use bool) (*image.NRGBA, image.Rectangle) {
	b := img.Bounds()
	if !ROIActive(roi, use) {
		return imaging.Clone(img), image.Rect(0, 0, b.Dx(), b.Dy())
	}
	clipped := ClipROI(b, roi)
	if clipped.Empty() {
		return image.NewNRGBA(image.Rectangle{}), clipped
	}
	return imaging.Crop(img, clipped.Add(b.Min)), clipped
}

// CompositeROI writes processed back into a full-size canvas the size of img.
//
// With an inactive ROI a copy of processed is returned unchanged. Otherwise the
// canvas is filled with fill, the same clipped rectangle as ExtractROI is
// recomputed, and processed is pasted at its origin. A processed image whose
// size differs from the clipped rectangle is resized first: nearest-neighbour
// for single-channel buffers (keeps binary masks binary), linear otherwise.
func CompositeROI(img, processed image.Image, roi image.Rectangle, use bool, fill color.Color) *image.NRGBA {
	if !ROIActive(roi, use) {
		return imaging.Clone(processed)
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), fill)
	clipped := ClipROI(b, roi)
	if clipped.Empty() {
		return canvas
	}

	pb := processed.Bounds()
	if pb.Dx() != clipped.Dx() || pb.Dy() != clipped.Dy() {
		filter := imaging.Linear
		switch processed.(type) {
		case *image.Gray, *image.Gray16:
			filter = imaging.NearestNeighbor
		}
		processed = imaging.Resize(processed, clipped.Dx(), clipped.Dy(), filter)
	}
	return imaging.Paste(canvas, processed, clipped.Min)
}

// Empty reports whether img is nil or has no pixels.
func Empty(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}

// Clone returns a deep copy of img re-based at (0,0). A nil image stays nil.
func Clone(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	return imaging.Clone(img)
}
