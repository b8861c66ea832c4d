package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestROIActive(t *testing.T) {
	tests := []struct {
		name string
		roi  image.Rectangle
		use  bool
		want bool
	}{
		{"disabled", image.Rect(0, 0, 10, 10), false, false},
		{"enabled", image.Rect(0, 0, 10, 10), true, true},
		{"zero width", image.Rect(5, 5, 5, 10), true, false},
		{"zero height", image.Rect(5, 5, 10, 5), true, false},
	}
	for _, tt := range tests {
		if got := ROIActive(tt.roi, tt.use); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClipROI(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)

	tests := []struct {
		name string
		roi  image.Rectangle
		want image.Rectangle
	}{
		{"inside", image.Rect(10, 10, 30, 40), image.Rect(10, 10, 30, 40)},
		{"negative origin", image.Rect(-10, -5, 20, 20), image.Rect(0, 0, 20, 20)},
		{"oversized", image.Rect(90, 70, 200, 200), image.Rect(90, 70, 100, 80)},
		{"outside", image.Rect(150, 150, 160, 160), image.Rectangle{}},
		{"whole image", image.Rect(-1, -1, 1000, 1000), bounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClipROI(bounds, tt.roi)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !got.Empty() && !got.In(bounds) {
				t.Errorf("clipped %v escapes image %v", got, bounds)
			}
		})
	}
}

func TestClipROI_OffsetBounds(t *testing.T) {
	// ROI coordinates are image-relative even when bounds do not start at 0.
	got := ClipROI(image.Rect(50, 50, 150, 130), image.Rect(90, 70, 200, 200))
	if want := image.Rect(90, 70, 100, 80); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractROI(t *testing.T) {
	img := createQuadrantImage(100, 100)

	sub, r := ExtractROI(img, image.Rect(40, 40, 60, 60), true)
	if r != image.Rect(40, 40, 60, 60) {
		t.Fatalf("rect: got %v", r)
	}
	if sub.Bounds() != image.Rect(0, 0, 20, 20) {
		t.Fatalf("extracted bounds: got %v, want 20x20 at origin", sub.Bounds())
	}
	if got := DescribeColor(sub.At(0, 0)).Hex; got != "#FF0000" {
		t.Errorf("top-left of crop: got %s, want red", got)
	}
	if got := DescribeColor(sub.At(19, 19)).Hex; got != "#FFFFFF" {
		t.Errorf("bottom-right of crop: got %s, want white", got)
	}

	// Mutating the extraction must not alter the source.
	sub.Set(0, 0, color.Black)
	if got := DescribeColor(img.At(40, 40)).Hex; got != "#FF0000" {
		t.Errorf("source modified through extraction: %s", got)
	}

	whole, r := ExtractROI(img, image.Rect(40, 40, 60, 60), false)
	if whole.Bounds().Dx() != 100 || r != image.Rect(0, 0, 100, 100) {
		t.Errorf("inactive ROI should copy whole image, got %v / %v", whole.Bounds(), r)
	}

	empty, r := ExtractROI(img, image.Rect(200, 200, 220, 220), true)
	if !Empty(empty) || !r.Empty() {
		t.Errorf("ROI outside image should be empty, got %v / %v", empty.Bounds(), r)
	}
}

func TestCompositeROI(t *testing.T) {
	img := createInMemoryImage(50, 40, color.White)
	roi := image.Rect(10, 5, 30, 25)

	processed := createInMemoryImage(20, 20, color.RGBA{0, 0, 255, 255})
	out := CompositeROI(img, processed, roi, true, color.Black)

	if out.Bounds() != image.Rect(0, 0, 50, 40) {
		t.Fatalf("composite bounds: got %v", out.Bounds())
	}
	if got := DescribeColor(out.At(15, 10)).Hex; got != "#0000FF" {
		t.Errorf("inside ROI: got %s, want processed blue", got)
	}
	if got := DescribeColor(out.At(2, 2)).Hex; got != "#000000" {
		t.Errorf("outside ROI: got %s, want fill black", got)
	}
	if got := DescribeColor(out.At(30, 25)).Hex; got != "#000000" {
		t.Errorf("ROI max corner is exclusive: got %s", got)
	}
}

func TestCompositeROI_ResizesMismatch(t *testing.T) {
	img := createInMemoryImage(40, 40, color.White)
	mask := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}

	out := CompositeROI(img, mask, image.Rect(0, 0, 20, 20), true, color.Black)
	if got := DescribeColor(out.At(19, 19)).Hex; got != "#FFFFFF" {
		t.Errorf("resized mask should cover the ROI: got %s", got)
	}
	if got := DescribeColor(out.At(20, 20)).Hex; got != "#000000" {
		t.Errorf("outside ROI: got %s", got)
	}
}

func TestCompositeROI_Inactive(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)
	processed := createInMemoryImage(10, 10, color.RGBA{255, 0, 0, 255})

	out := CompositeROI(img, processed, image.Rectangle{}, true, color.Black)
	if got := DescribeColor(out.At(5, 5)).Hex; got != "#FF0000" {
		t.Errorf("inactive ROI should return processed image, got %s", got)
	}
}

func TestEmptyAndClone(t *testing.T) {
	if !Empty(nil) {
		t.Error("nil image should be empty")
	}
	if !Empty(image.NewRGBA(image.Rectangle{})) {
		t.Error("zero-size image should be empty")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) should stay nil")
	}

	src := image.NewRGBA(image.Rect(5, 5, 15, 15))
	c := Clone(src)
	if c.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Errorf("clone bounds: got %v", c.Bounds())
	}
}
