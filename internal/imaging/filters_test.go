package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createSquareImage draws a white square [lo,hi)×[lo,hi) on black.
func createSquareImage(size, lo, hi int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := lo; y < hi; y++ {
		for x := lo; x < hi; x++ {
			img.SetGray(x, y, color.Gray{255})
		}
	}
	return img
}

func TestThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	img.Pix = []uint8{10, 90, 170, 250}

	tests := []struct {
		name   string
		invert bool
		want   []uint8
	}{
		{"normal", false, []uint8{0, 0, 255, 255}},
		{"inverted", true, []uint8{255, 255, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Threshold(img, 128, tt.invert)
			for i, v := range got.Pix[:4] {
				if v != tt.want[i] {
					t.Errorf("pixel %d: got %d, want %d", i, v, tt.want[i])
				}
			}
		})
	}
}

func TestOtsuLevel(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			if x < 10 {
				img.SetGray(x, y, color.Gray{50})
			} else {
				img.SetGray(x, y, color.Gray{200})
			}
		}
	}

	level := OtsuLevel(img)
	if level <= 50 || level > 200 {
		t.Fatalf("Otsu level %d does not separate 50 from 200", level)
	}

	bin := Threshold(img, level, false)
	if bin.GrayAt(0, 0).Y != 0 || bin.GrayAt(19, 0).Y != 255 {
		t.Errorf("Otsu split misclassified the two populations")
	}
}

func TestParseKinds(t *testing.T) {
	if k, err := ParseBlurKind(" Median "); err != nil || k != BlurMedian {
		t.Errorf("ParseBlurKind: got %q, %v", k, err)
	}
	if _, err := ParseBlurKind("bilateral"); err == nil {
		t.Error("unknown blur kind should fail")
	}
	if op, err := ParseMorphOp("CLOSE"); err != nil || op != MorphClose {
		t.Errorf("ParseMorphOp: got %q, %v", op, err)
	}
	if _, err := ParseMorphOp("skeletonize"); err == nil {
		t.Error("unknown morphology op should fail")
	}
}

func TestBlur(t *testing.T) {
	img := createInMemoryImage(20, 20, color.Gray{100})

	for _, kind := range []BlurKind{BlurGaussian, BlurBox, BlurMedian} {
		t.Run(string(kind), func(t *testing.T) {
			out := Blur(img, kind, 2)
			if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 20 {
				t.Fatalf("size changed: %v", out.Bounds())
			}
			if g := ToGray(out).At(10, 10); math.Abs(g-100) > 1.5 {
				t.Errorf("uniform image should stay ~100 after blur, got %.1f", g)
			}
		})
	}

	if out := Blur(img, BlurGaussian, 0); ToGray(out).At(0, 0) != 100 {
		t.Error("zero radius should return the image unchanged")
	}
}

func TestMorphology(t *testing.T) {
	img := createSquareImage(30, 10, 20)

	eroded := ToGray(Morphology(img, MorphErode, 1, 1))
	if eroded.At(10, 10) != 0 {
		t.Error("erode should remove the square's corner")
	}
	if eroded.At(15, 15) != 255 {
		t.Error("erode should keep the square's interior")
	}

	dilated := ToGray(Morphology(img, MorphDilate, 1, 1))
	if dilated.At(9, 15) != 255 {
		t.Error("dilate should grow the square")
	}
	if dilated.At(2, 2) != 0 {
		t.Error("dilate should not touch far background")
	}

	more := ToGray(Morphology(img, MorphErode, 1, 3))
	if countAbove(more, 128) >= countAbove(eroded, 128) {
		t.Error("more iterations should erode further")
	}

	opened := ToGray(Morphology(img, MorphOpen, 1, 1))
	if opened.At(15, 15) != 255 || opened.At(2, 2) != 0 {
		t.Error("open should preserve a large square")
	}
}

// createStepImage is black left of column edge and white from it on.
func createStepImage(w, h, edge int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := edge; x < w; x++ {
			img.SetGray(x, y, color.Gray{255})
		}
	}
	return img
}

func TestSobel(t *testing.T) {
	mag := Sobel(createStepImage(40, 20, 20))
	if mag.Bounds().Dx() != 40 || mag.Bounds().Dy() != 20 {
		t.Fatalf("bounds: %v", mag.Bounds())
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			v := mag.GrayAt(x, y).Y
			onStep := x == 19 || x == 20
			if onStep && v == 0 {
				t.Fatalf("(%d,%d): no response on the step", x, y)
			}
			if !onStep && v != 0 {
				t.Fatalf("(%d,%d): response %d away from the step", x, y, v)
			}
		}
	}
}

func TestGrayHistogram(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	img.Pix = []uint8{10, 10, 30, 30}

	h := GrayHistogram(img)
	if len(h.Bins) != 256 {
		t.Fatalf("bins: got %d, want 256", len(h.Bins))
	}
	if h.Bins[10] != 2 || h.Bins[30] != 2 {
		t.Errorf("bin counts wrong: [10]=%d [30]=%d", h.Bins[10], h.Bins[30])
	}
	if h.Min != 10 || h.Max != 30 || h.Total != 4 {
		t.Errorf("min/max/total: got %d/%d/%d", h.Min, h.Max, h.Total)
	}
	if math.Abs(h.Mean-20) > 1e-9 || math.Abs(h.StdDev-10) > 1e-9 {
		t.Errorf("mean/stddev: got %.3f/%.3f, want 20/10", h.Mean, h.StdDev)
	}
}

func TestRotateKeepSize(t *testing.T) {
	img := createSquareImage(40, 10, 30)

	rot := RotateKeepSize(img, 90)
	if rot.Bounds().Dx() != 40 || rot.Bounds().Dy() != 40 {
		t.Fatalf("rotation must keep size, got %v", rot.Bounds())
	}
	// A centred square is symmetric under a quarter turn.
	if ToGray(rot).At(20, 20) < 200 || ToGray(rot).At(2, 2) > 50 {
		t.Error("centred square should map onto itself")
	}
}

func countAbove(g *Gray, level float64) int {
	n := 0
	for _, v := range g.Pix {
		if v > level {
			n++
		}
	}
	return n
}
