package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/segment"
	"github.com/anthonynsimon/bild/transform"
)

// BlurKind selects the smoothing kernel used by Blur.
type BlurKind string

const (
	BlurGaussian BlurKind = "gaussian"
	BlurBox      BlurKind = "box"
	BlurMedian   BlurKind = "median"
)

// ParseBlurKind accepts a case-insensitive kernel name.
func ParseBlurKind(s string) (BlurKind, error) {
	switch k := BlurKind(strings.ToLower(strings.TrimSpace(s))); k {
	case BlurGaussian, BlurBox, BlurMedian:
		return k, nil
	}
	return "", fmt.Errorf("unknown blur kind %q", s)
}

// Grayscale converts img to an 8-bit single-channel image with the same
// BT.601 weights as ToGray.
func Grayscale(img image.Image) *image.Gray {
	return ToGray(img).Image()
}

// Blur smooths img with the given kernel. A non-positive radius returns the
// image unchanged.
func Blur(img image.Image, kind BlurKind, radius float64) image.Image {
	if radius <= 0 {
		return Clone(img)
	}
	switch kind {
	case BlurBox:
		return blur.Box(img, radius)
	case BlurMedian:
		return effect.Median(img, radius)
	default:
		return blur.Gaussian(img, radius)
	}
}

// Threshold binarises img. Pixels whose gray level is at or above level become
// white (255) and the rest black, or the reverse when invert is set.
func Threshold(img image.Image, level uint8, invert bool) *image.Gray {
	bin := segment.Threshold(Grayscale(img), level)
	if invert {
		return Grayscale(effect.Invert(bin))
	}
	return bin
}

// OtsuLevel picks the threshold that maximises between-class variance of the
// gray-level histogram of img.
func OtsuLevel(img image.Image) uint8 {
	hist := histogram.NewRGBAHistogram(Grayscale(img))
	bins := hist.R.Bins

	total := 0
	var sumAll float64
	for i, c := range bins {
		total += c
		sumAll += float64(i * c)
	}
	if total == 0 {
		return 128
	}

	var sumB, wB float64
	best, level := -1.0, 0
	for t, c := range bins {
		wB += float64(c)
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * c)
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = t
		}
	}
	// Threshold keeps values >= level, Otsu's split puts t itself in the
	// background class.
	if level < 255 {
		level++
	}
	return uint8(level)
}

// MorphOp names a binary morphology operation.
type MorphOp string

const (
	MorphErode  MorphOp = "erode"
	MorphDilate MorphOp = "dilate"
	MorphOpen   MorphOp = "open"
	MorphClose  MorphOp = "close"
)

// ParseMorphOp accepts a case-insensitive operation name.
func ParseMorphOp(s string) (MorphOp, error) {
	switch op := MorphOp(strings.ToLower(strings.TrimSpace(s))); op {
	case MorphErode, MorphDilate, MorphOpen, MorphClose:
		return op, nil
	}
	return "", fmt.Errorf("unknown morphology operation %q", s)
}

// Morphology applies op with a disk of the given radius, repeated iterations
// times. Open is erode then dilate and Close is dilate then erode.
func Morphology(img image.Image, op MorphOp, radius float64, iterations int) image.Image {
	if iterations < 1 {
		iterations = 1
	}
	var out image.Image = img
	apply := func(f func(image.Image, float64) *image.RGBA) {
		for i := 0; i < iterations; i++ {
			out = f(out, radius)
		}
	}
	switch op {
	case MorphErode:
		apply(effect.Erode)
	case MorphDilate:
		apply(effect.Dilate)
	case MorphOpen:
		apply(effect.Erode)
		apply(effect.Dilate)
	case MorphClose:
		apply(effect.Dilate)
		apply(effect.Erode)
	}
	return out
}

// Sobel returns the gradient magnitude image of img.
func Sobel(img image.Image) *image.Gray {
	return Grayscale(effect.Sobel(img))
}

// HistogramStats summarises the gray-level distribution of an image.
type HistogramStats struct {
	Bins   []int   `json:"bins"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Total  int     `json:"total"`
}

// GrayHistogram computes a 256-bin gray-level histogram of img together with
// basic statistics. An empty image reports Min and Max of zero.
func GrayHistogram(img image.Image) HistogramStats {
	h := histogram.NewRGBAHistogram(Grayscale(img))
	stats := HistogramStats{Bins: append([]int(nil), h.R.Bins...), Min: -1}

	var sum float64
	for v, c := range stats.Bins {
		if c == 0 {
			continue
		}
		if stats.Min < 0 {
			stats.Min = v
		}
		stats.Max = v
		stats.Total += c
		sum += float64(v * c)
	}
	if stats.Total == 0 {
		stats.Min = 0
		return stats
	}
	stats.Mean = sum / float64(stats.Total)

	var sq float64
	for v, c := range stats.Bins {
		d := float64(v) - stats.Mean
		sq += d * d * float64(c)
	}
	stats.StdDev = math.Sqrt(sq / float64(stats.Total))
	return stats
}

// RotateKeepSize rotates img counter-clockwise by angle degrees about its
// centre, keeping the original canvas size. Uncovered corners are transparent.
func RotateKeepSize(img image.Image, angle float64) image.Image {
	if angle == 0 {
		return Clone(img)
	}
	return transform.Rotate(img, -angle, &transform.RotationOptions{ResizeBounds: false})
}
