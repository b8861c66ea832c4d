package imaging

import (
	"image"
	"math"
)

// Canny performs Canny edge detection and returns a binary image where edge
// pixels are 255 and everything else is 0.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - thresholdLow: Gradient magnitude (0-255 scale) below which pixels are
//     discarded. Typical value: 50.
//   - thresholdHigh: Gradient magnitude above which pixels are always kept.
//     Typical value: 150.
//
// # Algorithm
//
//  1. Grayscale conversion with ITU-R BT.601 weights
//  2. 5x5 Gaussian blur (see GaussianBlur5)
//  3. Sobel gradients: magnitude = sqrt(Gx² + Gy²), direction = atan2(Gy, Gx)
//  4. Non-maximum suppression along the quantised gradient direction
//  5. Hysteresis: strong pixels are kept, weak pixels only when 8-connected
//     to a strong one
//
// Magnitudes are normalised so that a full black-to-white step produces a
// value comparable to the 0-255 thresholds.
func Canny(img image.Image, thresholdLow, thresholdHigh float64) *image.Gray {
	g := ToGray(img)
	out := image.NewGray(image.Rect(0, 0, g.W, g.H))
	if g.Empty() {
		return out
	}
	width, height := g.W, g.H

	blurred := GaussianBlur5(g)
	gx, gy := sobel(blurred)

	magnitude := make([]float64, width*height)
	for i := range magnitude {
		// The 3x3 Sobel kernel has a gain of 4 on a unit step.
		magnitude[i] = math.Hypot(gx[i], gy[i]) / 4
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			angle := math.Atan2(gy[i], gx[i])
			mag := magnitude[i]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8):
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			default:
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis. Strong pixels seed a
	// flood through connected weak pixels.
	stack := make([]int, 0, 64)
	for i, v := range suppressed {
		if v >= thresholdHigh && out.Pix[i] == 0 {
			out.Pix[i] = 255
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%width, p/width
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					nx, ny := px+kx, py+ky
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					n := ny*width + nx
					if out.Pix[n] == 0 && suppressed[n] >= thresholdLow {
						out.Pix[n] = 255
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return out
}

// sobel returns the horizontal and vertical Sobel responses of g with
// replicated borders.
func sobel(g *Gray) (gx, gy []float64) {
	width, height := g.W, g.H
	gx = make([]float64, width*height)
	gy = make([]float64, width*height)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sx, sy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := g.At(x+kx, y+ky)
					sx += v * sobelX[ky+1][kx+1]
					sy += v * sobelY[ky+1][kx+1]
				}
			}
			gx[y*width+x] = sx
			gy[y*width+x] = sy
		}
	}
	return gx, gy
}

// GaussianBlur5 applies a 5x5 Gaussian blur.
//
// Uses a standard 5x5 Gaussian kernel with sigma ≈ 1.4:
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// Total kernel sum = 273, used for normalization.
// Border pixels use clamped (replicated) edge values.
func GaussianBlur5(g *Gray) *Gray {
	kernel := [5][5]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	const kernelSum = 273.0

	result := NewGray(g.W, g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					sum += g.At(x+kx, y+ky) * kernel[ky+2][kx+2]
				}
			}
			result.Pix[y*g.W+x] = sum / kernelSum
		}
	}
	return result
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
