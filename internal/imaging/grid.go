package imaging

import (
	"fmt"
	"image/color"
)

// Grid draws a coordinate grid over the canvas with lines every spacing
// pixels. When labels is set each intersection gets an "x,y" tag on a dark
// background. A non-positive spacing draws nothing.
func (c *Canvas) Grid(spacing int, gridColor color.Color, labels bool) {
	if spacing <= 0 {
		return
	}
	b := c.img.Bounds()
	width, height := b.Dx(), b.Dy()

	// Draw vertical lines
	for x := spacing; x < width; x += spacing {
		for y := 0; y < height; y++ {
			c.img.Set(x, y, gridColor)
		}
	}

	// Draw horizontal lines
	for y := spacing; y < height; y += spacing {
		for x := 0; x < width; x++ {
			c.img.Set(x, y, gridColor)
		}
	}

	if labels {
		labelColor := color.RGBA{255, 255, 255, 255}
		bgColor := color.RGBA{0, 0, 0, 180}

		for y := spacing; y < height; y += spacing {
			for x := spacing; x < width; x += spacing {
				c.TextBox(Pt(float64(x+2), float64(y+2)), fmt.Sprintf("%d,%d", x, y), labelColor, bgColor)
			}
		}
	}
}
