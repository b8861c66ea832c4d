package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates a solid color image in memory.
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createQuadrantImage fills the four quadrants red, green, blue and white.
func createQuadrantImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			switch {
			case x < width/2 && y < height/2:
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			case y < height/2:
				img.Set(x, y, color.RGBA{0, 255, 0, 255})
			case x < width/2:
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			default:
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func TestDescribeColor(t *testing.T) {
	tests := []struct {
		name  string
		c     color.Color
		hex   string
		h, s  int
		light int
	}{
		{"red", color.RGBA{255, 0, 0, 255}, "#FF0000", 0, 100, 50},
		{"green", color.RGBA{0, 255, 0, 255}, "#00FF00", 120, 100, 50},
		{"blue", color.RGBA{0, 0, 255, 255}, "#0000FF", 240, 100, 50},
		{"white", color.White, "#FFFFFF", 0, 0, 100},
		{"black", color.Black, "#000000", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DescribeColor(tt.c)
			if got.Hex != tt.hex {
				t.Errorf("Hex: got %s, want %s", got.Hex, tt.hex)
			}
			if abs(got.HSL.H-tt.h) > 1 || abs(got.HSL.S-tt.s) > 1 || abs(got.HSL.L-tt.light) > 1 {
				t.Errorf("HSL: got %+v, want (%d,%d,%d)", got.HSL, tt.h, tt.s, tt.light)
			}
		})
	}
}

func TestSampleColor(t *testing.T) {
	img := createQuadrantImage(100, 100)

	got, err := SampleColor(img, 75, 25)
	if err != nil {
		t.Fatalf("SampleColor failed: %v", err)
	}
	if got.Hex != "#00FF00" {
		t.Errorf("top-right: got %s, want #00FF00", got.Hex)
	}

	for _, p := range []image.Point{{-1, 0}, {0, -1}, {100, 0}, {0, 100}} {
		if _, err := SampleColor(img, p.X, p.Y); err == nil {
			t.Errorf("SampleColor(%d,%d) should fail", p.X, p.Y)
		}
	}
}

func TestMeanColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{0, 0, 0, 255})
	img.Set(1, 0, color.RGBA{200, 100, 50, 255})

	got := MeanColor(img)
	if got.RGB != (RGBColor{100, 50, 25}) {
		t.Errorf("MeanColor: got %+v, want {100 50 25}", got.RGB)
	}
}

func TestDominantColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 7 {
				img.Set(x, y, color.RGBA{250, 250, 250, 255})
			} else {
				img.Set(x, y, color.RGBA{10, 10, 200, 255})
			}
		}
	}

	colors := DominantColors(img, 5)
	if len(colors) != 2 {
		t.Fatalf("expected 2 colors, got %d", len(colors))
	}
	if colors[0].Hex != "#F0F0F0" || absFloat(colors[0].Percentage-70) > 1e-9 {
		t.Errorf("first color: got %s %.1f%%, want #F0F0F0 70%%", colors[0].Hex, colors[0].Percentage)
	}
	if colors[1].Hex != "#0000C0" {
		t.Errorf("second color: got %s, want #0000C0", colors[1].Hex)
	}

	if got := DominantColors(img, 1); len(got) != 1 {
		t.Errorf("count limit: got %d colors, want 1", len(got))
	}
}

func TestPaletteColor(t *testing.T) {
	if PaletteColor(0) != Green {
		t.Errorf("PaletteColor(0): got %v, want green", PaletteColor(0))
	}
	if PaletteColor(1) != Blue {
		t.Errorf("PaletteColor(1): got %v, want blue", PaletteColor(1))
	}
	if PaletteColor(8) != PaletteColor(0) {
		t.Error("palette should cycle after 8 entries")
	}
	if PaletteColor(-3) != PaletteColor(3) {
		t.Error("negative indexes should not panic")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00ff00", color.RGBA{0, 255, 0, 255}, false},
		{"#00F", color.RGBA{0, 0, 255, 255}, false},
		{"#FFFFFF00", color.RGBA{0, 0, 0, 0}, false},
		{"", color.RGBA{}, true},
		{"#GG0000", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHexColor(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexColor(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHexColor(%q): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
