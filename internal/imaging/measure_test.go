package imaging

import (
	"image"
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"horizontal", Pt(0, 0), Pt(100, 0), 100},
		{"vertical", Pt(0, 0), Pt(0, 50), 50},
		{"3-4-5 triangle", Pt(0, 0), Pt(3, 4), 5},
		{"same point", Pt(7.5, 2), Pt(7.5, 2), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance: got %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestAngleDegrees(t *testing.T) {
	tests := []struct {
		to   Point
		want float64
	}{
		{Pt(10, 0), 0},
		{Pt(0, 10), 90},
		{Pt(-10, 0), 180},
		{Pt(0, -10), -90},
		{Pt(10, 10), 45},
	}
	for _, tt := range tests {
		if got := AngleDegrees(Pt(0, 0), tt.to); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngleDegrees to %v: got %.2f, want %.2f", tt.to, got, tt.want)
		}
	}
}

func TestPointHelpers(t *testing.T) {
	p := Pt(1.5, 2.5)

	if got := p.Offset(image.Pt(10, 20)); got != Pt(11.5, 22.5) {
		t.Errorf("Offset: got %v", got)
	}
	if got := p.Add(Pt(1, 1)).Sub(Pt(0.5, 0.5)).Mul(2); got != Pt(4, 6) {
		t.Errorf("Add/Sub/Mul: got %v", got)
	}
	if got := Pt(2.4, 2.6).Image(); got != image.Pt(2, 3) {
		t.Errorf("Image: got %v", got)
	}
	if got := Midpoint(Pt(0, 0), Pt(4, 8)); got != Pt(2, 4) {
		t.Errorf("Midpoint: got %v", got)
	}
	if got := Centroid([]Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}); got != Pt(2, 2) {
		t.Errorf("Centroid: got %v", got)
	}
	if got := Centroid(nil); got != (Point{}) {
		t.Errorf("Centroid(nil): got %v", got)
	}
	if got := Round2(3.14159); got != 3.14 {
		t.Errorf("Round2: got %v", got)
	}
}
