package tools

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/vision-job/internal/vision"
)

// stepImage is black left of x=50 and white from there on.
func stepImage() *image.RGBA {
	img := createTestImage(100, 40, color.Black)
	fillRect(img, 50, 0, 100, 40, color.White)
	return img
}

// barImage is a white bar on [30,70) over black.
func barImage() *image.RGBA {
	img := createTestImage(100, 40, color.Black)
	fillRect(img, 30, 0, 70, 40, color.White)
	return img
}

func caliperAlong(y float64) vision.Params {
	return vision.Params{"start_x": 0, "start_y": y, "end_x": 100, "end_y": y}
}

func TestCaliperTool_SingleEdge(t *testing.T) {
	tool := NewCaliperTool()
	mustConfigure(t, tool, caliperAlong(20))

	r := vision.Run(tool, stepImage())
	if !r.Success {
		t.Fatalf("failed: %s", r.Message)
	}
	if x := dataFloat(t, r, "EdgeX"); !near(x, 49.5, 1e-9) {
		t.Errorf("EdgeX: got %v, want 49.5", x)
	}
	if y := dataFloat(t, r, "EdgeY"); y != 20 {
		t.Errorf("EdgeY: %v", y)
	}
	if p, _ := r.Data["EdgePolarity"].Str(); p != "dark_to_light" {
		t.Errorf("EdgePolarity: %q", p)
	}
	if dataFloat(t, r, "EdgeCount") != 1 {
		t.Errorf("EdgeCount: %v", r.Data["EdgeCount"])
	}
	if r.HasOutput() {
		t.Error("caliper must not replace the working image")
	}
}

func TestCaliperTool_ROIOffset(t *testing.T) {
	tool := NewCaliperTool()
	mustConfigure(t, tool, vision.Params{
		"use_roi": true,
		"roi":     vision.RectParam{X: 20, Y: 0, Width: 80, Height: 40},
		"start_x": 0, "start_y": 20, "end_x": 80, "end_y": 20,
	})
	r := vision.Run(tool, stepImage())
	if !r.Success {
		t.Fatalf("failed: %s", r.Message)
	}
	if x := dataFloat(t, r, "EdgeX"); !near(x, 49.5, 1e-9) {
		t.Errorf("EdgeX should be absolute: got %v", x)
	}
}

func TestCaliperTool_EdgePair(t *testing.T) {
	tool := NewCaliperTool()
	p := caliperAlong(20)
	p["mode"] = ModeEdgePair
	p["polarity"] = "any"
	p["expected_width"] = 40
	p["tolerance"] = 5
	mustConfigure(t, tool, p)

	r := vision.Run(tool, barImage())
	if !r.Success {
		t.Fatalf("failed: %s", r.Message)
	}
	if w := dataFloat(t, r, "Width"); w != 40 {
		t.Errorf("Width: %v", w)
	}
	if cx := dataFloat(t, r, vision.KeyCenterX); !near(cx, 49.5, 1e-9) {
		t.Errorf("CenterX: %v", cx)
	}
	if e1, e2 := dataFloat(t, r, "Edge1X"), dataFloat(t, r, "Edge2X"); e1 >= e2 {
		t.Errorf("edges out of order: %v %v", e1, e2)
	}

	mustConfigure(t, tool, vision.Params{"expected_width": 10})
	r = vision.Run(tool, barImage())
	if r.Success || r.Failure != vision.NoDetection {
		t.Errorf("no pair near 10px: success=%v failure=%v", r.Success, r.Failure)
	}
}

func TestCaliperTool_Failures(t *testing.T) {
	flat := vision.Run(NewCaliperTool(), createTestImage(100, 40, color.Gray{Y: 90}))
	if flat.Success || flat.Failure != vision.NoDetection {
		t.Errorf("flat image: success=%v failure=%v", flat.Success, flat.Failure)
	}
	if !flat.HasOverlay() {
		t.Error("a failed search still draws its region")
	}

	short := NewCaliperTool()
	mustConfigure(t, short, vision.Params{"end_x": 0.5})
	r := vision.Run(short, stepImage())
	if r.Success || r.Failure != vision.ComputationFault {
		t.Errorf("short segment: success=%v failure=%v", r.Success, r.Failure)
	}
}

func TestLineFitTool(t *testing.T) {
	img := createTestImage(120, 100, color.Black)
	fillRect(img, 0, 50, 120, 100, color.White)

	tool := NewLineFitTool()
	mustConfigure(t, tool, vision.Params{"start_x": 10, "start_y": 50, "end_x": 110, "end_y": 50})
	r := vision.Run(tool, img)
	if !r.Success {
		t.Fatalf("failed: %s", r.Message)
	}
	if n := dataFloat(t, r, "PointCount"); n != 5 {
		t.Errorf("PointCount: %v", n)
	}
	if a := dataFloat(t, r, "Angle"); math.Abs(a) > 0.01 {
		t.Errorf("Angle: %v", a)
	}
	if y := dataFloat(t, r, "StartY"); !near(y, 49.5, 1e-6) {
		t.Errorf("StartY: %v", y)
	}
	if res := dataFloat(t, r, "Residual"); res > 1e-6 {
		t.Errorf("Residual: %v", res)
	}

	blank := vision.Run(tool, createTestImage(120, 100, color.Black))
	if blank.Success || blank.Failure != vision.NoDetection {
		t.Errorf("blank image: success=%v failure=%v", blank.Success, blank.Failure)
	}
}

func TestCircleFitTool(t *testing.T) {
	img := createTestImage(120, 120, color.Black)
	fillDisk(img, 60, 60, 30, color.White)

	tool := NewCircleFitTool()
	mustConfigure(t, tool, vision.Params{"center_x": 58, "center_y": 61, "radius": 28, "caliper_length": 20})
	r := vision.Run(tool, img)
	if !r.Success {
		t.Fatalf("failed: %s", r.Message)
	}
	cx, cy := dataFloat(t, r, vision.KeyCenterX), dataFloat(t, r, vision.KeyCenterY)
	if !near(cx, 60, 1) || !near(cy, 60, 1) {
		t.Errorf("centre: (%v, %v)", cx, cy)
	}
	if rad := dataFloat(t, r, "Radius"); !near(rad, 30, 1.5) {
		t.Errorf("Radius: %v", rad)
	}
	if n := dataFloat(t, r, "PointCount"); n != 12 {
		t.Errorf("PointCount: %v", n)
	}
}
