package tools

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/vision-job/internal/detection"
	"github.com/ironsheep/vision-job/internal/vision"
)

func TestBlobTool_TwoDisks(t *testing.T) {
	r := vision.Run(NewBlobTool(), createTwoDiskImage())
	if !r.Success {
		t.Fatalf("failed: %s", r.Message)
	}
	if n := dataFloat(t, r, "BlobCount"); n != 2 {
		t.Fatalf("BlobCount: got %v, want 2", n)
	}
	blobs, ok := vision.RecordsAs[detection.Blob](r.Data["Blobs"])
	if !ok || len(blobs) != 2 {
		t.Fatalf("Blobs record list: %v", r.Data["Blobs"])
	}
	for i, rad := range []float64{30, 20} {
		want := math.Pi * rad * rad
		if math.Abs(blobs[i].Area-want)/want > 0.08 {
			t.Errorf("blob %d: area %v, want near %v", i, blobs[i].Area, want)
		}
	}
	if blobs[0].Area < blobs[1].Area {
		t.Error("blobs should be sorted by area, largest first")
	}

	if cx := dataFloat(t, r, vision.KeyCenterX); !near(cx, 50, 0.5) {
		t.Errorf("CenterX: %v", cx)
	}
	rect, ok := r.Data[vision.KeyBoundingRect].Rect()
	if !ok || rect != image.Rect(20, 30, 81, 91) {
		t.Errorf("BoundingRect: %v", rect)
	}
	if total := dataFloat(t, r, "TotalArea"); !near(total, blobs[0].Area+blobs[1].Area, 1e-9) {
		t.Errorf("TotalArea: %v", total)
	}
	if !r.HasOutput() || !r.HasOverlay() {
		t.Error("blob tool should return its mask and an overlay")
	}
	if len(r.Graphics) == 0 {
		t.Error("expected blob graphics")
	}
}

func TestBlobTool_ROIReportsAbsoluteCoordinates(t *testing.T) {
	tool := NewBlobTool()
	mustConfigure(t, tool, vision.Params{
		"use_roi": true,
		"roi":     vision.RectParam{X: 100, Y: 0, Width: 100, Height: 120},
	})
	r := vision.Run(tool, createTwoDiskImage())
	if !r.Success {
		t.Fatalf("failed: %s", r.Message)
	}
	if n := dataFloat(t, r, "BlobCount"); n != 1 {
		t.Fatalf("BlobCount: got %v, want 1", n)
	}
	if cx := dataFloat(t, r, vision.KeyCenterX); !near(cx, 140, 0.5) {
		t.Errorf("CenterX should be absolute, got %v", cx)
	}
	if b := r.Output.Bounds(); b.Dx() != 200 || b.Dy() != 120 {
		t.Errorf("mask should be composited to full size, got %v", b)
	}
}

func TestBlobTool_NoBlobs(t *testing.T) {
	r := vision.Run(NewBlobTool(), createTestImage(50, 50, color.Black))
	if r.Success || r.Failure != vision.NoDetection {
		t.Fatalf("got success=%v failure=%v", r.Success, r.Failure)
	}
	if dataFloat(t, r, "BlobCount") != 0 {
		t.Error("BlobCount should be 0")
	}
	if _, ok := r.Data[vision.KeyCenterX]; ok {
		t.Error("no centre without blobs")
	}
}

func TestBlobTool_Filters(t *testing.T) {
	tests := []struct {
		name string
		p    vision.Params
		want float64
	}{
		{"defaults", nil, 2},
		{"area floor", vision.Params{"min_area": 1500}, 1},
		{"max count", vision.Params{"max_count": 1}, 1},
		{"inverted", vision.Params{"invert": true}, 1},
		{"pre-binarised", vision.Params{"use_internal_threshold": false}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := NewBlobTool()
			mustConfigure(t, tool, tt.p)
			r := vision.Run(tool, createTwoDiskImage())
			if got := dataFloat(t, r, "BlobCount"); got != tt.want {
				t.Errorf("BlobCount: got %v, want %v", got, tt.want)
			}
		})
	}
}
