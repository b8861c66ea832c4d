package pipeline

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/vision-job/internal/detection"
	"github.com/ironsheep/vision-job/internal/tools"
	"github.com/ironsheep/vision-job/internal/vision"
)

func fillDisk(img *image.RGBA, cx, cy, r int, c color.Color) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				img.Set(x, y, c)
			}
		}
	}
}

func twoDisks() *image.RGBA {
	img := solid(200, 120, color.RGBA{20, 20, 20, 255})
	fillDisk(img, 50, 60, 30, color.White)
	fillDisk(img, 140, 60, 20, color.White)
	return img
}

func TestPipeline_ThresholdThenBlob(t *testing.T) {
	threshold := tools.NewThresholdTool()
	blob := tools.NewBlobTool()
	p := New()
	_ = p.AddTool(threshold)
	_ = p.AddTool(blob)
	p.SetImage(twoDisks())

	s, err := p.Run()
	if err != nil {
		t.Fatal(err)
	}
	if !s.Success {
		for _, r := range s.Results {
			t.Logf("%s: %s", r.ToolName, r.Message)
		}
		t.Fatal("run failed")
	}

	r, ok := p.Result(blob.ID)
	if !ok {
		t.Fatal("no blob result")
	}
	blobs, ok := vision.RecordsAs[detection.Blob](r.Data["Blobs"])
	if !ok || len(blobs) != 2 {
		t.Fatalf("blobs: %v", r.Data["Blobs"])
	}
	for i, rad := range []float64{30, 20} {
		want := math.Pi * rad * rad
		if math.Abs(blobs[i].Area-want)/want > 0.08 {
			t.Errorf("blob %d: area %v, want near %v", i, blobs[i].Area, want)
		}
	}
	if s.Overlay == nil {
		t.Error("blob overlay should be published")
	}
}

func TestPipeline_CoordinatesFollowBlob(t *testing.T) {
	finder := tools.NewBlobTool()
	follower := tools.NewBlobTool()
	p := New()
	_ = p.AddTool(finder)
	_ = p.AddTool(follower)
	mustConnect(t, p, finder, follower, CoordinatesConnection)
	p.SetImage(twoDisks())

	if _, err := p.Run(); err != nil {
		t.Fatal(err)
	}
	if follower.ROI != image.Rect(20, 30, 81, 91) || !follower.UseROI {
		t.Fatalf("follower roi: %v", follower.ROI)
	}
	r, _ := p.Result(follower.ID)
	if n, _ := r.Float("BlobCount"); n != 1 {
		t.Errorf("follower should see only the large disk, got %v blobs", n)
	}
	if cx, _ := r.Float(vision.KeyCenterX); math.Abs(cx-50) > 0.5 {
		t.Errorf("CenterX should be absolute, got %v", cx)
	}
}

func TestPipeline_UntrainedMatcherSkipsDependents(t *testing.T) {
	matcher := tools.NewTemplateMatchTool()
	histogram := tools.NewHistogramTool()
	p := New()
	_ = p.AddTool(matcher)
	_ = p.AddTool(histogram)
	mustConnect(t, p, matcher, histogram, ResultConnection)
	p.SetImage(twoDisks())

	s, _ := p.Run()
	if s.Success {
		t.Fatal("run should fail")
	}
	if s.Results[0].Failure != vision.ConfigurationIncomplete {
		t.Errorf("matcher: %+v", s.Results[0])
	}
	if s.Results[1].Failure != vision.UpstreamFailed {
		t.Errorf("histogram: %+v", s.Results[1])
	}
}
