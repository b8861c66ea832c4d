package detection

import (
	"image"
	"math/rand"
	"testing"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// randomPattern returns a w×h patch of per-pixel random intensities in 50..255.
func randomPattern(w, h int, seed int64) *vimg.Gray {
	rng := rand.New(rand.NewSource(seed))
	return grayFrom(w, h, func(int, int) float64 { return float64(50 + rng.Intn(206)) })
}

// paste copies src into dst with its top-left corner at (x, y).
func paste(dst, src *vimg.Gray, x, y int) {
	for sy := 0; sy < src.H; sy++ {
		for sx := 0; sx < src.W; sx++ {
			dst.Set(x+sx, y+sy, src.At(sx, sy))
		}
	}
}

// crop copies the w×h region at (x, y).
func crop(src *vimg.Gray, x, y, w, h int) *vimg.Gray {
	return grayFrom(w, h, func(cx, cy int) float64 { return src.At(x+cx, y+cy) })
}

func TestCorrelate_FindsCrop(t *testing.T) {
	img := randomPattern(80, 60, 1)
	tmpl := crop(img, 30, 20, 16, 12)

	for _, m := range []MatchMethod{SqDiff, SqDiffNormed, CCorrNormed, CCoeffNormed} {
		t.Run(string(m), func(t *testing.T) {
			scores, err := Correlate(img, tmpl, m)
			if err != nil {
				t.Fatalf("Correlate: %v", err)
			}
			if scores.W != 65 || scores.H != 49 {
				t.Errorf("score map %dx%d, want 65x49", scores.W, scores.H)
			}
			x, y, s := scores.Best()
			if x != 30 || y != 20 {
				t.Errorf("best at (%d,%d), want (30,20)", x, y)
			}
			if !near(s, 1, 1e-6) {
				t.Errorf("exact match should score 1, got %v", s)
			}
		})
	}
}

func TestCorrelate_Errors(t *testing.T) {
	img := randomPattern(20, 20, 2)
	if _, err := Correlate(img, randomPattern(21, 5, 3), CCoeffNormed); err == nil {
		t.Error("template wider than image should fail")
	}
	if _, err := Correlate(vimg.NewGray(0, 0), img, CCoeffNormed); err == nil {
		t.Error("empty image should fail")
	}
}

func TestCorrelate_FlatTemplateScoresZero(t *testing.T) {
	img := randomPattern(30, 30, 4)
	flat := grayFrom(8, 8, func(int, int) float64 { return 100 })
	scores, err := Correlate(img, flat, CCoeffNormed)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range scores.Score {
		if s != 0 {
			t.Fatalf("zero-variance template should score 0, got %v", s)
		}
	}
}

func TestFindTemplate_Simple(t *testing.T) {
	pattern := randomPattern(16, 16, 5)
	img := vimg.NewGray(120, 80)
	paste(img, pattern, 10, 10)
	paste(img, pattern, 70, 40)

	matches, err := FindTemplate(img, pattern, DefaultTemplateOptions())
	if err != nil {
		t.Fatalf("FindTemplate: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches %+v, want 2", len(matches), matches)
	}
	found := map[image.Point]bool{}
	for _, m := range matches {
		found[image.Pt(m.X, m.Y)] = true
		if m.Score < 0.99 || m.Width != 16 || m.Scale != 1 {
			t.Errorf("match: %+v", m)
		}
	}
	if !found[image.Pt(10, 10)] || !found[image.Pt(70, 40)] {
		t.Errorf("wrong positions: %v", found)
	}
	if c := matches[0].Center; c != vimg.Pt(float64(matches[0].X)+8, float64(matches[0].Y)+8) {
		t.Errorf("center: %v", c)
	}

	opts := DefaultTemplateOptions()
	opts.MaxResults = 1
	if matches, _ := FindTemplate(img, pattern, opts); len(matches) != 1 {
		t.Errorf("max results: got %d", len(matches))
	}

	opts = DefaultTemplateOptions()
	other := randomPattern(16, 16, 6)
	if matches, _ := FindTemplate(img, other, opts); len(matches) != 0 {
		t.Errorf("unrelated pattern matched: %+v", matches)
	}
}

func TestFindTemplate_MultiScale(t *testing.T) {
	pattern := randomPattern(20, 20, 7)
	img := vimg.NewGray(100, 80)
	paste(img, pattern, 40, 30)

	opts := DefaultTemplateOptions()
	opts.MultiScale = true
	opts.Rotation = true
	matches, err := FindTemplate(img, pattern, opts)
	if err != nil {
		t.Fatalf("FindTemplate: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	best := matches[0]
	if best.X != 40 || best.Y != 30 || !near(best.Scale, 1, 1e-9) || best.Angle != 0 {
		t.Errorf("best: %+v", best)
	}
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	tests := []struct {
		b    image.Rectangle
		want float64
	}{
		{image.Rect(0, 0, 10, 10), 1},
		{image.Rect(5, 0, 15, 10), 50.0 / 150.0},
		{image.Rect(20, 20, 30, 30), 0},
	}
	for _, tt := range tests {
		if got := IoU(a, tt.b); !near(got, tt.want, 1e-12) {
			t.Errorf("IoU(%v, %v) = %v, want %v", a, tt.b, got, tt.want)
		}
	}
}

func TestNMS(t *testing.T) {
	ms := []Match{
		{X: 0, Y: 0, Width: 10, Height: 10, Score: 0.7},
		{X: 2, Y: 0, Width: 10, Height: 10, Score: 0.9},
		{X: 4, Y: 0, Width: 10, Height: 10, Score: 0.8},
		{X: 50, Y: 50, Width: 10, Height: 10, Score: 0.6},
	}

	kept := NMS(ms, NMSThreshold)
	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			if IoU(kept[i].Rect(), kept[j].Rect()) > NMSThreshold {
				t.Errorf("kept overlapping pair %+v %+v", kept[i], kept[j])
			}
		}
	}
	if kept[0].Score != 0.9 {
		t.Errorf("best must come first: %+v", kept[0])
	}

	if got := NMS(ms[:3], 0); len(got) != 1 || got[0].Score != 0.9 {
		t.Errorf("threshold 0 should keep only the best of an overlapping set: %+v", got)
	}
	if got := NMS(ms, 1); len(got) != len(ms) {
		t.Errorf("threshold 1 should keep everything: %d", len(got))
	}
}

func TestSteps(t *testing.T) {
	got := Steps(0.8, 1.2, 0.1)
	if len(got) != 5 || !near(got[4], 1.2, 1e-9) {
		t.Errorf("scales: %v", got)
	}
	if got := Steps(-15, 15, 5); len(got) != 7 || got[3] != 0 {
		t.Errorf("angles: %v", got)
	}
	if got := Steps(1, 2, 0); len(got) != 1 || got[0] != 1 {
		t.Errorf("zero step: %v", got)
	}
}
