package detection

import (
	"fmt"
	"math"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// MatchMethod is a template correlation measure with OpenCV semantics.
type MatchMethod string

const (
	SqDiff       MatchMethod = "sqdiff"
	SqDiffNormed MatchMethod = "sqdiff_normed"
	CCorr        MatchMethod = "ccorr"
	CCorrNormed  MatchMethod = "ccorr_normed"
	CCoeff       MatchMethod = "ccoeff"
	CCoeffNormed MatchMethod = "ccoeff_normed"
)

// ParseMatchMethod validates a method name.
func ParseMatchMethod(s string) (MatchMethod, error) {
	switch m := MatchMethod(s); m {
	case SqDiff, SqDiffNormed, CCorr, CCorrNormed, CCoeff, CCoeffNormed:
		return m, nil
	}
	return "", fmt.Errorf("unknown match method %q", s)
}

// IsDistance reports whether lower raw values are better.
func (m MatchMethod) IsDistance() bool {
	return m == SqDiff || m == SqDiffNormed
}

// ScoreMap holds one score per template placement, higher is better. The
// entry at (x, y) is the placement whose top-left corner is (x, y).
type ScoreMap struct {
	W, H  int
	Score []float64
}

// At returns the score at (x, y).
func (s *ScoreMap) At(x, y int) float64 {
	return s.Score[y*s.W+x]
}

// Best returns the position and value of the highest score. Ties keep the
// first in raster order.
func (s *ScoreMap) Best() (x, y int, score float64) {
	best := -1
	for i, v := range s.Score {
		if best < 0 || v > s.Score[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, 0, math.Inf(-1)
	}
	return best % s.W, best / s.W, s.Score[best]
}

// Fill sets every entry of the w×h window centred on (cx, cy) to v.
func (s *ScoreMap) Fill(cx, cy, w, h int, v float64) {
	x0 := max(0, cx-w/2)
	y0 := max(0, cy-h/2)
	x1 := min(s.W, cx-w/2+w)
	y1 := min(s.H, cy-h/2+h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			s.Score[y*s.W+x] = v
		}
	}
}

// correlator computes raw correlation values. Builds with the gocv tag swap
// in OpenCV's implementation.
var correlator = correlateGray

// Correlate slides tmpl over img and scores every placement with method.
// Distance measures are flipped to 1 − d so that higher is always better; raw
// SqDiff is first scaled to a per-pixel fraction of full range.
func Correlate(img, tmpl *vimg.Gray, method MatchMethod) (*ScoreMap, error) {
	if img.Empty() || tmpl.Empty() {
		return nil, fmt.Errorf("correlate: empty image")
	}
	if tmpl.W > img.W || tmpl.H > img.H {
		return nil, fmt.Errorf("correlate: template %dx%d larger than image %dx%d", tmpl.W, tmpl.H, img.W, img.H)
	}
	raw, err := correlator(img, tmpl, method)
	if err != nil {
		return nil, err
	}
	switch method {
	case SqDiff:
		scale := float64(tmpl.W*tmpl.H) * 255 * 255
		for i, v := range raw.Score {
			raw.Score[i] = 1 - v/scale
		}
	case SqDiffNormed:
		for i, v := range raw.Score {
			raw.Score[i] = 1 - v
		}
	}
	return raw, nil
}

// integral is a summed-area table with one row and column of zero padding.
type integral struct {
	w   int
	sum []float64
	sq  []float64
}

func newIntegral(g *vimg.Gray) *integral {
	w := g.W + 1
	in := &integral{w: w, sum: make([]float64, w*(g.H+1)), sq: make([]float64, w*(g.H+1))}
	for y := 0; y < g.H; y++ {
		var rs, rq float64
		for x := 0; x < g.W; x++ {
			v := g.Pix[y*g.W+x]
			rs += v
			rq += v * v
			i := (y+1)*w + x + 1
			in.sum[i] = in.sum[i-w] + rs
			in.sq[i] = in.sq[i-w] + rq
		}
	}
	return in
}

// window returns the sum and sum of squares of the w×h box at (x, y).
func (in *integral) window(x, y, w, h int) (s, sq float64) {
	a := y*in.w + x
	b := y*in.w + x + w
	c := (y+h)*in.w + x
	d := (y+h)*in.w + x + w
	return in.sum[d] - in.sum[b] - in.sum[c] + in.sum[a], in.sq[d] - in.sq[b] - in.sq[c] + in.sq[a]
}

func correlateGray(img, tmpl *vimg.Gray, method MatchMethod) (*ScoreMap, error) {
	tw, th := tmpl.W, tmpl.H
	out := &ScoreMap{W: img.W - tw + 1, H: img.H - th + 1}
	out.Score = make([]float64, out.W*out.H)

	n := float64(tw * th)
	var sumT, sumT2 float64
	for _, v := range tmpl.Pix {
		sumT += v
		sumT2 += v * v
	}
	meanT := sumT / n
	varT := sumT2 - sumT*sumT/n

	in := newIntegral(img)
	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			var cross float64
			for ty := 0; ty < th; ty++ {
				row := img.Pix[(y+ty)*img.W+x:]
				trow := tmpl.Pix[ty*tw:]
				for tx := 0; tx < tw; tx++ {
					cross += row[tx] * trow[tx]
				}
			}
			sumI, sumI2 := in.window(x, y, tw, th)

			var v float64
			switch method {
			case SqDiff:
				v = sumI2 - 2*cross + sumT2
			case SqDiffNormed:
				den := math.Sqrt(sumT2 * sumI2)
				d := sumI2 - 2*cross + sumT2
				switch {
				case den > 0:
					v = d / den
				case d > 0:
					v = 1
				}
			case CCorr:
				v = cross
			case CCorrNormed:
				if den := math.Sqrt(sumT2 * sumI2); den > 0 {
					v = cross / den
				}
			case CCoeff:
				v = cross - meanT*sumI
			default:
				varI := sumI2 - sumI*sumI/n
				if den := math.Sqrt(varT * varI); den > 1e-9 {
					v = (cross - meanT*sumI) / den
				}
			}
			out.Score[y*out.W+x] = v
		}
	}
	return out, nil
}
