package detection

import (
	"image"
	"math"
	"sort"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// Match is one template placement.
type Match struct {
	X      int        `json:"x"`
	Y      int        `json:"y"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Center vimg.Point `json:"center"`
	Score  float64    `json:"score"`
	Scale  float64    `json:"scale"`
	Angle  float64    `json:"angle"`
}

// Rect returns the placement rectangle.
func (m Match) Rect() image.Rectangle {
	return image.Rect(m.X, m.Y, m.X+m.Width, m.Y+m.Height)
}

func newMatch(x, y, w, h int, score, scale, angle float64) Match {
	return Match{
		X: x, Y: y, Width: w, Height: h,
		Center: vimg.Pt(float64(x)+float64(w)/2, float64(y)+float64(h)/2),
		Score:  score,
		Scale:  scale,
		Angle:  angle,
	}
}

// IoU returns the intersection area of a and b over their union area.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

// NMS keeps matches in descending score order, dropping any whose IoU with an
// already kept match exceeds threshold.
func NMS(matches []Match, threshold float64) []Match {
	sorted := append([]Match(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	kept := make([]Match, 0, len(sorted))
	for _, m := range sorted {
		overlaps := false
		for _, k := range kept {
			if IoU(m.Rect(), k.Rect()) > threshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, m)
		}
	}
	return kept
}

// NMSThreshold is the overlap above which a weaker match is suppressed.
const NMSThreshold = 0.5

// minTemplateSide is the smallest resampled template side that is searched.
const minTemplateSide = 10

// TemplateOptions controls FindTemplate.
type TemplateOptions struct {
	Method     MatchMethod
	Threshold  float64
	MaxResults int

	MultiScale bool
	ScaleMin   float64
	ScaleMax   float64
	ScaleStep  float64
	Rotation   bool
	AngleMin   float64
	AngleMax   float64
	AngleStep  float64
}

// DefaultTemplateOptions searches at a single scale with normalised
// correlation coefficient.
func DefaultTemplateOptions() TemplateOptions {
	return TemplateOptions{
		Method:     CCoeffNormed,
		Threshold:  0.8,
		MaxResults: 10,
		ScaleMin:   0.8,
		ScaleMax:   1.2,
		ScaleStep:  0.1,
		AngleMin:   -15,
		AngleMax:   15,
		AngleStep:  5,
	}
}

// FindTemplate locates tmpl in img.
//
// # Single scale
//
// One score map is computed. The global best is recorded and a
// template-sized window centred on it is blanked, repeating until the best
// falls under the threshold or twice MaxResults candidates are collected.
//
// # Multi-scale
//
// Each scale (and angle, with Rotation) resamples the template, skipping
// sizes under ten pixels or larger than img, and contributes its single best
// placement when it meets the threshold.
//
// Candidates then go through NMS and are cut to MaxResults.
func FindTemplate(img, tmpl *vimg.Gray, opts TemplateOptions) ([]Match, error) {
	var candidates []Match
	if opts.MultiScale {
		var err error
		if candidates, err = multiScaleCandidates(img, tmpl, opts); err != nil {
			return nil, err
		}
	} else {
		scores, err := Correlate(img, tmpl, opts.Method)
		if err != nil {
			return nil, err
		}
		limit := 2 * opts.MaxResults
		for limit <= 0 || len(candidates) < limit {
			x, y, s := scores.Best()
			if s < opts.Threshold {
				break
			}
			candidates = append(candidates, newMatch(x, y, tmpl.W, tmpl.H, s, 1, 0))
			scores.Fill(x, y, tmpl.W, tmpl.H, math.Inf(-1))
		}
	}

	matches := NMS(candidates, NMSThreshold)
	if opts.MaxResults > 0 && len(matches) > opts.MaxResults {
		matches = matches[:opts.MaxResults]
	}
	return matches, nil
}

// Steps returns lo, lo+step, ... up to hi inclusive. A non-positive step or
// an inverted range yields just lo.
func Steps(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return []float64{lo}
	}
	n := int(math.Floor((hi-lo)/step + 1e-9))
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, lo+float64(i)*step)
	}
	return out
}

func multiScaleCandidates(img, tmpl *vimg.Gray, opts TemplateOptions) ([]Match, error) {
	angles := []float64{0}
	if opts.Rotation {
		angles = Steps(opts.AngleMin, opts.AngleMax, opts.AngleStep)
	}

	var out []Match
	for _, scale := range Steps(opts.ScaleMin, opts.ScaleMax, opts.ScaleStep) {
		tw := int(math.Round(float64(tmpl.W) * scale))
		th := int(math.Round(float64(tmpl.H) * scale))
		if tw < minTemplateSide || th < minTemplateSide || tw > img.W || th > img.H {
			continue
		}
		scaled := tmpl.Resize(tw, th)

		for _, angle := range angles {
			t := scaled
			if angle != 0 {
				t = vimg.ToGray(vimg.RotateKeepSize(scaled.Image(), angle))
			}
			scores, err := Correlate(img, t, opts.Method)
			if err != nil {
				return nil, err
			}
			x, y, s := scores.Best()
			if s >= opts.Threshold {
				out = append(out, newMatch(x, y, tw, th, s, scale, angle))
			}
		}
	}
	return out, nil
}
