//go:build gocv

package detection

import (
	"fmt"

	"gocv.io/x/gocv"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

func init() {
	correlator = correlateOpenCV
}

var openCVModes = map[MatchMethod]gocv.TemplateMatchMode{
	SqDiff:       gocv.TmSqdiff,
	SqDiffNormed: gocv.TmSqdiffNormed,
	CCorr:        gocv.TmCcorr,
	CCorrNormed:  gocv.TmCcorrNormed,
	CCoeff:       gocv.TmCcoeff,
	CCoeffNormed: gocv.TmCcoeffNormed,
}

func toMat(g *vimg.Gray) gocv.Mat {
	m := gocv.NewMatWithSize(g.H, g.W, gocv.MatTypeCV32F)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			m.SetFloatAt(y, x, float32(g.Pix[y*g.W+x]))
		}
	}
	return m
}

func correlateOpenCV(img, tmpl *vimg.Gray, method MatchMethod) (*ScoreMap, error) {
	mode, ok := openCVModes[method]
	if !ok {
		return nil, fmt.Errorf("correlate: unsupported method %q", method)
	}

	src := toMat(img)
	defer src.Close()
	t := toMat(tmpl)
	defer t.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	result := gocv.NewMat()
	defer result.Close()

	gocv.MatchTemplate(src, t, &result, mode, mask)
	if result.Empty() {
		return nil, fmt.Errorf("correlate: opencv returned no scores")
	}

	out := &ScoreMap{W: result.Cols(), H: result.Rows()}
	out.Score = make([]float64, out.W*out.H)
	for y := 0; y < out.H; y++ {
		for x := 0; x < out.W; x++ {
			out.Score[y*out.W+x] = float64(result.GetFloatAt(y, x))
		}
	}
	return out, nil
}
