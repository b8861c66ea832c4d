package tools

import (
	"fmt"
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/ocr"
	"github.com/ironsheep/vision-job/internal/vision"
)

type ocrConfig struct {
	Language       string  `json:"language"`
	TessdataPrefix string  `json:"tessdata_prefix"`
	MinConfidence  float64 `json:"min_confidence"`
}

// OCRTool reads text inside its region with Tesseract.
type OCRTool struct {
	vision.ToolBase
	cfg ocrConfig
}

// NewOCRTool returns an OCR tool reading the given language. Empty values
// fall back to English and Tesseract's default data directory.
func NewOCRTool(language, tessdataPrefix string) *OCRTool {
	if language == "" {
		language = ocr.DefaultLanguage
	}
	return &OCRTool{
		ToolBase: vision.NewToolBase(TypeOCR, "OCR"),
		cfg:      ocrConfig{Language: language, TessdataPrefix: tessdataPrefix},
	}
}

// Configure sets the language, data path and minimum word confidence.
func (t *OCRTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, func(c *ocrConfig) error {
		if c.Language == "" {
			return vision.Invalid("language", "must not be empty")
		}
		if c.MinConfidence < 0 || c.MinConfidence > 1 {
			return vision.Invalid("min_confidence", "must be in 0..1, got %v", c.MinConfidence)
		}
		return nil
	})
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the recognition settings.
func (t *OCRTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

func (t *OCRTool) reader() *ocr.Reader {
	r := ocr.NewReader(t.cfg.Language, t.cfg.TessdataPrefix)
	r.MinConfidence = t.cfg.MinConfidence
	return r
}

// Execute recognises text in the ROI and reports each word with its box in
// image coordinates. No text is NoDetection.
func (t *OCRTool) Execute(img image.Image) (*vision.Result, error) {
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	text, err := t.reader().Read(region)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}

	r := vision.NewResult("")
	var gs []vision.Graphic
	words := make([]ocr.Word, len(text.Words))
	for i, w := range text.Words {
		gs = append(gs, vision.RectGraphic(w.Bounds, vimg.Green, 1).WithLabel(w.Text))
		w.Bounds = w.Bounds.Add(clipped.Min)
		words[i] = w
	}
	annotate(&t.ToolBase, r, img, clipped, gs)

	r.Set("Text", vision.Text(text.Text))
	r.Set("WordCount", vision.Int(len(words)))
	r.Set("Words", vision.Records(words))
	r.Set("Confidence", vision.Number(text.MeanConfidence))
	if text.Text == "" {
		return r.Fail(vision.NoDetection, "No text found"), nil
	}
	r.Message = fmt.Sprintf("Read %d words", len(words))
	return r, nil
}

// Clone returns an independent copy with a fresh id.
func (t *OCRTool) Clone() vision.Tool {
	return &OCRTool{ToolBase: t.CloneBase(), cfg: t.cfg}
}
