package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when a Reader is created without a language.
const DefaultLanguage = "eng"

// ErrUnavailable is returned when the Tesseract engine cannot be initialised.
var ErrUnavailable = errors.New("tesseract unavailable")

// Word is one recognised word with its bounding box in the coordinates of
// the image passed to Read.
type Word struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Bounds     image.Rectangle `json:"bounds"`
}

// Result contains the complete results of text extraction from an image.
type Result struct {
	// Text is all recognised text with the engine's spacing and newlines.
	Text string `json:"text"`

	// Words may be empty if bounding box extraction fails; Text is still set.
	Words []Word `json:"words"`

	// MeanConfidence averages Words' confidences (0..1), or 0 without words.
	MeanConfidence float64 `json:"mean_confidence"`
}

// Reader runs Tesseract over in-memory images. A Reader holds only
// settings; each Read creates and closes its own engine client, so a Reader
// may be shared between goroutines.
type Reader struct {
	Language       string
	TessdataPrefix string

	// MinConfidence drops words scoring below it (0..1).
	MinConfidence float64
}

// NewReader returns a Reader for the given language. An empty language
// selects DefaultLanguage and an empty prefix keeps Tesseract's own lookup.
func NewReader(language, tessdataPrefix string) *Reader {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return &Reader{Language: language, TessdataPrefix: tessdataPrefix}
}

func (r *Reader) client() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if r.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: tessdata prefix: %v", ErrUnavailable, err)
		}
	}
	if err := client.SetLanguage(r.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: set language: %v", ErrUnavailable, err)
	}
	return client, nil
}

// Read performs OCR on img.
//
// Word-level boxes use Tesseract's RIL_WORD iterator level; empty words are
// filtered out. When box extraction fails the text is still returned with
// no words.
func (r *Reader) Read(img image.Image) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("ocr: empty image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rebase(img)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client, err := r.client()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	res := &Result{Text: strings.TrimSpace(text), Words: []Word{}}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return res, nil
	}

	var sum float64
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		conf := box.Confidence / 100.0
		if word == "" || conf < r.MinConfidence {
			continue
		}
		res.Words = append(res.Words, Word{Text: word, Confidence: conf, Bounds: box.Box})
		sum += conf
	}
	if len(res.Words) > 0 {
		res.MeanConfidence = sum / float64(len(res.Words))
	}
	return res, nil
}

// ReadRegion performs OCR on the part of img inside rect. Word bounds are
// reported in img's coordinates.
func (r *Reader) ReadRegion(img image.Image, rect image.Rectangle) (*Result, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("ocr: region %v outside image", rect)
	}
	res, err := r.Read(imaging.Crop(img, rect))
	if err != nil {
		return nil, err
	}
	for i := range res.Words {
		res.Words[i].Bounds = res.Words[i].Bounds.Add(rect.Min)
	}
	return res, nil
}

// rebase returns img with its bounds starting at (0,0) so that word boxes
// are relative to the image's top-left corner.
func rebase(img image.Image) image.Image {
	if img.Bounds().Min == (image.Point{}) {
		return img
	}
	return imaging.Clone(img)
}

// Info describes the OCR subsystem.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Language  string `json:"language"`
	Error     string `json:"error,omitempty"`
}

// Probe reports whether Tesseract can be initialised with r's settings.
func (r *Reader) Probe() Info {
	info := Info{Language: r.Language}
	client, err := r.client()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer client.Close()
	info.Available = true
	info.Version = client.Version()
	return info
}
