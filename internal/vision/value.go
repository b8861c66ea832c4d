package vision

import (
	"encoding/json"
	"fmt"
	"image"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNone Kind = iota
	KindNumber
	KindText
	KindPoint
	KindRect
	KindPoints
	KindRecords
	KindImage
)

var kindNames = [...]string{"none", "number", "text", "point", "rect", "points", "records", "image"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Value is a measurement attached to a Result under a string key. Exactly one
// variant is populated, selected by Kind.
type Value struct {
	kind    Kind
	num     float64
	text    string
	point   vimg.Point
	rect    image.Rectangle
	points  []vimg.Point
	records any
	img     image.Image
}

// Number wraps a scalar measurement.
func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

// Int wraps an integer count.
func Int(v int) Value { return Value{kind: KindNumber, num: float64(v)} }

// Bool stores 1 for true and 0 for false.
func Bool(v bool) Value {
	if v {
		return Number(1)
	}
	return Number(0)
}

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// PointValue wraps a sub-pixel point.
func PointValue(p vimg.Point) Value { return Value{kind: KindPoint, point: p} }

// RectValue wraps an integer rectangle.
func RectValue(r image.Rectangle) Value { return Value{kind: KindRect, rect: r} }

// PointsValue wraps a point list. The slice is copied.
func PointsValue(pts []vimg.Point) Value {
	return Value{kind: KindPoints, points: append([]vimg.Point(nil), pts...)}
}

// Records wraps a typed record slice such as []detection.Blob. Retrieve it
// with RecordsAs.
func Records(v any) Value { return Value{kind: KindRecords, records: v} }

// ImageValue wraps an auxiliary image, for example a match visualisation.
func ImageValue(img image.Image) Value { return Value{kind: KindImage, img: img} }

// Kind reports which variant is held.
func (v Value) Kind() Kind { return v.kind }

// Float returns the number held, or false for other kinds.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Str returns the text held, or false for other kinds.
func (v Value) Str() (string, bool) {
	return v.text, v.kind == KindText
}

// Point returns the point held, or false for other kinds.
func (v Value) Point() (vimg.Point, bool) {
	return v.point, v.kind == KindPoint
}

// Rect returns the rectangle held, or false for other kinds.
func (v Value) Rect() (image.Rectangle, bool) {
	return v.rect, v.kind == KindRect
}

// Points returns the point list held, or false for other kinds.
func (v Value) Points() ([]vimg.Point, bool) {
	return v.points, v.kind == KindPoints
}

// Image returns the image held, or false for other kinds.
func (v Value) Image() (image.Image, bool) {
	return v.img, v.kind == KindImage
}

// RecordsAs extracts a record slice of a specific element type.
func RecordsAs[T any](v Value) ([]T, bool) {
	if v.kind != KindRecords {
		return nil, false
	}
	recs, ok := v.records.([]T)
	return recs, ok
}

type rectJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MarshalJSON encodes the held variant directly. Images are summarised by
// their size since pixel data travels separately.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindPoint:
		return json.Marshal(v.point)
	case KindRect:
		return json.Marshal(rectJSON{X: v.rect.Min.X, Y: v.rect.Min.Y, Width: v.rect.Dx(), Height: v.rect.Dy()})
	case KindPoints:
		if v.points == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.points)
	case KindRecords:
		return json.Marshal(v.records)
	case KindImage:
		if v.img == nil {
			return []byte("null"), nil
		}
		b := v.img.Bounds()
		return json.Marshal(map[string]int{"width": b.Dx(), "height": b.Dy()})
	}
	return []byte("null"), nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindText:
		return v.text
	case KindPoint:
		return fmt.Sprintf("(%.2f,%.2f)", v.point.X, v.point.Y)
	case KindRect:
		return v.rect.String()
	case KindPoints:
		return fmt.Sprintf("%d points", len(v.points))
	case KindImage:
		if v.img != nil {
			return fmt.Sprintf("image %v", v.img.Bounds().Size())
		}
	}
	return v.kind.String()
}
