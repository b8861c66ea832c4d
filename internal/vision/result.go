package vision

import (
	"encoding/json"
	"fmt"
	"image"
	"time"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// FailureKind classifies why a Result is unsuccessful.
type FailureKind int

const (
	// FailureNone marks a successful result.
	FailureNone FailureKind = iota
	// InputMissing: no source image, or a tool received an empty image.
	InputMissing
	// ConfigurationIncomplete: a matching tool ran before it was trained.
	ConfigurationIncomplete
	// UpstreamFailed: a Result connection's source failed, so the tool was skipped.
	UpstreamFailed
	// ComputationFault: the algorithm returned an error or panicked.
	ComputationFault
	// NoDetection: the algorithm ran but nothing met its thresholds.
	NoDetection
)

var failureNames = [...]string{"", "InputMissing", "ConfigurationIncomplete", "UpstreamFailed", "ComputationFault", "NoDetection"}

func (k FailureKind) String() string {
	if k < 0 || int(k) >= len(failureNames) {
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
	return failureNames[k]
}

// MarshalJSON encodes the kind by name.
func (k FailureKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Well-known data keys read by the pipeline for coordinate propagation.
const (
	KeyCenterX      = "CenterX"
	KeyCenterY      = "CenterY"
	KeyBoundingRect = "BoundingRect"
)

// Result is the output envelope of one tool invocation.
//
// Output is the post-processing image (full size or ROI-sized) that may be
// handed to later tools. Overlay is a full-size annotated rendering for
// display. Data holds the tool's measurements under tool-defined keys, and
// Graphics lists the primitives already rendered into Overlay, in absolute
// image coordinates.
type Result struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Failure  FailureKind      `json:"failure,omitempty"`
	ToolID   string           `json:"tool_id,omitempty"`
	ToolName string           `json:"tool_name,omitempty"`
	Output   image.Image      `json:"-"`
	Overlay  image.Image      `json:"-"`
	Data     map[string]Value `json:"data,omitempty"`
	Graphics []Graphic        `json:"graphics,omitempty"`
	Elapsed  time.Duration    `json:"elapsed_ns"`
}

// NewResult returns a successful, empty result.
func NewResult(message string) *Result {
	return &Result{Success: true, Message: message, Data: map[string]Value{}}
}

// Failed returns an unsuccessful result of the given kind.
func Failed(kind FailureKind, format string, args ...any) *Result {
	return &Result{
		Success: false,
		Failure: kind,
		Message: fmt.Sprintf(format, args...),
		Data:    map[string]Value{},
	}
}

// Fail turns r into a failure of the given kind while keeping its data,
// graphics and images.
func (r *Result) Fail(kind FailureKind, format string, args ...any) *Result {
	r.Success = false
	r.Failure = kind
	r.Message = fmt.Sprintf(format, args...)
	return r
}

// Set stores a data value.
func (r *Result) Set(key string, v Value) {
	if r.Data == nil {
		r.Data = map[string]Value{}
	}
	r.Data[key] = v
}

// Get returns a data value.
func (r *Result) Get(key string) (Value, bool) {
	v, ok := r.Data[key]
	return v, ok
}

// Float returns a numeric data value.
func (r *Result) Float(key string) (float64, bool) {
	v, ok := r.Data[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// AddGraphic appends primitives to the result.
func (r *Result) AddGraphic(g ...Graphic) {
	r.Graphics = append(r.Graphics, g...)
}

// HasOutput reports whether the result carries a non-empty output image.
func (r *Result) HasOutput() bool {
	return r != nil && !vimg.Empty(r.Output)
}

// HasOverlay reports whether the result carries a non-empty overlay image.
func (r *Result) HasOverlay() bool {
	return r != nil && !vimg.Empty(r.Overlay)
}

// Center returns the CenterX/CenterY data pair when both are present.
func (r *Result) Center() (vimg.Point, bool) {
	x, okx := r.Float(KeyCenterX)
	y, oky := r.Float(KeyCenterY)
	if !okx || !oky {
		return vimg.Point{}, false
	}
	return vimg.Pt(x, y), true
}

// BoundingRect returns the BoundingRect data value when present.
func (r *Result) BoundingRect() (image.Rectangle, bool) {
	v, ok := r.Data[KeyBoundingRect]
	if !ok {
		return image.Rectangle{}, false
	}
	return v.Rect()
}
