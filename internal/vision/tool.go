package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/google/uuid"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

var (
	// ErrEmptyImage is returned when a tool receives no pixels.
	ErrEmptyImage = errors.New("no input image")
	// ErrNotTrained is returned by matching tools executed before training.
	ErrNotTrained = errors.New("not trained")
	// ErrInvalidParameter wraps every configuration rejection.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrROIOutside is returned when a tool's ROI does not overlap the image.
	ErrROIOutside = errors.New("roi lies outside the image")
)

// Tool is one configurable image-analysis operation.
//
// Execute receives a private deep copy of its input and returns a fresh
// Result. Returned errors and panics are converted into failed Results by
// Run, so implementations report algorithmic outcomes (including
// NoDetection) through the Result and reserve errors for faults.
type Tool interface {
	Base() *ToolBase
	Configure(p Params) error
	Parameters() Params
	Execute(img image.Image) (*Result, error)
	Clone() Tool
}

// Trainable is implemented by tools that need a reference pattern.
type Trainable interface {
	Train(pattern image.Image) error
	Trained() bool
}

// ToolBase carries the state common to every tool. Concrete tools embed it.
type ToolBase struct {
	ID      string
	Type    string
	Name    string
	Enabled bool
	ROI     image.Rectangle
	UseROI  bool

	LastResult    *Result
	ExecutionTime time.Duration
}

// NewToolBase returns an enabled base with a fresh id.
func NewToolBase(typeID, name string) ToolBase {
	return ToolBase{
		ID:      uuid.NewString(),
		Type:    typeID,
		Name:    name,
		Enabled: true,
	}
}

// Base returns b so that embedding ToolBase satisfies Tool.Base.
func (b *ToolBase) Base() *ToolBase { return b }

// CloneBase copies configuration into a new identity. Run history is not
// copied.
func (b *ToolBase) CloneBase() ToolBase {
	c := *b
	c.ID = uuid.NewString()
	c.LastResult = nil
	c.ExecutionTime = 0
	return c
}

// ROIActive reports whether the ROI restricts processing.
func (b *ToolBase) ROIActive() bool {
	return vimg.ROIActive(b.ROI, b.UseROI)
}

// Region extracts the tool's working region from img. The returned
// rectangle is the clipped ROI in image coordinates; its Min is the offset to
// add to geometry measured on the region.
func (b *ToolBase) Region(img image.Image) (*image.NRGBA, image.Rectangle, error) {
	sub, r := vimg.ExtractROI(img, b.ROI, b.UseROI)
	if vimg.Empty(sub) {
		return nil, r, fmt.Errorf("%w: %v", ErrROIOutside, b.ROI)
	}
	return sub, r, nil
}

// Restore composites a processed region back into a frame the size of img,
// filling outside the ROI with black.
func (b *ToolBase) Restore(img, processed image.Image) *image.NRGBA {
	return vimg.CompositeROI(img, processed, b.ROI, b.UseROI, color.Black)
}

// ROIGraphic outlines the clipped ROI when one is active.
func (b *ToolBase) ROIGraphic(clipped image.Rectangle) []Graphic {
	if !b.ROIActive() || clipped.Empty() {
		return nil
	}
	return []Graphic{RectGraphic(clipped, vimg.Cyan, 1).WithLabel("ROI")}
}

// CenterROI re-centres the ROI on p keeping its size, or def when no size is
// set, and enables it.
func (b *ToolBase) CenterROI(p vimg.Point, def image.Point) {
	w, h := b.ROI.Dx(), b.ROI.Dy()
	if w <= 0 || h <= 0 {
		w, h = def.X, def.Y
	}
	x := int(p.X - float64(w)/2)
	y := int(p.Y - float64(h)/2)
	b.ROI = image.Rect(x, y, x+w, y+h)
	b.UseROI = true
}

// SetROI adopts r as the ROI and enables it.
func (b *ToolBase) SetROI(r image.Rectangle) {
	b.ROI = r.Canon()
	b.UseROI = true
}

// Run executes t on a deep copy of img and normalises the outcome.
//
// An empty image yields InputMissing without calling Execute. Errors map to
// ConfigurationIncomplete when they wrap ErrNotTrained and ComputationFault
// otherwise; panics are recovered as ComputationFault. The result is stamped
// with the tool's id, name and elapsed time and stored as its LastResult.
func Run(t Tool, img image.Image) (res *Result) {
	b := t.Base()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = Failed(ComputationFault, "%s: internal fault: %v", b.Name, p)
		}
		b.ExecutionTime = time.Since(start)
		res.ToolID = b.ID
		res.ToolName = b.Name
		res.Elapsed = b.ExecutionTime
		b.LastResult = res
	}()

	if vimg.Empty(img) {
		return Failed(InputMissing, "%v", ErrEmptyImage)
	}

	r, err := t.Execute(vimg.Clone(img))
	switch {
	case errors.Is(err, ErrNotTrained):
		return Failed(ConfigurationIncomplete, "%v", err)
	case errors.Is(err, ErrEmptyImage):
		return Failed(InputMissing, "%v", err)
	case err != nil:
		return Failed(ComputationFault, "%v", err)
	case r == nil:
		return Failed(ComputationFault, "%s returned no result", b.Name)
	}
	if !r.Success && r.Failure == FailureNone {
		r.Failure = NoDetection
	}
	return r
}

// Passthrough is the result of a disabled tool: success with a copy of the
// input as output.
func Passthrough(t Tool, img image.Image) *Result {
	r := NewResult("tool disabled")
	r.Output = vimg.Clone(img)
	r.ToolID = t.Base().ID
	r.ToolName = t.Base().Name
	return r
}
