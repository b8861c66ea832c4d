package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"sort"
)

// Params is a flat set of named tool parameters as received from a caller,
// for example decoded from JSON. Values are numbers, booleans, strings, or
// small objects such as an ROI or a point.
type Params map[string]any

// ParamsOf converts a tagged configuration struct into Params.
func ParamsOf(cfg any) Params {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return Params{}
	}
	p := Params{}
	_ = json.Unmarshal(raw, &p)
	return p
}

// Decode overlays p onto dst, a pointer to a tagged configuration struct.
// Fields absent from p keep their current values. Unknown keys and type
// mismatches are rejected with ErrInvalidParameter.
func (p Params) Decode(dst any) error {
	if len(p) == 0 {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return nil
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Invalid builds an ErrInvalidParameter error for a named parameter.
func Invalid(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParameter, name, fmt.Sprintf(format, args...))
}

// RectParam is the JSON shape of a rectangle parameter.
type RectParam struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts to an image.Rectangle.
func (r RectParam) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// RectParamOf converts an image.Rectangle.
func RectParamOf(r image.Rectangle) RectParam {
	return RectParam{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

type baseParams struct {
	Name    *string    `json:"name"`
	Enabled *bool      `json:"enabled"`
	UseROI  *bool      `json:"use_roi"`
	ROI     *RectParam `json:"roi"`
}

var baseKeys = map[string]bool{"name": true, "enabled": true, "use_roi": true, "roi": true}

// Configure applies the common keys (name, enabled, use_roi, roi) to the
// tool's base and passes every other key to the tool. Nothing is changed
// when any key is rejected.
func Configure(t Tool, p Params) error {
	common, rest := Params{}, Params{}
	for k, v := range p {
		if baseKeys[k] {
			common[k] = v
		} else {
			rest[k] = v
		}
	}

	var bp baseParams
	if err := common.Decode(&bp); err != nil {
		return err
	}
	if bp.ROI != nil && (bp.ROI.Width < 0 || bp.ROI.Height < 0) {
		return Invalid("roi", "width and height must not be negative")
	}
	if bp.Name != nil && *bp.Name == "" {
		return Invalid("name", "must not be empty")
	}

	if len(rest) > 0 {
		if err := t.Configure(rest); err != nil {
			return err
		}
	}

	b := t.Base()
	if bp.Name != nil {
		b.Name = *bp.Name
	}
	if bp.Enabled != nil {
		b.Enabled = *bp.Enabled
	}
	if bp.ROI != nil {
		b.ROI = bp.ROI.Rect()
	}
	if bp.UseROI != nil {
		b.UseROI = *bp.UseROI
	}
	return nil
}

// AllParameters returns the common keys merged with the tool's own.
func AllParameters(t Tool) Params {
	b := t.Base()
	p := t.Parameters()
	if p == nil {
		p = Params{}
	}
	p["name"] = b.Name
	p["enabled"] = b.Enabled
	p["use_roi"] = b.UseROI
	p["roi"] = RectParamOf(b.ROI)
	return p
}
