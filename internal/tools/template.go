package tools

import (
	"fmt"
	"image"

	"github.com/ironsheep/vision-job/internal/detection"
	vimg "github.com/ironsheep/vision-job/internal/imaging"
	"github.com/ironsheep/vision-job/internal/vision"
)

type templateConfig struct {
	Method     string  `json:"method"`
	Threshold  float64 `json:"threshold"`
	MaxResults int     `json:"max_results"`

	MultiScale bool    `json:"multi_scale"`
	ScaleMin   float64 `json:"scale_min"`
	ScaleMax   float64 `json:"scale_max"`
	ScaleStep  float64 `json:"scale_step"`
	Rotation   bool    `json:"rotation"`
	AngleMin   float64 `json:"angle_min"`
	AngleMax   float64 `json:"angle_max"`
	AngleStep  float64 `json:"angle_step"`
}

func defaultTemplateConfig() templateConfig {
	o := detection.DefaultTemplateOptions()
	return templateConfig{
		Method:     string(o.Method),
		Threshold:  o.Threshold,
		MaxResults: o.MaxResults,
		MultiScale: o.MultiScale,
		ScaleMin:   o.ScaleMin,
		ScaleMax:   o.ScaleMax,
		ScaleStep:  o.ScaleStep,
		Rotation:   o.Rotation,
		AngleMin:   o.AngleMin,
		AngleMax:   o.AngleMax,
		AngleStep:  o.AngleStep,
	}
}

func (c *templateConfig) validate() error {
	if _, err := detection.ParseMatchMethod(c.Method); err != nil {
		return vision.Invalid("method", "%v", err)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return vision.Invalid("threshold", "must be in 0..1, got %v", c.Threshold)
	}
	if c.MaxResults < 1 {
		return vision.Invalid("max_results", "must be at least 1, got %d", c.MaxResults)
	}
	if c.ScaleMin <= 0 || c.ScaleMax < c.ScaleMin || c.ScaleStep < 0 {
		return vision.Invalid("scale_min", "need 0 < min <= max and step >= 0")
	}
	if c.AngleMax < c.AngleMin || c.AngleStep < 0 {
		return vision.Invalid("angle_min", "need min <= max and step >= 0")
	}
	// A zero step searches only the minimum.
	if c.MultiScale && c.ScaleStep == 0 {
		return vision.Invalid("scale_step", "must be positive when multi_scale is set")
	}
	if c.Rotation && c.AngleStep == 0 {
		return vision.Invalid("angle_step", "must be positive when rotation is set")
	}
	return nil
}

func (c *templateConfig) options() detection.TemplateOptions {
	return detection.TemplateOptions{
		Method:     detection.MatchMethod(c.Method),
		Threshold:  c.Threshold,
		MaxResults: c.MaxResults,
		MultiScale: c.MultiScale,
		ScaleMin:   c.ScaleMin,
		ScaleMax:   c.ScaleMax,
		ScaleStep:  c.ScaleStep,
		Rotation:   c.Rotation,
		AngleMin:   c.AngleMin,
		AngleMax:   c.AngleMax,
		AngleStep:  c.AngleStep,
	}
}

// TemplateMatchTool finds occurrences of a trained pattern by normalised
// correlation.
type TemplateMatchTool struct {
	vision.ToolBase
	cfg      templateConfig
	template *vimg.Gray
}

// NewTemplateMatchTool returns an untrained single-scale matcher.
func NewTemplateMatchTool() *TemplateMatchTool {
	return &TemplateMatchTool{
		ToolBase: vision.NewToolBase(TypeTemplateMatch, "Template Match"),
		cfg:      defaultTemplateConfig(),
	}
}

// Configure validates the method, threshold and search ranges.
func (t *TemplateMatchTool) Configure(p vision.Params) error {
	cfg, err := decode(t.cfg, p, (*templateConfig).validate)
	if err != nil {
		return err
	}
	t.cfg = cfg
	return nil
}

// Parameters returns the matching settings.
func (t *TemplateMatchTool) Parameters() vision.Params { return vision.ParamsOf(t.cfg) }

// Train stores pattern as the grayscale template.
func (t *TemplateMatchTool) Train(pattern image.Image) error {
	if vimg.Empty(pattern) {
		return fmt.Errorf("template pattern: %w", vision.ErrEmptyImage)
	}
	t.template = vimg.ToGray(pattern)
	return nil
}

// Trained reports whether a template is stored.
func (t *TemplateMatchTool) Trained() bool { return t.template != nil }

// Execute correlates the template over the ROI and returns the matches
// above threshold, best first.
func (t *TemplateMatchTool) Execute(img image.Image) (*vision.Result, error) {
	if t.template == nil {
		return nil, fmt.Errorf("template not set: %w", vision.ErrNotTrained)
	}
	region, clipped, err := t.Region(img)
	if err != nil {
		return nil, err
	}
	search := vimg.ToGray(region)

	r := vision.NewResult("")
	if !t.cfg.MultiScale && (t.template.W > search.W || t.template.H > search.H) {
		annotate(&t.ToolBase, r, img, clipped, nil)
		r.Set("MatchCount", vision.Int(0))
		return r.Fail(vision.NoDetection, "Template %dx%d is larger than the search region %dx%d",
			t.template.W, t.template.H, search.W, search.H), nil
	}
	matches, err := detection.FindTemplate(search, t.template, t.cfg.options())
	if err != nil {
		return nil, err
	}

	var gs []vision.Graphic
	for _, m := range matches {
		gs = append(gs,
			vision.RectGraphic(m.Rect(), vimg.Green, 2).WithLabel(fmt.Sprintf("%.3f", m.Score)),
			vision.CrosshairGraphic(m.Center, 10, vimg.Red, 1),
		)
	}
	annotate(&t.ToolBase, r, img, clipped, gs)

	for i := range matches {
		matches[i].X += clipped.Min.X
		matches[i].Y += clipped.Min.Y
		matches[i].Center = matches[i].Center.Offset(clipped.Min)
	}
	r.Set("MatchCount", vision.Int(len(matches)))
	r.Set("Matches", vision.Records(matches))
	if len(matches) == 0 {
		return r.Fail(vision.NoDetection, "No match above %.2f", t.cfg.Threshold), nil
	}

	best := matches[0]
	r.Set("BestScore", vision.Number(best.Score))
	r.Set("BestX", vision.Number(best.Center.X))
	r.Set("BestY", vision.Number(best.Center.Y))
	r.Set("BestAngle", vision.Number(best.Angle))
	r.Set("BestScale", vision.Number(best.Scale))
	r.Set(vision.KeyCenterX, vision.Number(best.Center.X))
	r.Set(vision.KeyCenterY, vision.Number(best.Center.Y))
	r.Message = fmt.Sprintf("Found %d matches, best %.3f", len(matches), best.Score)
	return r, nil
}

// Clone returns a copy with a fresh id and its own copy of the template.
func (t *TemplateMatchTool) Clone() vision.Tool {
	c := &TemplateMatchTool{ToolBase: t.CloneBase(), cfg: t.cfg}
	if t.template != nil {
		c.template = t.template.Clone()
	}
	return c
}
