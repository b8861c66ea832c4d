package vision

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

// GraphicType selects the primitive a Graphic draws.
type GraphicType int

const (
	GraphicPoint GraphicType = iota
	GraphicLine
	GraphicRectangle
	GraphicCircle
	GraphicEllipse
	GraphicPolygon
	GraphicText
	GraphicCrosshair
)

var graphicNames = [...]string{"point", "line", "rectangle", "circle", "ellipse", "polygon", "text", "crosshair"}

func (t GraphicType) String() string {
	if t < 0 || int(t) >= len(graphicNames) {
		return fmt.Sprintf("graphic(%d)", int(t))
	}
	return graphicNames[t]
}

// MarshalJSON encodes the type by name.
func (t GraphicType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Graphic is one overlay primitive. Which geometry fields are meaningful
// depends on Type:
//
//	point      Position
//	line       Position → End
//	rectangle  Position (top-left), Width, Height
//	circle     Position (centre), Radius
//	ellipse    Position (centre), Width, Height (full axes), Angle (degrees)
//	polygon    Points (closed)
//	text       Position (top-left), Text
//	crosshair  Position (centre), Radius (arm length)
//
// Label is an optional caption drawn next to the primitive.
type Graphic struct {
	Type      GraphicType  `json:"type"`
	Position  vimg.Point   `json:"position"`
	End       vimg.Point   `json:"end,omitempty"`
	Width     float64      `json:"width,omitempty"`
	Height    float64      `json:"height,omitempty"`
	Radius    float64      `json:"radius,omitempty"`
	Angle     float64      `json:"angle,omitempty"`
	Points    []vimg.Point `json:"points,omitempty"`
	Text      string       `json:"text,omitempty"`
	Label     string       `json:"label,omitempty"`
	Color     color.RGBA   `json:"-"`
	Thickness int          `json:"thickness"`
}

func PointGraphic(p vimg.Point, c color.RGBA) Graphic {
	return Graphic{Type: GraphicPoint, Position: p, Color: c, Thickness: 2}
}

func LineGraphic(a, b vimg.Point, c color.RGBA, thickness int) Graphic {
	return Graphic{Type: GraphicLine, Position: a, End: b, Color: c, Thickness: thickness}
}

func RectGraphic(r image.Rectangle, c color.RGBA, thickness int) Graphic {
	return Graphic{
		Type:      GraphicRectangle,
		Position:  vimg.FromImagePoint(r.Min),
		Width:     float64(r.Dx()),
		Height:    float64(r.Dy()),
		Color:     c,
		Thickness: thickness,
	}
}

func CircleGraphic(center vimg.Point, radius float64, c color.RGBA, thickness int) Graphic {
	return Graphic{Type: GraphicCircle, Position: center, Radius: radius, Color: c, Thickness: thickness}
}

func EllipseGraphic(center vimg.Point, w, h, angle float64, c color.RGBA, thickness int) Graphic {
	return Graphic{Type: GraphicEllipse, Position: center, Width: w, Height: h, Angle: angle, Color: c, Thickness: thickness}
}

func PolygonGraphic(pts []vimg.Point, c color.RGBA, thickness int) Graphic {
	return Graphic{Type: GraphicPolygon, Points: append([]vimg.Point(nil), pts...), Color: c, Thickness: thickness}
}

func TextGraphic(p vimg.Point, text string, c color.RGBA) Graphic {
	return Graphic{Type: GraphicText, Position: p, Text: text, Color: c, Thickness: 1}
}

func CrosshairGraphic(center vimg.Point, size float64, c color.RGBA, thickness int) Graphic {
	return Graphic{Type: GraphicCrosshair, Position: center, Radius: size, Color: c, Thickness: thickness}
}

// WithLabel returns a copy of g carrying a caption.
func (g Graphic) WithLabel(label string) Graphic {
	g.Label = label
	return g
}

// Translate returns g shifted by d, typically the ROI origin.
func (g Graphic) Translate(d image.Point) Graphic {
	g.Position = g.Position.Offset(d)
	g.End = g.End.Offset(d)
	if len(g.Points) > 0 {
		pts := make([]vimg.Point, len(g.Points))
		for i, p := range g.Points {
			pts[i] = p.Offset(d)
		}
		g.Points = pts
	}
	return g
}

// TranslateAll shifts every graphic by d.
func TranslateAll(gs []Graphic, d image.Point) []Graphic {
	out := make([]Graphic, len(gs))
	for i, g := range gs {
		out[i] = g.Translate(d)
	}
	return out
}

// Draw renders g onto c.
func (g Graphic) Draw(c *vimg.Canvas) {
	switch g.Type {
	case GraphicPoint:
		c.Marker(g.Position, g.Color, g.Thickness)
	case GraphicLine:
		c.Line(g.Position, g.End, g.Color, g.Thickness)
	case GraphicRectangle:
		c.Rect(g.Position, g.Width, g.Height, g.Color, g.Thickness)
	case GraphicCircle:
		c.Circle(g.Position, g.Radius, g.Color, g.Thickness)
	case GraphicEllipse:
		c.Ellipse(g.Position, g.Width, g.Height, g.Angle, g.Color, g.Thickness)
	case GraphicPolygon:
		c.Polygon(g.Points, g.Color, g.Thickness)
	case GraphicText:
		c.TextBox(g.Position, g.Text, g.Color, color.RGBA{0, 0, 0, 160})
	case GraphicCrosshair:
		c.Crosshair(g.Position, g.Radius, g.Color, g.Thickness)
	}
	if g.Label != "" {
		c.TextBox(g.labelAnchor(), g.Label, g.Color, color.RGBA{0, 0, 0, 160})
	}
}

func (g Graphic) labelAnchor() vimg.Point {
	switch g.Type {
	case GraphicRectangle:
		return vimg.Pt(g.Position.X, g.Position.Y-14)
	case GraphicPolygon:
		if len(g.Points) > 0 {
			return g.Points[0].Add(vimg.Pt(0, -14))
		}
	case GraphicCircle, GraphicCrosshair:
		return g.Position.Add(vimg.Pt(g.Radius+2, -7))
	}
	return g.Position.Add(vimg.Pt(4, 4))
}

// RenderOverlay draws gs on a copy of base. A nil base yields nil.
func RenderOverlay(base image.Image, gs []Graphic) *image.RGBA {
	if base == nil {
		return nil
	}
	c := vimg.NewCanvas(base)
	for _, g := range gs {
		g.Draw(c)
	}
	return c.Image()
}
