package vision

import (
	"image"
	"testing"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(ToolType{ID: "StubTool", DisplayName: "Stub", Category: "Testing", New: func() Tool { return newStub(nil) }})
	r.Register(ToolType{ID: "OtherTool", DisplayName: "Other", Category: "Misc", New: func() Tool { return newStub(nil) }})
	r.Register(ToolType{ID: "ThirdTool", DisplayName: "Third", Category: "Testing", New: func() Tool { return newStub(nil) }})

	tool, ok := r.Create("StubTool")
	if !ok || tool == nil {
		t.Fatal("Create should build a registered type")
	}
	if _, ok := r.Create("NoSuchTool"); ok {
		t.Error("unknown id should yield no tool")
	}

	a, _ := r.Create("StubTool")
	b, _ := r.Create("StubTool")
	if a.Base().ID == b.Base().ID {
		t.Error("each created tool needs its own id")
	}

	if r.DisplayName("OtherTool") != "Other" || r.DisplayName("x") != "x" {
		t.Error("DisplayName lookup failed")
	}

	types := r.Types()
	if len(types) != 3 || types[0].ID != "StubTool" || types[2].ID != "ThirdTool" {
		t.Errorf("Types should keep registration order: %v", types)
	}

	names, by := r.Categories()
	if len(names) != 2 || names[0] != "Testing" || len(by["Testing"]) != 2 {
		t.Errorf("Categories: %v %v", names, by)
	}
}

func TestRenderOverlay(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 40, 40))
	gs := []Graphic{
		RectGraphic(image.Rect(5, 5, 15, 15), vimg.Green, 1),
		CrosshairGraphic(vimg.Pt(30, 30), 3, vimg.Red, 1),
	}
	gs = TranslateAll(gs, image.Pt(2, 0))

	out := RenderOverlay(base, gs)
	if out.RGBAAt(7, 5) != vimg.Green {
		t.Error("translated rectangle corner missing")
	}
	if out.RGBAAt(5, 5) == vimg.Green {
		t.Error("rectangle drawn at untranslated position")
	}
	if out.RGBAAt(32, 30) != vimg.Red {
		t.Error("crosshair centre missing")
	}
	if base.RGBAAt(7, 5) == vimg.Green {
		t.Error("RenderOverlay must not draw on the base image")
	}
	if RenderOverlay(nil, gs) != nil {
		t.Error("nil base should give nil overlay")
	}
}

func TestGraphic_TranslateCopiesPoints(t *testing.T) {
	g := PolygonGraphic([]vimg.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, vimg.Blue, 1)
	moved := g.Translate(image.Pt(10, 10))

	if moved.Points[0] != vimg.Pt(11, 11) {
		t.Errorf("translated point: %v", moved.Points[0])
	}
	if g.Points[0] != vimg.Pt(1, 1) {
		t.Error("Translate must not modify the original")
	}
}
