package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	vimg "github.com/ironsheep/vision-job/internal/imaging"
)

type stubConfig struct {
	Level  int    `json:"level"`
	Mode   string `json:"mode"`
	Invert bool   `json:"invert"`
}

// stubTool lets tests script Execute.
type stubTool struct {
	ToolBase
	cfg  stubConfig
	exec func(img image.Image) (*Result, error)
	seen image.Image
}

func newStub(exec func(image.Image) (*Result, error)) *stubTool {
	return &stubTool{ToolBase: NewToolBase("StubTool", "Stub"), cfg: stubConfig{Level: 5, Mode: "a"}, exec: exec}
}

func (s *stubTool) Configure(p Params) error {
	cfg := s.cfg
	if err := p.Decode(&cfg); err != nil {
		return err
	}
	if cfg.Mode != "a" && cfg.Mode != "b" {
		return Invalid("mode", "unknown mode %q", cfg.Mode)
	}
	s.cfg = cfg
	return nil
}

func (s *stubTool) Parameters() Params { return ParamsOf(s.cfg) }

func (s *stubTool) Execute(img image.Image) (*Result, error) {
	s.seen = img
	if s.exec == nil {
		return NewResult("ok"), nil
	}
	return s.exec(img)
}

func (s *stubTool) Clone() Tool {
	c := *s
	c.ToolBase = s.CloneBase()
	return &c
}

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return img
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		exec    func(image.Image) (*Result, error)
		success bool
		kind    FailureKind
		message string
	}{
		{
			name:    "empty image",
			img:     image.NewRGBA(image.Rectangle{}),
			kind:    InputMissing,
			message: "no input image",
		},
		{
			name:    "nil image",
			img:     nil,
			kind:    InputMissing,
			message: "no input image",
		},
		{
			name:    "success",
			img:     solid(4, 4),
			success: true,
			message: "ok",
		},
		{
			name: "not trained",
			img:  solid(4, 4),
			exec: func(image.Image) (*Result, error) {
				return nil, fmt.Errorf("template not set: %w", ErrNotTrained)
			},
			kind:    ConfigurationIncomplete,
			message: "template not set: not trained",
		},
		{
			name: "error",
			img:  solid(4, 4),
			exec: func(image.Image) (*Result, error) {
				return nil, errors.New("singular matrix")
			},
			kind:    ComputationFault,
			message: "singular matrix",
		},
		{
			name: "panic",
			img:  solid(4, 4),
			exec: func(image.Image) (*Result, error) {
				var s []int
				_ = s[3]
				return nil, nil
			},
			kind: ComputationFault,
		},
		{
			name: "unclassified failure becomes no detection",
			img:  solid(4, 4),
			exec: func(image.Image) (*Result, error) {
				r := NewResult("")
				return r.Fail(FailureNone, "nothing found"), nil
			},
			kind:    NoDetection,
			message: "nothing found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool := newStub(tt.exec)
			res := Run(tool, tt.img)

			if res.Success != tt.success {
				t.Fatalf("Success: got %v, want %v (%s)", res.Success, tt.success, res.Message)
			}
			if res.Failure != tt.kind {
				t.Errorf("Failure: got %v, want %v", res.Failure, tt.kind)
			}
			if tt.message != "" && res.Message != tt.message {
				t.Errorf("Message: got %q, want %q", res.Message, tt.message)
			}
			if res.ToolID != tool.ID || res.ToolName != "Stub" {
				t.Errorf("result not stamped with tool identity: %q %q", res.ToolID, res.ToolName)
			}
			if tool.LastResult != res {
				t.Error("LastResult not recorded")
			}
		})
	}
}

func TestRun_PassesDeepCopy(t *testing.T) {
	src := solid(3, 3)
	tool := newStub(func(img image.Image) (*Result, error) {
		img.(*image.NRGBA).Set(0, 0, color.Black)
		return NewResult("ok"), nil
	})

	Run(tool, src)

	if src.RGBAAt(0, 0).R != 200 {
		t.Error("tool mutated the caller's image")
	}
}

func TestPassthrough(t *testing.T) {
	tool := newStub(nil)
	src := solid(5, 5)

	res := Passthrough(tool, src)
	if !res.Success || !res.HasOutput() {
		t.Fatalf("passthrough should succeed with output: %+v", res)
	}
	if res.Output == image.Image(src) {
		t.Error("passthrough output must be a copy")
	}
}

func TestToolBase_CloneBase(t *testing.T) {
	tool := newStub(nil)
	tool.ROI = image.Rect(1, 2, 3, 4)
	tool.UseROI = true
	Run(tool, solid(2, 2))

	c := tool.Clone().Base()
	if c.ID == tool.ID {
		t.Error("clone must get a new id")
	}
	if c.ROI != tool.ROI || !c.UseROI || c.Name != tool.Name {
		t.Error("clone must copy configuration")
	}
	if c.LastResult != nil || c.ExecutionTime != 0 {
		t.Error("clone must not copy run history")
	}
}

func TestToolBase_CenterROI(t *testing.T) {
	b := NewToolBase("T", "t")

	b.CenterROI(vimg.Pt(200, 150), image.Pt(100, 100))
	if want := image.Rect(150, 100, 250, 200); b.ROI != want || !b.UseROI {
		t.Errorf("default size: got %v use=%v, want %v", b.ROI, b.UseROI, want)
	}

	b.ROI = image.Rect(0, 0, 40, 20)
	b.CenterROI(vimg.Pt(50, 50), image.Pt(100, 100))
	if want := image.Rect(30, 40, 70, 60); b.ROI != want {
		t.Errorf("kept size: got %v, want %v", b.ROI, want)
	}
}

func TestToolBase_RegionAndRestore(t *testing.T) {
	b := NewToolBase("T", "t")
	b.ROI = image.Rect(10, 10, 20, 20)
	b.UseROI = true
	img := solid(30, 30)

	sub, r, err := b.Region(img)
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if sub.Bounds().Dx() != 10 || r.Min != image.Pt(10, 10) {
		t.Errorf("region: %v at %v", sub.Bounds(), r)
	}

	full := b.Restore(img, sub)
	if full.Bounds() != img.Bounds() {
		t.Errorf("restore bounds: %v", full.Bounds())
	}
	if full.NRGBAAt(0, 0).A != 255 || full.NRGBAAt(0, 0).R != 0 {
		t.Error("outside ROI should be filled black")
	}

	b.ROI = image.Rect(100, 100, 110, 110)
	if _, _, err := b.Region(img); !errors.Is(err, ErrROIOutside) {
		t.Errorf("ROI outside image: got %v, want ErrROIOutside", err)
	}
}
