package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestEncodePNG_RoundTrip(t *testing.T) {
	img := createQuadrantImage(40, 20)

	enc, err := EncodePNG(img, 1)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.Width != 40 || enc.Height != 20 || enc.MimeType != "image/png" {
		t.Errorf("unexpected header: %+v", enc)
	}

	dec, err := DecodeBase64(enc.ImageBase64)
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}
	if got := DescribeColor(dec.At(30, 5)).Hex; got != "#00FF00" {
		t.Errorf("decoded pixel: got %s, want #00FF00", got)
	}

	withPrefix, err := DecodeBase64("data:image/png;base64," + enc.ImageBase64)
	if err != nil {
		t.Fatalf("data URI prefix rejected: %v", err)
	}
	if withPrefix.Bounds() != dec.Bounds() {
		t.Errorf("prefixed decode bounds differ: %v vs %v", withPrefix.Bounds(), dec.Bounds())
	}
}

func TestEncodePNG_Scale(t *testing.T) {
	img := createInMemoryImage(100, 50, color.White)

	enc, err := EncodePNG(img, 0.5)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.Width != 50 || enc.Height != 25 {
		t.Errorf("scaled size: got %dx%d, want 50x25", enc.Width, enc.Height)
	}
}

func TestEncodeDecode_Errors(t *testing.T) {
	if _, err := EncodePNG(image.NewRGBA(image.Rectangle{}), 1); err == nil {
		t.Error("empty image should not encode")
	}
	if _, err := DecodeBase64("!!not base64!!"); err == nil {
		t.Error("invalid base64 should fail")
	}
	if _, err := DecodeBase64("aGVsbG8="); err == nil {
		t.Error("non-image payload should fail")
	}
}
