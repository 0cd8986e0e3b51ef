package imageconv

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestIsImageDocument(t *testing.T) {
	tests := []struct {
		name, mime string
		want       bool
	}{
		{"photo.JPG", "", true},
		{"scan.webp", "", true},
		{"report.pdf", "application/pdf", false},
		{"noext", "image/png", true},
		{"clip.mp4", "video/mp4", false},
	}
	for _, tt := range tests {
		if got := IsImageDocument(tt.name, tt.mime); got != tt.want {
			t.Errorf("IsImageDocument(%q, %q) = %v, want %v", tt.name, tt.mime, got, tt.want)
		}
	}
}

func TestToPhotoResizesLargeImages(t *testing.T) {
	out, err := ToPhoto(pngBytes(t, 3200, 800))
	if err != nil {
		t.Fatal(err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if format != "jpeg" {
		t.Errorf("format = %s, want jpeg", format)
	}
	if cfg.Width != 1600 || cfg.Height != 400 {
		t.Errorf("size = %dx%d, want 1600x400", cfg.Width, cfg.Height)
	}
}

func TestToPhotoKeepsSmallImages(t *testing.T) {
	out, err := ToPhoto(pngBytes(t, 320, 200))
	if err != nil {
		t.Fatal(err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 320 || cfg.Height != 200 {
		t.Errorf("size = %dx%d, want 320x200", cfg.Width, cfg.Height)
	}
}

func TestToPhotoRejectsGarbage(t *testing.T) {
	if _, err := ToPhoto([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestPhotoName(t *testing.T) {
	if got := PhotoName("holiday.png"); got != "holiday.jpg" {
		t.Errorf("got %q", got)
	}
	if got := PhotoName(""); got != "image.jpg" {
		t.Errorf("got %q", got)
	}
}
