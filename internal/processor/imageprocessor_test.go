package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeImageLeavesSmallImagesUntouched(t *testing.T) {
	data := encodePNG(t, 100, 50)

	out, mimeType, err := NormalizeImage(data, 2000)
	if err != nil {
		t.Fatalf("NormalizeImage: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", mimeType)
	}
	if !bytes.Equal(out, data) {
		t.Error("images under the limit should pass through unchanged")
	}
}

func TestNormalizeImageDownscalesOversizedImages(t *testing.T) {
	data := encodePNG(t, 400, 100)

	out, mimeType, err := NormalizeImage(data, 200)
	if err != nil {
		t.Fatalf("NormalizeImage: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", mimeType)
	}

	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := img.Bounds().Dx(); got != 200 {
		t.Errorf("width = %d, want 200", got)
	}
	if got := img.Bounds().Dy(); got != 50 {
		t.Errorf("height = %d, want 50 (aspect ratio preserved)", got)
	}
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	if _, _, err := NormalizeImage([]byte("not an image"), 2000); err == nil {
		t.Error("want error for undecodable payload")
	}
}

func TestEnhanceForOCRKeepsFormatAndBounds(t *testing.T) {
	data := encodePNG(t, 300, 300)

	out, mimeType, err := EnhanceForOCR(data, 200)
	if err != nil {
		t.Fatalf("EnhanceForOCR: %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", mimeType)
	}

	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 200 {
		t.Errorf("bounds = %v, want 200x200", img.Bounds())
	}
}

func TestDetectMIMEType(t *testing.T) {
	if got := DetectMIMEType(encodePNG(t, 2, 2)); got != "image/png" {
		t.Errorf("png: got %q", got)
	}
	if got := DetectMIMEType([]byte("plain text")); got != "image/jpeg" {
		t.Errorf("unknown payloads should fall back to image/jpeg, got %q", got)
	}
}
