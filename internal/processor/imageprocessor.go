// imageprocessor.go - Image normalization before vendor calls

package processor

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"net/http"

	"github.com/disintegration/imaging"
)

// NormalizeImage decodes an in-memory image, downscales it when either
// dimension exceeds maxDimension, and re-encodes it. Keeps payloads under
// vendor size limits without the caller having to care about pixel sizes.
// Returns the (possibly unchanged) bytes and the detected MIME type.
func NormalizeImage(data []byte, maxDimension int) ([]byte, string, error) {
	mimeType := DetectMIMEType(data)

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return data, mimeType, nil
	}

	if width > height {
		img = imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
		mimeType = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode processed image: %w", err)
	}

	return buf.Bytes(), mimeType, nil
}

// EnhanceForOCR applies contrast and sharpening tuned for text-heavy
// scans. Used only when preprocessing is enabled in configuration.
func EnhanceForOCR(data []byte, maxDimension int) ([]byte, string, error) {
	mimeType := DetectMIMEType(data)

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		if bounds.Dx() > bounds.Dy() {
			img = imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
		}
	}

	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustContrast(img, 25)
	img = imaging.Grayscale(img)

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
		mimeType = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode processed image: %w", err)
	}

	return buf.Bytes(), mimeType, nil
}

// DetectMIMEType sniffs the image MIME type from the payload bytes.
func DetectMIMEType(data []byte) string {
	mimeType := http.DetectContentType(data)
	switch mimeType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return mimeType
	}
	return "image/jpeg"
}
