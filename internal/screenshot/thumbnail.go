package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Thumbnail size limits.
const (
	DefaultThumbnailSize = 320
	MaxThumbnailSize     = 1280
)

// Thumbnail decodes the JPEG at path and returns it scaled so neither side
// exceeds maxDimension, encoded as JPEG. Smaller images are re-encoded
// without scaling.
func Thumbnail(path string, maxDimension int) ([]byte, error) {
	if maxDimension <= 0 {
		maxDimension = DefaultThumbnailSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open screenshot: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	bounds := img.Bounds()
	newWidth, newHeight := thumbnailDimensions(bounds.Dx(), bounds.Dy(), maxDimension)

	out := img
	if newWidth != bounds.Dx() || newHeight != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Str("path", path).
		Int("orig_width", bounds.Dx()).
		Int("orig_height", bounds.Dy()).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Msg("Thumbnail generated")

	return buf.Bytes(), nil
}

// thumbnailDimensions keeps the aspect ratio and never upscales.
func thumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
