package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Info describes a decoded image.
type Info struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Format      string  `json:"format"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// GetInfo decodes just enough of the image to report its dimensions.
func GetInfo(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode image config: %w", err)
	}
	ratio := 0.0
	if cfg.Height > 0 {
		ratio = float64(cfg.Width) / float64(cfg.Height)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format, AspectRatio: ratio}, nil
}

// ResizeToFixedCanvas scales the image to fit inside targetWidth x
// targetHeight while keeping its aspect ratio, centers it on a transparent
// canvas of exactly that size, and re-encodes as PNG.
func ResizeToFixedCanvas(data []byte, targetWidth, targetHeight int) ([]byte, error) {
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", targetWidth, targetHeight)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, fmt.Errorf("image has zero dimension")
	}

	srcRatio := float64(srcW) / float64(srcH)
	targetRatio := float64(targetWidth) / float64(targetHeight)

	var newW, newH int
	if srcRatio > targetRatio {
		newW = targetWidth
		newH = int(float64(targetWidth) / srcRatio)
	} else {
		newH = targetHeight
		newW = int(float64(targetHeight) * srcRatio)
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	xOffset := (targetWidth - newW) / 2
	yOffset := (targetHeight - newH) / 2

	canvas := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	dstRect := image.Rect(xOffset, yOffset, xOffset+newW, yOffset+newH)
	draw.CatmullRom.Scale(canvas, dstRect, src, srcBounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
