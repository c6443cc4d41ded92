// Package video provides still and motion encoding for rendered frames, plus
// the frame-quality checks used while a camera warms up.
package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality is the quality used for captured stills.
const DefaultJPEGQuality = 95

// RGBToJPEG converts an RGB image to JPEG bytes.
func RGBToJPEG(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// IsBlankFrame reports whether img looks like a camera warm-up frame: too
// small, nearly black, or uniform mid-gray.
func IsBlankFrame(img image.Image) bool {
	bounds := img.Bounds()
	if bounds.Dx() < 16 || bounds.Dy() < 16 {
		return true
	}

	// Sample a 10x10 grid
	var rSum, gSum, bSum int
	samples := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += bounds.Dy() / 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += bounds.Dx() / 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			rSum += int(r >> 8)
			gSum += int(g >> 8)
			bSum += int(b >> 8)
			samples++
		}
	}

	avgR := rSum / samples
	avgG := gSum / samples
	avgB := bSum / samples

	if avgR < 8 && avgG < 8 && avgB < 8 {
		return true
	}

	// Uniform gray (R = G = B)
	colorDiff := abs(avgR-avgG) + abs(avgG-avgB) + abs(avgR-avgB)
	return colorDiff < 15 && avgR > 100 && avgR < 150 && uniform(img, avgR)
}

// uniform reports whether every sampled pixel sits within a small band of avg
func uniform(img image.Image, avg int) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += bounds.Dy() / 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += bounds.Dx() / 10 {
			r, _, _, _ := img.At(x, y).RGBA()
			if abs(int(r>>8)-avg) > 6 {
				return false
			}
		}
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
