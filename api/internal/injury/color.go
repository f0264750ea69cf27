package injury

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// maxSampledPixels bounds the work done per image; larger images are strided.
const maxSampledPixels = 250_000

// IsBloodRed reports whether an 8-bit RGB colour falls in the blood-like band.
func IsBloodRed(r, g, b float64) bool {
	return r >= 120 && r > 1.6*g && r > 1.6*b
}

var bloodColorNames = []string{"red", "crimson", "scarlet", "maroon", "burgundy", "blood"}

func isBloodColorName(name string) bool {
	n := strings.ToLower(name)
	for _, w := range bloodColorNames {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

// RedDominance samples the image and returns whether blood-like pixels exceed
// RedPixelThreshold, together with the measured share.
func RedDominance(img image.Image) (bool, float64) {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total <= 0 {
		return false, 0
	}
	stride := 1
	for total/(stride*stride) > maxSampledPixels {
		stride++
	}

	var seen, red int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, _ := img.At(x, y).RGBA()
			seen++
			if IsBloodRed(float64(r>>8), float64(g>>8), float64(b>>8)) {
				red++
			}
		}
	}
	share := float64(red) / float64(seen)
	return share > RedPixelThreshold, share
}

// DecodeRedDominance decodes JPEG, PNG or GIF bytes and runs RedDominance.
func DecodeRedDominance(data []byte) (bool, float64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false, 0, fmt.Errorf("decode image: %w", err)
	}
	red, share := RedDominance(img)
	return red, share, nil
}
