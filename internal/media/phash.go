package media

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"
	"strconv"

	"github.com/corona10/goimagehash"
)

// DefaultHammingThreshold separates "same shot" from "new content" for
// 64-bit perceptual hashes. Distances at or below it are near-duplicates.
const DefaultHammingThreshold = 6

// PerceptualHash computes the 64-bit pHash of an image file and returns it
// as a 16-char lowercase hex string, the stored representation.
func PerceptualHash(imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open frame image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode frame image %s: %w", imagePath, err)
	}

	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("phash %s: %w", imagePath, err)
	}
	return fmt.Sprintf("%016x", h.GetHash()), nil
}

// HammingDistanceHex compares two stored hex hashes.
func HammingDistanceHex(a, b string) (int, error) {
	av, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse phash %q: %w", a, err)
	}
	bv, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse phash %q: %w", b, err)
	}
	return bits.OnesCount64(av ^ bv), nil
}
