package images

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	xdraw "golang.org/x/image/draw"
)

// blurHashSize is the target size for BlurHash computation.
// A small thumbnail produces nearly identical hashes in a fraction of the time.
const blurHashSize = 64

// ComputeBlurHash generates a BlurHash placeholder for img using 4x3 components.
func ComputeBlurHash(img image.Image) (string, error) {
	b := img.Bounds()
	if b.Empty() {
		return "", fmt.Errorf("empty image")
	}

	small := img
	if w, h, scaled := fitWithin(b.Dx(), b.Dy(), blurHashSize, blurHashSize); scaled {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		small = dst
	}

	hash, err := blurhash.Encode(4, 3, small)
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
