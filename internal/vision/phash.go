package vision

import (
	"image"
	"math/bits"
)

const hashSide = 8

// AverageHash computes an 8x8 average perceptual hash: the image is reduced
// to 64 grayscale pixels and each bit records whether its pixel is above the
// mean. Visually similar images differ in only a few bits.
func AverageHash(img image.Image) uint64 {
	small := resizeImage(img, hashSide, hashSide)

	var gray [hashSide * hashSide]uint32
	var sum uint64
	for y := 0; y < hashSide; y++ {
		for x := 0; x < hashSide; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			// Luma approximation over 16-bit channels.
			v := (299*r + 587*g + 114*b) / 1000
			gray[y*hashSide+x] = v
			sum += uint64(v)
		}
	}
	mean := uint32(sum / (hashSide * hashSide))

	var hash uint64
	for i, v := range gray {
		if v > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// HammingDistance counts differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
