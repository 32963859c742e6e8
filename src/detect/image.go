package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImagesDiffer reports whether two encoded snapshots differ by more than
// threshold. Differing dimensions short-circuit to true without any pixel
// comparison; so does a snapshot that cannot be decoded.
func ImagesDiffer(a, b []byte, threshold float64) bool {
	img1, err := decode(a)
	if err != nil {
		log.Printf("Image diff: previous snapshot unreadable, treating as changed: %v", err)
		return true
	}
	img2, err := decode(b)
	if err != nil {
		log.Printf("Image diff: current snapshot unreadable, treating as changed: %v", err)
		return true
	}
	if !sameSize(img1, img2) {
		return true
	}
	return diffSum(img1, img2, threshold) > threshold
}

// DiffSum decodes both snapshots and returns the summed absolute difference
// of their 8-bit R, G and B channels.
func DiffSum(a, b []byte) (float64, error) {
	img1, err := decode(a)
	if err != nil {
		return 0, err
	}
	img2, err := decode(b)
	if err != nil {
		return 0, err
	}
	if !sameSize(img1, img2) {
		return 0, fmt.Errorf("size mismatch: %v vs %v", img1.Bounds().Size(), img2.Bounds().Size())
	}
	return diffSum(img1, img2, -1), nil
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return img, nil
}

func sameSize(a, b image.Image) bool {
	return a.Bounds().Size() == b.Bounds().Size()
}

// diffSum compares straight (non-premultiplied) colour values and ignores
// alpha. It stops early once the running sum exceeds stopAbove; a negative
// stopAbove sums every pixel.
func diffSum(a, b image.Image, stopAbove float64) float64 {
	// The png decoder only yields *image.RGBA for opaque images, where
	// premultiplied and straight values are equal.
	if ra, ok := a.(*image.RGBA); ok {
		if rb, ok := b.(*image.RGBA); ok {
			return diffSumRGBA(ra, rb, stopAbove)
		}
	}

	ba, bb := a.Bounds(), b.Bounds()
	var sum uint64
	for y := 0; y < ba.Dy(); y++ {
		for x := 0; x < ba.Dx(); x++ {
			c1 := color.NRGBAModel.Convert(a.At(ba.Min.X+x, ba.Min.Y+y)).(color.NRGBA)
			c2 := color.NRGBAModel.Convert(b.At(bb.Min.X+x, bb.Min.Y+y)).(color.NRGBA)
			sum += absDiff(uint32(c1.R), uint32(c2.R)) +
				absDiff(uint32(c1.G), uint32(c2.G)) +
				absDiff(uint32(c1.B), uint32(c2.B))
		}
		if stopAbove >= 0 && float64(sum) > stopAbove {
			break
		}
	}
	return float64(sum)
}

func diffSumRGBA(a, b *image.RGBA, stopAbove float64) float64 {
	ba, bb := a.Bounds(), b.Bounds()
	var sum uint64
	for y := 0; y < ba.Dy(); y++ {
		rowA := a.Pix[a.PixOffset(ba.Min.X, ba.Min.Y+y):]
		rowB := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+y):]
		for x := 0; x < ba.Dx(); x++ {
			i := x * 4
			sum += absDiff(uint32(rowA[i]), uint32(rowB[i])) +
				absDiff(uint32(rowA[i+1]), uint32(rowB[i+1])) +
				absDiff(uint32(rowA[i+2]), uint32(rowB[i+2]))
		}
		if stopAbove >= 0 && float64(sum) > stopAbove {
			break
		}
	}
	return float64(sum)
}

func absDiff(x, y uint32) uint64 {
	if x > y {
		return uint64(x - y)
	}
	return uint64(y - x)
}
