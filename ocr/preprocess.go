package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Preprocessing constants. The stage order is fixed; the parameters are
// plain defaults, not tuned per document.
const denoiseRadius = 1 // 3x3 box blur

// Preprocess prepares a rendered page bitmap for recognition. The stages run
// in a fixed order: grayscale conversion, box-blur denoise, Otsu global
// binarization. Input and output are PNG encoded.
func Preprocess(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode bitmap: %w", err)
	}

	gray := toGray(img)
	gray = boxBlur(gray, denoiseRadius)
	gray = binarize(gray, otsuThreshold(gray))

	var out bytes.Buffer
	if err := png.Encode(&out, gray); err != nil {
		return nil, fmt.Errorf("encode bitmap: %w", err)
	}
	return out.Bytes(), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	xdraw.Draw(gray, bounds, img, bounds.Min, xdraw.Src)
	return gray
}

// boxBlur averages each pixel with its (2r+1)^2 neighborhood, clamping at
// the image border.
func boxBlur(src *image.Gray, radius int) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var sum, count int
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := x+dx, y+dy
					if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
						continue
					}
					sum += int(src.GrayAt(nx, ny).Y)
					count++
				}
			}
			dst.SetGray(x, y, color8(sum/count))
		}
	}
	return dst
}

// otsuThreshold picks the global threshold that maximizes between-class
// variance of the gray histogram.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 128
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * float64(n)
	}

	var (
		best    uint8
		bestVar float64
		wBack   float64
		sumBack float64
		totalF  = float64(total)
	)
	for t := 0; t < 256; t++ {
		wBack += float64(hist[t])
		if wBack == 0 {
			continue
		}
		wFore := totalF - wBack
		if wFore == 0 {
			break
		}
		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / wBack
		meanFore := (sumAll - sumBack) / wFore
		diff := meanBack - meanFore
		between := wBack * wFore * diff * diff
		if between > bestVar {
			bestVar = between
			best = uint8(t)
		}
	}
	return best
}

func color8(v int) color.Gray { return color.Gray{Y: uint8(v)} }

func binarize(src *image.Gray, threshold uint8) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if src.GrayAt(x, y).Y > threshold {
				dst.SetGray(x, y, color8(255))
			} else {
				dst.SetGray(x, y, color8(0))
			}
		}
	}
	return dst
}
