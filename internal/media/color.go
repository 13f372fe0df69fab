package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"sort"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	sampleSize    = 150
	clusterCount  = 5
	maxIterations = 20
	minSaturation = 0.15
)

// RGB is an 8-bit colour.
type RGB struct {
	R, G, B uint8
}

// FallbackColor is returned when no colour can be extracted.
var FallbackColor = RGB{255, 255, 255}

// Hex formats c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HSV converts c to hue, saturation and value, each in [0, 1].
func (c RGB) HSV() (h, s, v float64) {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	v = hi
	if hi == lo {
		return 0, 0, v
	}
	d := hi - lo
	s = d / hi
	switch hi {
	case r:
		h = (g - b) / d
		if h < 0 {
			h += 6
		}
	case g:
		h = 2 + (b-r)/d
	default:
		h = 4 + (r-g)/d
	}
	return h / 6, s, v
}

// Swatch is one colour cluster and the share of pixels assigned to it.
type Swatch struct {
	Color   RGB
	Percent float64
}

// ExtractColor decodes a JPEG, PNG or WebP image and returns its most
// vibrant dominant colour.
func ExtractColor(r io.Reader) (RGB, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return RGB{}, fmt.Errorf("decode image: %w", err)
	}
	swatches := DominantColors(img, clusterCount)
	if len(swatches) == 0 {
		return RGB{}, errors.New("image has no pixels")
	}
	return PickVibrant(swatches), nil
}

// DominantColors scales img down and clusters its pixels into at most k
// colours with k-means. Swatches are ordered most common first.
func DominantColors(img image.Image, k int) []Swatch {
	if img.Bounds().Empty() || k <= 0 {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, sampleSize, sampleSize))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	pixels := make([][3]float64, 0, sampleSize*sampleSize)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		pixels = append(pixels, [3]float64{float64(dst.Pix[i]), float64(dst.Pix[i+1]), float64(dst.Pix[i+2])})
	}

	centroids, counts := kmeans(pixels, k)

	swatches := make([]Swatch, 0, k)
	for i, c := range centroids {
		if counts[i] == 0 {
			continue
		}
		swatches = append(swatches, Swatch{
			Color:   RGB{R: uint8(math.Round(c[0])), G: uint8(math.Round(c[1])), B: uint8(math.Round(c[2]))},
			Percent: float64(counts[i]) / float64(len(pixels)) * 100,
		})
	}
	sort.SliceStable(swatches, func(i, j int) bool { return swatches[i].Percent > swatches[j].Percent })
	return swatches
}

// PickVibrant chooses the swatch with the best mix of saturation, prevalence
// and mid-range brightness. Very dark and near-white swatches are skipped and
// the most common swatch is used when nothing is saturated enough.
func PickVibrant(swatches []Swatch) RGB {
	if len(swatches) == 0 {
		return FallbackColor
	}
	best := swatches[0].Color
	bestScore := 0.0
	for _, sw := range swatches {
		_, s, v := sw.Color.HSV()
		if v < 0.15 || (s < 0.1 && v > 0.9) {
			continue
		}
		brightness := 1 - math.Abs(v-0.7)*0.5
		score := s*s*4 + sw.Percent*0.3/100 + brightness*0.7
		if s >= minSaturation && score > bestScore {
			bestScore = score
			best = sw.Color
		}
	}
	return best
}

// kmeans clusters pixels into k groups. Centroids are seeded from luminance
// quantiles so the result is deterministic.
func kmeans(pixels [][3]float64, k int) ([][3]float64, []int) {
	sorted := make([][3]float64, len(pixels))
	copy(sorted, pixels)
	sort.SliceStable(sorted, func(i, j int) bool { return luma(sorted[i]) < luma(sorted[j]) })

	centroids := make([][3]float64, k)
	for i := range centroids {
		centroids[i] = sorted[(2*i+1)*len(sorted)/(2*k)]
	}

	assign := make([]int, len(pixels))
	for i := range assign {
		assign[i] = -1
	}
	counts := make([]int, k)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		sums := make([][3]float64, k)
		for i := range counts {
			counts[i] = 0
		}
		for i, p := range pixels {
			c := nearest(centroids, p)
			if assign[i] != c {
				assign[i] = c
				changed = true
			}
			counts[c]++
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			sums[c][2] += p[2]
		}
		for i := range centroids {
			if counts[i] == 0 {
				continue
			}
			n := float64(counts[i])
			centroids[i] = [3]float64{sums[i][0] / n, sums[i][1] / n, sums[i][2] / n}
		}
		if !changed {
			break
		}
	}
	return centroids, counts
}

func nearest(centroids [][3]float64, p [3]float64) int {
	best, bestDist := 0, math.MaxFloat64
	for i, c := range centroids {
		dr, dg, db := p[0]-c[0], p[1]-c[1], p[2]-c[2]
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func luma(p [3]float64) float64 {
	return 0.299*p[0] + 0.587*p[1] + 0.114*p[2]
}
