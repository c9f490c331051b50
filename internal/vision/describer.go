package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const sampleSize = 32

// Labeler names the content of an image.
type Labeler interface {
	Labels(img image.Image) ([]string, error)
}

// Describer produces the short vision description attached to image
// sources: format, size, dominant tone, and labels when a Labeler is set.
type Describer struct {
	labeler Labeler
}

func NewDescriber(labeler Labeler) *Describer {
	return &Describer{labeler: labeler}
}

func (d *Describer) Describe(data []byte) (string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()

	parts := []string{
		fmt.Sprintf("%s image, %dx%d", strings.ToUpper(format), b.Dx(), b.Dy()),
		"mostly " + dominantTone(img),
	}
	if d.labeler != nil {
		labels, err := d.labeler.Labels(img)
		if err != nil {
			return "", err
		}
		if len(labels) > 0 {
			parts = append(parts, "possibly "+strings.Join(labels, ", "))
		}
	}
	return strings.Join(parts, "; "), nil
}

// dominantTone downsamples img and names the average colour.
func dominantTone(img image.Image) string {
	dst := image.NewRGBA(image.Rect(0, 0, sampleSize, sampleSize))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var r, g, b int
	for y := 0; y < sampleSize; y++ {
		for x := 0; x < sampleSize; x++ {
			c := dst.RGBAAt(x, y)
			r += int(c.R)
			g += int(c.G)
			b += int(c.B)
		}
	}
	n := sampleSize * sampleSize
	return toneName(r/n, g/n, b/n)
}

func toneName(r, g, b int) string {
	maxC, minC := max(r, g, b), min(r, g, b)
	switch {
	case maxC < 48:
		return "dark"
	case minC > 208:
		return "light"
	case maxC-minC < 24:
		return "grey"
	case r == maxC && g >= b+40:
		return "yellow tones"
	case r == maxC:
		return "red tones"
	case g == maxC:
		return "green tones"
	default:
		return "blue tones"
	}
}
