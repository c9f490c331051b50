package vision

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixedLabeler struct {
	labels []string
	err    error
}

func (l fixedLabeler) Labels(image.Image) ([]string, error) { return l.labels, l.err }

func TestDescribeSolidImage(t *testing.T) {
	desc, err := NewDescriber(nil).Describe(solidPNG(t, 40, 20, color.RGBA{R: 10, G: 20, B: 200, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, "PNG image, 40x20; mostly blue tones", desc)
}

func TestDescribeWithLabels(t *testing.T) {
	d := NewDescriber(fixedLabeler{labels: []string{"bar chart", "screen"}})
	desc, err := d.Describe(solidPNG(t, 8, 8, color.White))
	require.NoError(t, err)
	assert.Equal(t, "PNG image, 8x8; mostly light; possibly bar chart, screen", desc)
}

func TestDescribeLabelerError(t *testing.T) {
	boom := errors.New("no model")
	_, err := NewDescriber(fixedLabeler{err: boom}).Describe(solidPNG(t, 4, 4, color.Black))
	assert.ErrorIs(t, err, boom)
}

func TestDescribeRejectsGarbage(t *testing.T) {
	_, err := NewDescriber(nil).Describe([]byte("not an image"))
	assert.ErrorContains(t, err, "decode image")
}

func TestToneName(t *testing.T) {
	assert.Equal(t, "dark", toneName(10, 10, 10))
	assert.Equal(t, "grey", toneName(120, 125, 130))
	assert.Equal(t, "red tones", toneName(200, 40, 40))
	assert.Equal(t, "yellow tones", toneName(220, 200, 40))
	assert.Equal(t, "green tones", toneName(40, 200, 40))
}
