package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestAnnotateDrawsBox(t *testing.T) {
	src := solidImage(200, 200, color.NRGBA{0, 0, 0, 255})

	out := Annotate(src, []BoundingBox{
		{X1: 50, Y1: 60, X2: 150, Y2: 160, Confidence: 0.8, ClassName: "pistol"},
	})

	// Border pixels take the box color
	assert.Equal(t, boxColor, out.NRGBAAt(100, 60))
	assert.Equal(t, boxColor, out.NRGBAAt(50, 100))
	assert.Equal(t, boxColor, out.NRGBAAt(150, 100))
	assert.Equal(t, boxColor, out.NRGBAAt(100, 160))

	// Interior is untouched
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(100, 100))
}

func TestAnnotateDoesNotModifySource(t *testing.T) {
	src := solidImage(100, 100, color.NRGBA{10, 10, 10, 255})

	_ = Annotate(src, []BoundingBox{{X1: 10, Y1: 10, X2: 90, Y2: 90}})

	assert.Equal(t, color.NRGBA{10, 10, 10, 255}, src.NRGBAAt(10, 10))
}

func TestAnnotateClampsOutOfRangeBoxes(t *testing.T) {
	src := solidImage(50, 50, color.NRGBA{0, 0, 0, 255})

	// Must not panic on boxes outside the frame
	out := Annotate(src, []BoundingBox{
		{X1: -100, Y1: -100, X2: 500, Y2: 500, ClassName: "big"},
		{X1: 40, Y1: 40, X2: 10, Y2: 10, ClassName: "inverted"},
	})
	assert.NotNil(t, out)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := solidImage(20, 20, color.NRGBA{200, 100, 50, 255})

	for _, ext := range []string{"png", "jpg", "jpeg"} {
		data, err := EncodeImage(src, ext)
		require.NoError(t, err, "ext %q", ext)
		require.NotEmpty(t, data)

		img, err := DecodeImage(data)
		require.NoError(t, err, "ext %q", ext)
		assert.Equal(t, src.Bounds(), img.Bounds())
	}
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	src := solidImage(10, 10, color.NRGBA{})
	_, err := EncodeImage(src, "tiff2")
	assert.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := DecodeImage([]byte("definitely not an image"))
	assert.Error(t, err)
}
