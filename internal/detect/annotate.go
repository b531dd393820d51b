package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor   = color.NRGBA{R: 220, G: 40, B: 40, A: 255}
	labelColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const boxThickness = 2

// DecodeImage decodes an encoded image (png/jpeg)
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodeImage encodes an image in the format implied by the extension
func EncodeImage(img image.Image, ext string) ([]byte, error) {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("unsupported output format %q: %w", ext, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Annotate overlays bounding boxes and class labels on a copy of the source
// image. The source is never modified.
func Annotate(src image.Image, boxes []BoundingBox) *image.NRGBA {
	out := imaging.Clone(src)
	bounds := out.Bounds()

	for _, box := range boxes {
		x1 := clamp(int(box.X1), bounds.Min.X, bounds.Max.X-1)
		y1 := clamp(int(box.Y1), bounds.Min.Y, bounds.Max.Y-1)
		x2 := clamp(int(box.X2), bounds.Min.X, bounds.Max.X-1)
		y2 := clamp(int(box.Y2), bounds.Min.Y, bounds.Max.Y-1)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		drawRect(out, x1, y1, x2, y2)
		drawLabel(out, x1, y1, fmt.Sprintf("%s %.2f", box.ClassName, box.Confidence))
	}

	return out
}

// drawRect draws a rectangle outline of boxThickness pixels
func drawRect(img *image.NRGBA, x1, y1, x2, y2 int) {
	for t := 0; t < boxThickness; t++ {
		for x := x1; x <= x2; x++ {
			img.SetNRGBA(x, y1+t, boxColor)
			img.SetNRGBA(x, y2-t, boxColor)
		}
		for y := y1; y <= y2; y++ {
			img.SetNRGBA(x1+t, y, boxColor)
			img.SetNRGBA(x2-t, y, boxColor)
		}
	}
}

// drawLabel renders the class label just above the box, inside the image
func drawLabel(img *image.NRGBA, x, y int, label string) {
	const lineHeight = 13

	ty := y - 4
	if ty < lineHeight {
		ty = y + lineHeight + 2
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, ty),
	}

	// Solid background strip so the text stays readable on any frame
	w := d.MeasureString(label).Ceil()
	for yy := ty - lineHeight + 2; yy <= ty+2; yy++ {
		for xx := x; xx < x+w; xx++ {
			img.SetNRGBA(xx, yy, boxColor)
		}
	}

	d.DrawString(label)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
