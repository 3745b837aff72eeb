package texture

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"os"

	_ "golang.org/x/image/bmp" // BMP decoder registration
	"golang.org/x/image/draw"

	"github.com/Faultbox/midgard-scene/internal/engine/node"
)

// Load reads and decodes an image file into RGBA.
func Load(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding texture %s: %w", path, err)
	}
	if format == "tga" {
		return img.(*image.RGBA), nil
	}
	return ToRGBA(img), nil
}

// ToRGBA converts img to RGBA with its origin moved to (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}

// Solid returns a 1x1 image of a single color.
func Solid(r, g, b, a uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(img.Pix, []uint8{r, g, b, a})
	return img
}

// Classify derives a transparency tag from alpha coverage: fully opaque
// images are Opaque, images whose alpha is only 0 or 255 are
// FullyTransparent, anything else is PartiallyTransparent.
func Classify(img *image.RGBA) node.Transparency {
	tag := node.Opaque
	for i := 3; i < len(img.Pix); i += 4 {
		switch img.Pix[i] {
		case 255:
		case 0:
			tag = node.FullyTransparent
		default:
			return node.PartiallyTransparent
		}
	}
	return tag
}

// FlipVertical flips img in place, converting between image row order and
// the bottom-up order OpenGL expects.
func FlipVertical(img *image.RGBA) {
	h := img.Rect.Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
