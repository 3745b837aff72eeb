// Package texture decodes material images and classifies them by alpha
// coverage.
package texture

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

const tgaHeaderSize = 18

// ErrTGATruncated is returned when pixel data ends early.
var ErrTGATruncated = errors.New("tga: data truncated")

func init() {
	// TGA has no magic number; the empty prefix makes it the decoder of last resort.
	image.RegisterFormat("tga", "", decodeTGAReader, decodeTGAConfig)
}

func decodeTGAReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tga: %w", err)
	}
	return DecodeTGA(data)
}

func decodeTGAConfig(r io.Reader) (image.Config, error) {
	var hdr [tgaHeaderSize]byte
	if _, err := io.ReadFull(bufio.NewReader(r), hdr[:]); err != nil {
		return image.Config{}, fmt.Errorf("tga: %w", err)
	}
	h, err := parseTGAHeader(hdr[:])
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: h.width, Height: h.height}, nil
}

type tgaHeader struct {
	idLength    int
	imageType   byte
	width       int
	height      int
	bytesPP     int
	topToBottom bool
}

func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < tgaHeaderSize {
		return tgaHeader{}, ErrTGATruncated
	}
	h := tgaHeader{
		idLength:    int(data[0]),
		imageType:   data[2],
		width:       int(data[12]) | int(data[13])<<8,
		height:      int(data[14]) | int(data[15])<<8,
		bytesPP:     int(data[16]) / 8,
		topToBottom: data[17]&0x20 != 0,
	}
	if data[1] != 0 {
		return h, fmt.Errorf("tga: color-mapped images not supported")
	}
	if h.imageType != TGATypeUncompressed && h.imageType != TGATypeRLE {
		return h, fmt.Errorf("tga: unsupported image type %d", h.imageType)
	}
	if h.bytesPP != 3 && h.bytesPP != 4 {
		return h, fmt.Errorf("tga: unsupported bit depth %d", data[16])
	}
	return h, nil
}

// DecodeTGA decodes an uncompressed or RLE true-color TGA image.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}
	offset := tgaHeaderSize + h.idLength
	if offset > len(data) {
		return nil, ErrTGATruncated
	}

	w := &tgaWriter{
		img: image.NewRGBA(image.Rect(0, 0, h.width, h.height)),
		h:   h,
	}
	src := data[offset:]
	if h.imageType == TGATypeUncompressed {
		err = w.raw(src)
	} else {
		err = w.rle(src)
	}
	if err != nil {
		return nil, err
	}
	return w.img, nil
}

// tgaWriter places decoded pixels in file order, flipping bottom-up images.
type tgaWriter struct {
	img *image.RGBA
	h   tgaHeader
	n   int
}

func (w *tgaWriter) total() int { return w.h.width * w.h.height }

func (w *tgaWriter) pixel(p []byte) color.RGBA {
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if w.h.bytesPP == 4 {
		c.A = p[3]
	}
	return c
}

func (w *tgaWriter) put(c color.RGBA) {
	x, y := w.n%w.h.width, w.n/w.h.width
	if !w.h.topToBottom {
		y = w.h.height - 1 - y
	}
	w.img.SetRGBA(x, y, c)
	w.n++
}

func (w *tgaWriter) raw(src []byte) error {
	bpp := w.h.bytesPP
	if len(src) < w.total()*bpp {
		return ErrTGATruncated
	}
	for w.n < w.total() {
		i := w.n * bpp
		w.put(w.pixel(src[i : i+bpp]))
	}
	return nil
}

func (w *tgaWriter) rle(src []byte) error {
	bpp := w.h.bytesPP
	i := 0
	for w.n < w.total() {
		if i >= len(src) {
			return ErrTGATruncated
		}
		packet := src[i]
		i++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if i+bpp > len(src) {
				return ErrTGATruncated
			}
			c := w.pixel(src[i : i+bpp])
			i += bpp
			for k := 0; k < count && w.n < w.total(); k++ {
				w.put(c)
			}
			continue
		}
		for k := 0; k < count && w.n < w.total(); k++ {
			if i+bpp > len(src) {
				return ErrTGATruncated
			}
			w.put(w.pixel(src[i : i+bpp]))
			i += bpp
		}
	}
	return nil
}
