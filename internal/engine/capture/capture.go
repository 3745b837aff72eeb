// Package capture writes presented frames to PNG files.
package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/Faultbox/midgard-scene/internal/engine/texture"
)

// Capture names and writes screenshots into a directory.
type Capture struct {
	dir    string
	prefix string
	now    func() time.Time
}

// New returns a Capture writing prefix_<timestamp>.png files into dir. An
// empty dir writes into the working directory.
func New(dir, prefix string) *Capture {
	return &Capture{dir: dir, prefix: prefix, now: time.Now}
}

// Filename returns the path the next capture would be written to.
func (c *Capture) Filename() string {
	name := fmt.Sprintf("%s_%s.png", c.prefix, c.now().Format("2006-01-02_15-04-05"))
	if c.dir != "" {
		name = filepath.Join(c.dir, name)
	}
	return name
}

// SavePixels writes bottom-up RGBA rows as read back from the GPU.
func (c *Capture) SavePixels(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}
	img := &image.RGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	texture.FlipVertical(img)
	return c.Save(img)
}

// Save writes img and returns the file name.
func (c *Capture) Save(img image.Image) (string, error) {
	if c.dir != "" {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := c.Filename()
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}
