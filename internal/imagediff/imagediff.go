// Package imagediff compares two images pixel by pixel and optionally
// produces a highlight image marking every differing pixel.
package imagediff

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var (
	// ErrDimensionMismatch is returned when the two images differ in size.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrDecodeFailure is returned when an input cannot be read or decoded.
	ErrDecodeFailure = errors.New("decode failure")
)

// HighlightColor is the color of mismatched pixels in a highlight image.
var HighlightColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// Report tells how many pixels differ.
type Report struct {
	DiffPixels  int
	TotalPixels int
	// Highlight is nil unless WithHighlight was passed.
	Highlight *image.NRGBA
}

// Equal reports whether no pixel differs.
func (r Report) Equal() bool { return r.DiffPixels == 0 }

// WithinPermille reports whether at most n of every 1000 pixels differ.
func (r Report) WithinPermille(n int) bool {
	if r.TotalPixels == 0 {
		return r.DiffPixels == 0
	}
	return int64(r.DiffPixels)*1000 <= int64(n)*int64(r.TotalPixels)
}

type options struct {
	highlight bool
}

// Option configures Diff.
type Option func(*options)

// WithHighlight makes Diff build a copy of current with mismatches painted red.
func WithHighlight() Option {
	return func(o *options) { o.highlight = true }
}

// Diff compares baseline and current. Two pixels are equal when all four
// non-premultiplied channels match. 8-bit inputs compare as 8-bit NRGBA;
// when either input carries 16 bits per channel both compare as NRGBA64 so
// low-byte differences are not lost.
func Diff(baseline, current image.Image, opts ...Option) (Report, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bs, cs := baseline.Bounds().Size(), current.Bounds().Size()
	if bs != cs {
		return Report{}, fmt.Errorf("%w: baseline %dx%d, current %dx%d",
			ErrDimensionMismatch, bs.X, bs.Y, cs.X, cs.Y)
	}

	w, h := bs.X, bs.Y
	res := Report{TotalPixels: w * h}
	if o.highlight {
		res.Highlight = image.NewNRGBA(image.Rect(0, 0, w, h))
		copy(res.Highlight.Pix, normalize(current).Pix)
	}

	var rowA, rowB func(y int) []byte
	bpp := 4
	if deep(baseline) || deep(current) {
		a, b := normalize64(baseline), normalize64(current)
		rowA = func(y int) []byte { return a.Pix[y*a.Stride : y*a.Stride+w*8] }
		rowB = func(y int) []byte { return b.Pix[y*b.Stride : y*b.Stride+w*8] }
		bpp = 8
	} else {
		a, b := normalize(baseline), normalize(current)
		rowA = func(y int) []byte { return a.Pix[y*a.Stride : y*a.Stride+w*4] }
		rowB = func(y int) []byte { return b.Pix[y*b.Stride : y*b.Stride+w*4] }
	}

	for y := 0; y < h; y++ {
		ra, rb := rowA(y), rowB(y)
		for x := 0; x < w; x++ {
			i := x * bpp
			if bytes.Equal(ra[i:i+bpp], rb[i:i+bpp]) {
				continue
			}
			res.DiffPixels++
			if res.Highlight != nil {
				res.Highlight.SetNRGBA(x, y, HighlightColor)
			}
		}
	}
	return res, nil
}

// deep reports whether img may carry more than 8 bits per channel.
func deep(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.RGBA, *image.Gray, *image.Alpha, *image.Paletted,
		*image.YCbCr, *image.NYCbCrA, *image.CMYK, *image.Uniform:
		return false
	}
	return true
}

// normalize returns img as an NRGBA image anchored at the origin with a
// stride of exactly 4*width.
func normalize(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

// normalize64 is normalize at 16 bits per channel.
func normalize64(img image.Image) *image.NRGBA64 {
	if n, ok := img.(*image.NRGBA64); ok && n.Rect.Min == (image.Point{}) && n.Stride == 8*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

// DecodeReader decodes a PNG, BMP or TIFF image.
func DecodeReader(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return img, nil
}

// Decode opens and decodes the image at path.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	defer f.Close()
	img, err := DecodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// WritePNG encodes img to path atomically via a temporary file in the same
// directory, creating parent directories as needed.
func WritePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
