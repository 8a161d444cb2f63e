package imagediff

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDiffIdentical(t *testing.T) {
	a := solid(4, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	b := solid(4, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	res, err := Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DiffPixels)
	assert.Equal(t, 12, res.TotalPixels)
	assert.True(t, res.Equal())
	assert.Nil(t, res.Highlight)
}

func TestDiffCountsChangedPixels(t *testing.T) {
	a := solid(2, 2, color.NRGBA{A: 255})
	b := solid(2, 2, color.NRGBA{A: 255})
	b.SetNRGBA(1, 0, color.NRGBA{R: 1, A: 255})

	res, err := Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DiffPixels)
	assert.Equal(t, 4, res.TotalPixels)
	assert.False(t, res.Equal())
}

func TestDiffAlphaOnlyChange(t *testing.T) {
	a := solid(1, 1, color.NRGBA{R: 9, A: 255})
	b := solid(1, 1, color.NRGBA{R: 9, A: 254})
	res, err := Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DiffPixels)
}

func TestDiffDimensionMismatch(t *testing.T) {
	_, err := Diff(solid(2, 2, color.NRGBA{}), solid(3, 2, color.NRGBA{}))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDiffHighlight(t *testing.T) {
	base := solid(3, 1, color.NRGBA{G: 200, A: 255})
	cur := solid(3, 1, color.NRGBA{G: 200, A: 255})
	cur.SetNRGBA(2, 0, color.NRGBA{B: 200, A: 255})

	res, err := Diff(base, cur, WithHighlight())
	require.NoError(t, err)
	require.NotNil(t, res.Highlight)
	assert.Equal(t, cur.NRGBAAt(0, 0), res.Highlight.NRGBAAt(0, 0))
	assert.Equal(t, cur.NRGBAAt(1, 0), res.Highlight.NRGBAAt(1, 0))
	assert.Equal(t, HighlightColor, res.Highlight.NRGBAAt(2, 0))

	// the input is left untouched
	assert.Equal(t, color.NRGBA{B: 200, A: 255}, cur.NRGBAAt(2, 0))
}

func TestDiffNormalizesFormats(t *testing.T) {
	n := solid(2, 2, color.NRGBA{R: 255, A: 255})
	r := image.NewRGBA(image.Rect(5, 5, 7, 7))
	for y := 5; y < 7; y++ {
		for x := 5; x < 7; x++ {
			r.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	res, err := Diff(n, r)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DiffPixels)

	// a sub-image has a stride wider than its width
	big := solid(6, 6, color.NRGBA{R: 255, A: 255})
	sub := big.SubImage(image.Rect(1, 1, 3, 3))
	res, err = Diff(n, sub)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DiffPixels)
}

func solid64(w, h int, c color.NRGBA64) *image.NRGBA64 {
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA64(x, y, c)
		}
	}
	return img
}

func TestDiffSixteenBitLowByte(t *testing.T) {
	a := solid64(2, 2, color.NRGBA64{R: 0x1200, G: 0x3400, B: 0x5600, A: 0xffff})
	b := solid64(2, 2, color.NRGBA64{R: 0x1200, G: 0x3400, B: 0x5600, A: 0xffff})
	b.SetNRGBA64(0, 0, color.NRGBA64{R: 0x1201, G: 0x3400, B: 0x5600, A: 0xffff})

	res, err := Diff(a, b, WithHighlight())
	require.NoError(t, err)
	assert.Equal(t, 1, res.DiffPixels)
	assert.Equal(t, 4, res.TotalPixels)
	assert.Equal(t, HighlightColor, res.Highlight.NRGBAAt(0, 0))
	assert.NotEqual(t, HighlightColor, res.Highlight.NRGBAAt(1, 1))

	same, err := Diff(a, solid64(2, 2, color.NRGBA64{R: 0x1200, G: 0x3400, B: 0x5600, A: 0xffff}))
	require.NoError(t, err)
	assert.True(t, same.Equal())
}

func TestDiffMixedDepth(t *testing.T) {
	// an 8-bit value widened to 16 bits compares equal to its 16-bit form
	eight := solid(1, 1, color.NRGBA{R: 0x12, A: 0xff})
	sixteen := solid64(1, 1, color.NRGBA64{R: 0x1212, A: 0xffff})
	res, err := Diff(eight, sixteen)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DiffPixels)

	sixteen.SetNRGBA64(0, 0, color.NRGBA64{R: 0x1213, A: 0xffff})
	res, err = Diff(eight, sixteen)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DiffPixels)
}

func TestWithinPermille(t *testing.T) {
	assert.True(t, Report{DiffPixels: 1, TotalPixels: 1000}.WithinPermille(1))
	assert.False(t, Report{DiffPixels: 2, TotalPixels: 1000}.WithinPermille(1))
	assert.True(t, Report{}.WithinPermille(0))
}

func TestWritePNGAndDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.png")
	img := solid(5, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 128})

	require.NoError(t, WritePNG(path, img))
	got, err := Decode(path)
	require.NoError(t, err)

	res, err := Diff(img, got)
	require.NoError(t, err)
	assert.True(t, res.Equal())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
}

func TestDecodeBMP(t *testing.T) {
	img := solid(3, 3, color.NRGBA{R: 40, G: 50, B: 60, A: 255})
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))

	got, err := DecodeReader(&buf)
	require.NoError(t, err)
	res, err := Diff(img, got)
	require.NoError(t, err)
	assert.True(t, res.Equal())
}

func TestDecodeFailures(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, ErrDecodeFailure)

	_, err = DecodeReader(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrDecodeFailure)
}
