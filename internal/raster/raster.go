// Package raster draws a laid-out block of text into a HUD image: a rounded,
// translucent box with a thin border, a clipboard icon and monospace text.
//
// All geometry is derived from a base size multiplied by Style.Scale and
// rounded to whole pixels, so a Render is fully determined by its inputs.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"go.klb.dev/cliip-show/internal/textlayout"
)

// Base geometry at scale 1.
const (
	baseMinWidth   = 200
	baseMinHeight  = 52
	baseHPad       = 16
	baseVPad       = 10
	baseIcon       = 22
	baseGap        = 8
	baseLineHeight = 22
	baseFontSize   = 18
	baseRadius     = 14
	baseBorder     = 1
	baseMargin     = 24
)

// maxPixels bounds the canvas size so a bad request cannot exhaust memory.
const maxPixels = 1 << 26

// Metrics is the pixel geometry of one render.
type Metrics struct {
	Scale      float64
	FontSize   float64
	Cell       int
	LineHeight int
	HPad       int
	VPad       int
	Icon       int
	Gap        int
	Radius     float64
	Border     float64
	Margin     int

	// Width and Height are the HUD box size.
	Width  int
	Height int
	// Text is the top-left of the text block relative to the box.
	Text image.Point
	// IconAt is the top-left of the icon relative to the box.
	IconAt image.Point
}

// Rasterizer renders layouts with the embedded Go Mono font.
type Rasterizer struct {
	font *opentype.Font
}

// New parses the embedded font.
func New() (*Rasterizer, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("%w: parse font: %v", ErrRenderFailure, err)
	}
	return &Rasterizer{font: f}, nil
}

func px(v float64) int { return int(math.Round(v)) }

func clampf(v, lo, hi float64) float64 { return math.Min(math.Max(v, lo), hi) }

func (r *Rasterizer) face(scale float64) (font.Face, error) {
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    baseFontSize * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: font face: %v", ErrRenderFailure, err)
	}
	return face, nil
}

// Measure computes the geometry Render would use without drawing anything.
func (r *Rasterizer) Measure(layout textlayout.Result, style Style) (Metrics, error) {
	if err := style.Validate(); err != nil {
		return Metrics{}, err
	}
	face, err := r.face(style.Scale)
	if err != nil {
		return Metrics{}, err
	}
	defer face.Close()
	return measure(face, layout, style.Scale), nil
}

func measure(face font.Face, layout textlayout.Result, scale float64) Metrics {
	adv, _ := face.GlyphAdvance('0')
	m := Metrics{
		Scale:      scale,
		FontSize:   baseFontSize * scale,
		Cell:       max(1, adv.Ceil()),
		LineHeight: px(baseLineHeight * scale),
		HPad:       px(baseHPad * scale),
		VPad:       px(baseVPad * scale),
		Icon:       px(baseIcon * scale),
		Gap:        px(baseGap * scale),
		Radius:     clampf(baseRadius*scale, 8, 30),
		Border:     clampf(baseBorder*scale, 1, 2.5),
		Margin:     int(clampf(math.Round(baseMargin*scale), 12, 80)),
	}

	textW := layout.MaxWidth() * m.Cell
	textH := len(layout.Lines) * m.LineHeight
	m.Width = max(px(baseMinWidth*scale), 2*m.HPad+m.Icon+m.Gap+textW)
	m.Height = max(px(baseMinHeight*scale), 2*m.VPad+max(textH, m.Icon))

	textTop := (m.Height - textH) / 2
	m.Text = image.Pt(m.HPad+m.Icon+m.Gap, textTop)

	// icon sits beside the first line, or centered when there are no lines
	iconTop := (m.Height - m.Icon) / 2
	if len(layout.Lines) > 0 {
		iconTop = textTop + (m.LineHeight-m.Icon)/2
	}
	m.IconAt = image.Pt(m.HPad, iconTop)
	return m
}

// Origin returns the top-left corner of a w×h box anchored in frame.
// The box is horizontally centered; top and bottom placements keep a
// scaled margin from the frame edge. The result never leaves the frame
// when the box fits.
func Origin(frame image.Rectangle, w, h int, pos Position, scale float64) image.Point {
	fw, fh := frame.Dx(), frame.Dy()
	margin := int(clampf(math.Round(baseMargin*scale), 12, 80))

	x := frame.Min.X + (fw-w)/2
	var y int
	switch pos {
	case PositionTop:
		y = frame.Min.Y + margin
	case PositionBottom:
		y = frame.Max.Y - h - margin
	default:
		y = frame.Min.Y + (fh-h)/2
	}

	x = min(max(x, frame.Min.X), frame.Min.X+max(0, fw-w))
	y = min(max(y, frame.Min.Y), frame.Min.Y+max(0, fh-h))
	return image.Pt(x, y)
}

// Render draws layout into a new image. With a zero Style.Canvas the image is
// exactly the HUD box; otherwise the box is placed in a transparent canvas of
// that size according to Style.Position.
func (r *Rasterizer) Render(layout textlayout.Result, style Style) (*image.RGBA, error) {
	if err := style.Validate(); err != nil {
		return nil, err
	}
	face, err := r.face(style.Scale)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	m := measure(face, layout, style.Scale)
	canvas := style.Canvas
	if canvas.X == 0 || canvas.Y == 0 {
		canvas = image.Pt(m.Width, m.Height)
	}
	if int64(canvas.X)*int64(canvas.Y) > maxPixels {
		return nil, fmt.Errorf("%w: canvas %dx%d exceeds %d pixels", ErrRenderFailure, canvas.X, canvas.Y, maxPixels)
	}
	if int64(m.Width)*int64(m.Height) > maxPixels {
		return nil, fmt.Errorf("%w: hud %dx%d exceeds %d pixels", ErrRenderFailure, m.Width, m.Height, maxPixels)
	}

	// the box is drawn at its own size, then composited clipped to the canvas
	boxImg := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	boxRect := boxImg.Bounds()
	fillRoundedRect(boxImg, boxRect, m.Radius, style.Background.Color())
	strokeRoundedRect(boxImg, boxRect, m.Radius, m.Border, style.Background.BorderColor())
	drawClipboardIcon(boxImg, image.Rectangle{
		Min: m.IconAt,
		Max: m.IconAt.Add(image.Pt(m.Icon, m.Icon)),
	}.Intersect(boxRect), iconColor)
	drawText(boxImg, face, layout, m, m.Text)

	if canvas == boxRect.Size() {
		return boxImg, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, canvas.X, canvas.Y))
	at := Origin(dst.Bounds(), m.Width, m.Height, style.Position, style.Scale)
	draw.Draw(dst, boxRect.Add(at), boxImg, image.Point{}, draw.Src)
	return dst, nil
}

func drawText(dst draw.Image, face font.Face, layout textlayout.Result, m Metrics, origin image.Point) {
	src := image.NewUniform(textColor)
	fm := face.Metrics()
	asc, desc := fm.Ascent.Ceil(), fm.Descent.Ceil()
	baseline := (m.LineHeight-(asc+desc))/2 + asc

	for i, line := range layout.Lines {
		y := origin.Y + i*m.LineHeight + baseline
		col := 0
		for _, ru := range line.Runes {
			w := textlayout.RuneWidth(ru)
			x := fixed.I(origin.X + col*m.Cell)
			if adv, ok := face.GlyphAdvance(ru); ok {
				// center the glyph in its cells
				x += (fixed.I(w*m.Cell) - adv) / 2
			}
			dot := fixed.Point26_6{X: x, Y: fixed.I(y)}
			if dr, mask, mp, _, ok := face.Glyph(dot, ru); ok {
				draw.DrawMask(dst, dr, src, image.Point{}, mask, mp, draw.Over)
			}
			col += w
		}
	}
}

// uniform is a shorthand used by the shape helpers.
func uniform(c color.NRGBA) *image.Uniform { return image.NewUniform(c) }
