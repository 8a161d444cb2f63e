package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

// Scale bounds for Style.Scale.
const (
	MinScale     = 0.5
	MaxScale     = 2.0
	DefaultScale = 1.0
)

var (
	// ErrInvalidConfiguration is returned for a Style outside its declared ranges.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrRenderFailure is returned when the pixel buffer or font face cannot be built.
	ErrRenderFailure = errors.New("render failure")
)

// Position anchors the HUD box vertically inside the canvas.
type Position int

const (
	PositionCenter Position = iota
	PositionTop
	PositionBottom
)

var positionNames = [...]string{
	PositionCenter: "center",
	PositionTop:    "top",
	PositionBottom: "bottom",
}

// ParsePosition accepts "top", "center" or "bottom" in any case.
func ParsePosition(s string) (Position, error) {
	n := normalize(s)
	for p, name := range positionNames {
		if n == name {
			return Position(p), nil
		}
	}
	return PositionCenter, fmt.Errorf("%w: hud_position %q (allowed: top, center, bottom)", ErrInvalidConfiguration, s)
}

func (p Position) valid() bool { return p >= 0 && int(p) < len(positionNames) }

func (p Position) String() string {
	if !p.valid() {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: position %d", ErrInvalidConfiguration, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(b []byte) error {
	v, err := ParsePosition(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Background selects the HUD fill color.
type Background int

const (
	BackgroundDefault Background = iota
	BackgroundYellow
	BackgroundBlue
	BackgroundGreen
	BackgroundRed
	BackgroundPurple
)

var backgroundNames = [...]string{
	BackgroundDefault: "default",
	BackgroundYellow:  "yellow",
	BackgroundBlue:    "blue",
	BackgroundGreen:   "green",
	BackgroundRed:     "red",
	BackgroundPurple:  "purple",
}

// Background fills in non-premultiplied RGBA. Visual-regression baselines
// depend on these exact values.
var backgroundColors = [...]color.NRGBA{
	BackgroundDefault: {R: 0, G: 0, B: 0, A: 199},
	BackgroundYellow:  {R: 110, G: 87, B: 10, A: 230},
	BackgroundBlue:    {R: 20, G: 56, B: 135, A: 230},
	BackgroundGreen:   {R: 20, G: 89, B: 56, A: 230},
	BackgroundRed:     {R: 120, G: 36, B: 36, A: 230},
	BackgroundPurple:  {R: 92, G: 41, B: 120, A: 230},
}

var (
	textColor          = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	iconColor          = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	borderColorDefault = color.NRGBA{R: 255, G: 255, B: 255, A: 36}
	borderColorNamed   = color.NRGBA{R: 255, G: 255, B: 255, A: 51}
)

// ParseBackground accepts one of default, yellow, blue, green, red, purple.
func ParseBackground(s string) (Background, error) {
	n := normalize(s)
	for b, name := range backgroundNames {
		if n == name {
			return Background(b), nil
		}
	}
	return BackgroundDefault, fmt.Errorf("%w: hud_background_color %q (allowed: default, yellow, blue, green, red, purple)",
		ErrInvalidConfiguration, s)
}

func (b Background) valid() bool { return b >= 0 && int(b) < len(backgroundNames) }

func (b Background) String() string {
	if !b.valid() {
		return fmt.Sprintf("Background(%d)", int(b))
	}
	return backgroundNames[b]
}

// Color returns the fill color.
func (b Background) Color() color.NRGBA {
	if !b.valid() {
		return backgroundColors[BackgroundDefault]
	}
	return backgroundColors[b]
}

// BorderColor returns the outline color drawn on top of the fill.
func (b Background) BorderColor() color.NRGBA {
	if b == BackgroundDefault {
		return borderColorDefault
	}
	return borderColorNamed
}

// MarshalText implements encoding.TextMarshaler.
func (b Background) MarshalText() ([]byte, error) {
	if !b.valid() {
		return nil, fmt.Errorf("%w: background %d", ErrInvalidConfiguration, int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Background) UnmarshalText(text []byte) error {
	v, err := ParseBackground(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Positions lists every accepted position name.
func Positions() []string { return append([]string(nil), positionNames[:]...) }

// Backgrounds lists every accepted background name.
func Backgrounds() []string { return append([]string(nil), backgroundNames[:]...) }

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

// Style is the visual configuration of one render.
type Style struct {
	Position   Position
	Scale      float64
	Background Background
	// Canvas is the output image size. The zero value makes the canvas the
	// HUD box itself, which is what snapshot files contain.
	Canvas image.Point
}

// DefaultStyle returns a centered, unscaled, default-colored style.
func DefaultStyle() Style {
	return Style{Position: PositionCenter, Scale: DefaultScale, Background: BackgroundDefault}
}

// Validate rejects out-of-range scale, unknown enum values and negative canvases.
func (s Style) Validate() error {
	if math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) || s.Scale < MinScale || s.Scale > MaxScale {
		return fmt.Errorf("%w: hud_scale %v outside %v..%v", ErrInvalidConfiguration, s.Scale, MinScale, MaxScale)
	}
	if !s.Position.valid() {
		return fmt.Errorf("%w: hud_position %d", ErrInvalidConfiguration, int(s.Position))
	}
	if !s.Background.valid() {
		return fmt.Errorf("%w: hud_background_color %d", ErrInvalidConfiguration, int(s.Background))
	}
	if s.Canvas.X < 0 || s.Canvas.Y < 0 {
		return fmt.Errorf("%w: canvas %v", ErrInvalidConfiguration, s.Canvas)
	}
	return nil
}
