// Package textlayout wraps and truncates clipboard text into a bounded block
// of display lines measured in monospace columns.
//
// Every rune occupies one column except East-Asian wide and full-width runes,
// which occupy two. Layout is pure and deterministic: the same text and limits
// always produce the same Result.
package textlayout

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Limits bounds for a single layout request.
const (
	MinCharsPerLine     = 1
	MaxCharsPerLine     = 500
	DefaultCharsPerLine = 100

	MinLines     = 1
	MaxLines     = 20
	DefaultLines = 5
)

// Marker is appended to the last retained line when lines were dropped.
const Marker = "..."

// ErrInvalidConfiguration is returned for limits outside their declared range.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// widthCondition pins ambiguous-width runes to one column so layout does not
// depend on the locale of the process.
var widthCondition = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	c.StrictEmojiNeutral = true
	return c
}()

// Limits caps the size of a layout.
type Limits struct {
	MaxCharsPerLine int
	MaxLines        int
}

// DefaultLimits returns the built-in limits (100 columns, 5 lines).
func DefaultLimits() Limits {
	return Limits{MaxCharsPerLine: DefaultCharsPerLine, MaxLines: DefaultLines}
}

// Validate reports whether both limits are inside their ranges.
func (l Limits) Validate() error {
	if l.MaxCharsPerLine < MinCharsPerLine || l.MaxCharsPerLine > MaxCharsPerLine {
		return fmt.Errorf("%w: max_chars_per_line %d outside %d..%d",
			ErrInvalidConfiguration, l.MaxCharsPerLine, MinCharsPerLine, MaxCharsPerLine)
	}
	if l.MaxLines < MinLines || l.MaxLines > MaxLines {
		return fmt.Errorf("%w: max_lines %d outside %d..%d",
			ErrInvalidConfiguration, l.MaxLines, MinLines, MaxLines)
	}
	return nil
}

// Line is one display line. Lines are never modified after Layout returns.
type Line struct {
	Runes []rune
	Width int
}

// String returns the line text.
func (l Line) String() string { return string(l.Runes) }

// Result is the outcome of a layout request.
type Result struct {
	Lines     []Line
	Truncated bool
}

// Empty reports whether the layout has nothing to display.
func (r Result) Empty() bool { return len(r.Lines) == 0 }

// MaxWidth returns the widest line's width in columns.
func (r Result) MaxWidth() int {
	w := 0
	for _, l := range r.Lines {
		w = max(w, l.Width)
	}
	return w
}

// Text joins the lines with newlines.
func (r Result) Text() string {
	parts := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}

// RuneWidth returns the number of columns r occupies: 2 for wide runes, 1 otherwise.
func RuneWidth(r rune) int {
	if widthCondition.RuneWidth(r) == 2 {
		return 2
	}
	return 1
}

// StringWidth sums RuneWidth over s.
func StringWidth(s string) int {
	w := 0
	for _, r := range s {
		w += RuneWidth(r)
	}
	return w
}

// Layout splits text on newlines, greedily wraps each segment at
// limits.MaxCharsPerLine columns and keeps at most limits.MaxLines lines.
func Layout(text string, limits Limits) (Result, error) {
	if err := limits.Validate(); err != nil {
		return Result{}, err
	}

	var lines []Line
	for _, seg := range segments(text) {
		lines = wrap(lines, seg, limits.MaxCharsPerLine, limits.MaxLines)
		if len(lines) > limits.MaxLines {
			break
		}
	}

	if len(lines) <= limits.MaxLines {
		return Result{Lines: lines}, nil
	}

	lines = lines[:limits.MaxLines]
	last := len(lines) - 1
	lines[last] = withMarker(lines[last], limits.MaxCharsPerLine)
	return Result{Lines: lines, Truncated: true}, nil
}

// segments splits text into sanitized newline-separated runs, dropping
// trailing runs that contain only whitespace.
func segments(text string) [][]rune {
	if text == "" {
		return nil
	}
	raw := strings.Split(text, "\n")
	for len(raw) > 0 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}

	out := make([][]rune, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSuffix(s, "\r")
		seg := make([]rune, 0, len(s))
		for _, r := range s {
			switch {
			case r == '\t':
				seg = append(seg, ' ')
			case unicode.IsControl(r):
				// not printable in a single cell
			default:
				seg = append(seg, r)
			}
		}
		out = append(out, seg)
	}
	return out
}

// wrap appends seg to dst as one or more lines. It stops early once dst holds
// more than maxLines lines since the caller discards the rest anyway.
func wrap(dst []Line, seg []rune, maxWidth, maxLines int) []Line {
	var cur Line
	for _, r := range seg {
		w := RuneWidth(r)
		if len(cur.Runes) > 0 && cur.Width+w > maxWidth {
			dst = append(dst, cur)
			if len(dst) > maxLines {
				return dst
			}
			cur = Line{}
		}
		cur.Runes = append(cur.Runes, r)
		cur.Width += w
	}
	return append(dst, cur)
}

// withMarker appends Marker to l, removing trailing runes until it fits in
// maxWidth columns.
func withMarker(l Line, maxWidth int) Line {
	marker := []rune(Marker)
	markerWidth := len(marker)
	if markerWidth >= maxWidth {
		return Line{Runes: marker[:maxWidth], Width: maxWidth}
	}

	runes, width := l.Runes, l.Width
	for len(runes) > 0 && width+markerWidth > maxWidth {
		width -= RuneWidth(runes[len(runes)-1])
		runes = runes[:len(runes)-1]
	}

	out := make([]rune, 0, len(runes)+markerWidth)
	out = append(out, runes...)
	out = append(out, marker...)
	return Line{Runes: out, Width: width + markerWidth}
}
