package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/raster"
	"go.klb.dev/cliip-show/internal/textlayout"
)

// File is the on-disk configuration. Nil fields are not set in the file.
type File struct {
	Display Display `mapstructure:"display"`
}

// Display is the [display] table.
type Display struct {
	PollIntervalSecs   *float64 `mapstructure:"poll_interval_secs"`
	HUDDurationSecs    *float64 `mapstructure:"hud_duration_secs"`
	MaxCharsPerLine    *int     `mapstructure:"max_chars_per_line"`
	MaxLines           *int     `mapstructure:"max_lines"`
	HUDPosition        *string  `mapstructure:"hud_position"`
	HUDScale           *float64 `mapstructure:"hud_scale"`
	HUDBackgroundColor *string  `mapstructure:"hud_background_color"`
}

// warn is a hook so tests can observe fallbacks.
var warn = slog.Warn

// Load reads the file at path. A missing file is not an error; exists
// reports whether it was found.
func Load(path string) (f File, exists bool, err error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, false, nil
		}
		return File{}, false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return File{}, true, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := v.Unmarshal(&f); err != nil {
		return File{}, true, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return f, true, nil
}

// Save writes f as TOML, creating parent directories. The file is replaced
// atomically.
func Save(path string, f File) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	for k, val := range f.values() {
		v.Set("display."+k.String(), val)
	}

	// viper picks the encoder from the extension, so stage under .toml
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpName)

	if err := v.WriteConfigAs(tmpName); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// values returns the set fields keyed by Key.
func (f File) values() map[Key]any {
	d := f.Display
	out := make(map[Key]any)
	if d.PollIntervalSecs != nil {
		out[KeyPollIntervalSecs] = *d.PollIntervalSecs
	}
	if d.HUDDurationSecs != nil {
		out[KeyHUDDurationSecs] = *d.HUDDurationSecs
	}
	if d.MaxCharsPerLine != nil {
		out[KeyMaxCharsPerLine] = *d.MaxCharsPerLine
	}
	if d.MaxLines != nil {
		out[KeyMaxLines] = *d.MaxLines
	}
	if d.HUDPosition != nil {
		out[KeyHUDPosition] = *d.HUDPosition
	}
	if d.HUDScale != nil {
		out[KeyHUDScale] = *d.HUDScale
	}
	if d.HUDBackgroundColor != nil {
		out[KeyHUDBackgroundColor] = *d.HUDBackgroundColor
	}
	return out
}

// Lines renders the keys set in f as "key = value", in key order.
func (f File) Lines() []string {
	vals := f.values()
	var out []string
	for k := range keyNames {
		v, ok := vals[Key(k)]
		if !ok {
			continue
		}
		s := fmt.Sprint(v)
		if fv, ok := v.(float64); ok {
			s = formatFloat(fv)
		}
		out = append(out, fmt.Sprintf("%s = %s", keyNames[k], s))
	}
	return out
}

// Apply overlays the values set in f onto base. Numbers are clamped into
// range; non-finite numbers and unknown enum names keep the base value.
func (f File) Apply(base Settings) Settings {
	s, d := base, f.Display
	if d.PollIntervalSecs != nil {
		s.PollIntervalSecs = clampFloat(*d.PollIntervalSecs, s.PollIntervalSecs, MinPollIntervalSecs, MaxPollIntervalSecs)
	}
	if d.HUDDurationSecs != nil {
		s.HUDDurationSecs = clampFloat(*d.HUDDurationSecs, s.HUDDurationSecs, MinHUDDurationSecs, MaxHUDDurationSecs)
	}
	if d.MaxCharsPerLine != nil {
		s.MaxCharsPerLine = clampInt(*d.MaxCharsPerLine, textlayout.MinCharsPerLine, textlayout.MaxCharsPerLine)
	}
	if d.MaxLines != nil {
		s.MaxLines = clampInt(*d.MaxLines, textlayout.MinLines, textlayout.MaxLines)
	}
	if d.HUDPosition != nil {
		if p, err := raster.ParsePosition(*d.HUDPosition); err == nil {
			s.HUDPosition = p
		} else {
			warn("config file value ignored", "key", KeyHUDPosition.String(), "err", err)
		}
	}
	if d.HUDScale != nil {
		s.HUDScale = clampFloat(*d.HUDScale, s.HUDScale, raster.MinScale, raster.MaxScale)
	}
	if d.HUDBackgroundColor != nil {
		if b, err := raster.ParseBackground(*d.HUDBackgroundColor); err == nil {
			s.HUDBackground = b
		} else {
			warn("config file value ignored", "key", KeyHUDBackgroundColor.String(), "err", err)
		}
	}
	return s
}

func clampFloat(v, fallback, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return math.Min(math.Max(v, lo), hi)
}

func clampInt(v, lo, hi int) int { return min(max(v, lo), hi) }

// Set parses raw for key and stores it in f. Out-of-range numbers are
// clamped and reported in the returned warning. Unparsable numbers,
// non-finite numbers and unknown enum names are rejected with
// ErrInvalidValue and leave f unchanged.
func (f *File) Set(key Key, raw string) (warning string, err error) {
	raw = strings.TrimSpace(raw)
	d := &f.Display
	switch key {
	case KeyPollIntervalSecs:
		return setFloat(&d.PollIntervalSecs, key, raw, MinPollIntervalSecs, MaxPollIntervalSecs)
	case KeyHUDDurationSecs:
		return setFloat(&d.HUDDurationSecs, key, raw, MinHUDDurationSecs, MaxHUDDurationSecs)
	case KeyHUDScale:
		return setFloat(&d.HUDScale, key, raw, raster.MinScale, raster.MaxScale)
	case KeyMaxCharsPerLine:
		return setInt(&d.MaxCharsPerLine, key, raw, textlayout.MinCharsPerLine, textlayout.MaxCharsPerLine)
	case KeyMaxLines:
		return setInt(&d.MaxLines, key, raw, textlayout.MinLines, textlayout.MaxLines)
	case KeyHUDPosition:
		p, err := raster.ParsePosition(raw)
		if err != nil {
			return "", fmt.Errorf("%w: invalid hud_position value: %s (allowed: %s)",
				ErrInvalidValue, raw, strings.Join(raster.Positions(), ", "))
		}
		name := p.String()
		d.HUDPosition = &name
	case KeyHUDBackgroundColor:
		b, err := raster.ParseBackground(raw)
		if err != nil {
			return "", fmt.Errorf("%w: invalid hud_background_color value: %s (allowed: %s)",
				ErrInvalidValue, raw, strings.Join(raster.Backgrounds(), ", "))
		}
		name := b.String()
		d.HUDBackgroundColor = &name
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return "", nil
}

func setFloat(dst **float64, key Key, raw string, lo, hi float64) (string, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return "", fmt.Errorf("%w: invalid f64 value for %s: %s", ErrInvalidValue, key, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: invalid finite f64 value for %s: %s", ErrInvalidValue, key, raw)
	}
	c := math.Min(math.Max(v, lo), hi)
	*dst = &c
	if c != v {
		return fmt.Sprintf("%s was clamped from %s to %s (allowed range: %s..=%s)",
			key, formatFloat(v), formatFloat(c), formatFloat(lo), formatFloat(hi)), nil
	}
	return "", nil
}

func setInt(dst **int, key Key, raw string, lo, hi int) (string, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return "", fmt.Errorf("%w: invalid integer value for %s: %s", ErrInvalidValue, key, raw)
	}
	c := hi
	if v <= uint64(hi) {
		c = max(int(v), lo)
	}
	*dst = &c
	if v < uint64(lo) || v > uint64(hi) {
		return fmt.Sprintf("%s was clamped from %s to %d (allowed range: %d..=%d)",
			key, raw, c, lo, hi), nil
	}
	return "", nil
}
