// Package config resolves cliip-show display settings from built-in
// defaults, an optional TOML file and CLIIP_SHOW_* environment variables,
// in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"go.klb.dev/cliip-show/internal/hud"
	"go.klb.dev/cliip-show/internal/raster"
	"go.klb.dev/cliip-show/internal/textlayout"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "CLIIP_SHOW"

// PathEnv overrides the config file location.
const PathEnv = EnvPrefix + "_CONFIG_PATH"

// Ranges of the numeric settings.
const (
	MinPollIntervalSecs     = 0.05
	MaxPollIntervalSecs     = 5.0
	DefaultPollIntervalSecs = 0.3

	MinHUDDurationSecs     = 0.1
	MaxHUDDurationSecs     = 10.0
	DefaultHUDDurationSecs = 1.0
)

var (
	// ErrUnknownKey is returned by ParseKey.
	ErrUnknownKey = errors.New("unknown key")
	// ErrInvalidValue is returned by Set for values that cannot be stored.
	ErrInvalidValue = errors.New("invalid value")
)

// Key names one setting.
type Key int

const (
	KeyPollIntervalSecs Key = iota
	KeyHUDDurationSecs
	KeyMaxCharsPerLine
	KeyMaxLines
	KeyHUDPosition
	KeyHUDScale
	KeyHUDBackgroundColor
)

var keyNames = [...]string{
	KeyPollIntervalSecs:   "poll_interval_secs",
	KeyHUDDurationSecs:    "hud_duration_secs",
	KeyMaxCharsPerLine:    "max_chars_per_line",
	KeyMaxLines:           "max_lines",
	KeyHUDPosition:        "hud_position",
	KeyHUDScale:           "hud_scale",
	KeyHUDBackgroundColor: "hud_background_color",
}

func (k Key) String() string {
	if k < 0 || int(k) >= len(keyNames) {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// Env returns the environment variable that overrides k.
func (k Key) Env() string { return EnvPrefix + "_" + strings.ToUpper(k.String()) }

// Keys lists every key name in display order.
func Keys() []string { return append([]string(nil), keyNames[:]...) }

// ParseKey accepts a key name with either underscores or hyphens.
func ParseKey(raw string) (Key, error) {
	name := strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")
	for k, n := range keyNames {
		if name == n {
			return Key(k), nil
		}
	}

	msg := fmt.Sprintf("%s. Available keys: %s", raw, strings.Join(keyNames[:], ", "))
	if s := suggest(name); s != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", s)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownKey, msg)
}

// suggest returns the closest key name within a small edit distance.
func suggest(name string) string {
	best, bestDist := "", 4
	for _, n := range keyNames {
		if d := levenshtein.ComputeDistance(name, n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// Settings is a fully resolved, in-range configuration.
type Settings struct {
	PollIntervalSecs float64
	HUDDurationSecs  float64
	MaxCharsPerLine  int
	MaxLines         int
	HUDPosition      raster.Position
	HUDScale         float64
	HUDBackground    raster.Background
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		PollIntervalSecs: DefaultPollIntervalSecs,
		HUDDurationSecs:  DefaultHUDDurationSecs,
		MaxCharsPerLine:  textlayout.DefaultCharsPerLine,
		MaxLines:         textlayout.DefaultLines,
		HUDPosition:      raster.PositionCenter,
		HUDScale:         raster.DefaultScale,
		HUDBackground:    raster.BackgroundDefault,
	}
}

// PollInterval returns the watcher interval.
func (s Settings) PollInterval() time.Duration { return secs(s.PollIntervalSecs) }

// HUDDuration returns how long a session stays visible.
func (s Settings) HUDDuration() time.Duration { return secs(s.HUDDurationSecs) }

func secs(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

// Limits returns the layout limits.
func (s Settings) Limits() textlayout.Limits {
	return textlayout.Limits{MaxCharsPerLine: s.MaxCharsPerLine, MaxLines: s.MaxLines}
}

// Style returns the render style with a box-sized canvas.
func (s Settings) Style() raster.Style {
	return raster.Style{Position: s.HUDPosition, Scale: s.HUDScale, Background: s.HUDBackground}
}

// HUD returns the display controller config.
func (s Settings) HUD() hud.Config {
	return hud.Config{Limits: s.Limits(), Style: s.Style(), Duration: s.HUDDuration()}
}

// Value formats the setting for k.
func (s Settings) Value(k Key) string {
	switch k {
	case KeyPollIntervalSecs:
		return formatFloat(s.PollIntervalSecs)
	case KeyHUDDurationSecs:
		return formatFloat(s.HUDDurationSecs)
	case KeyMaxCharsPerLine:
		return strconv.Itoa(s.MaxCharsPerLine)
	case KeyMaxLines:
		return strconv.Itoa(s.MaxLines)
	case KeyHUDPosition:
		return s.HUDPosition.String()
	case KeyHUDScale:
		return formatFloat(s.HUDScale)
	case KeyHUDBackgroundColor:
		return s.HUDBackground.String()
	}
	return ""
}

// Lines renders every setting as "key = value".
func (s Settings) Lines() []string {
	out := make([]string, len(keyNames))
	for k := range keyNames {
		out[k] = fmt.Sprintf("%s = %s", keyNames[k], s.Value(Key(k)))
	}
	return out
}

// File converts s to a file with every key set.
func (s Settings) File() File {
	pos, bg := s.HUDPosition.String(), s.HUDBackground.String()
	return File{Display: Display{
		PollIntervalSecs:   &s.PollIntervalSecs,
		HUDDurationSecs:    &s.HUDDurationSecs,
		MaxCharsPerLine:    &s.MaxCharsPerLine,
		MaxLines:           &s.MaxLines,
		HUDPosition:        &pos,
		HUDScale:           &s.HUDScale,
		HUDBackgroundColor: &bg,
	}}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Path returns the config file location: override if non-empty, then
// $CLIIP_SHOW_CONFIG_PATH, then cliip-show/config.toml in the user config dir.
func Path(override string) (string, error) {
	if p := strings.TrimSpace(override); p != "" {
		return p, nil
	}
	if p := strings.TrimSpace(os.Getenv(PathEnv)); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(dir, "cliip-show", "config.toml"), nil
}

// Resolve returns defaults overlaid with the file at path and the
// environment. An unreadable file is logged and skipped.
func Resolve(path string) Settings {
	s := Defaults()
	if path != "" {
		f, _, err := Load(path)
		if err != nil {
			warn("config file ignored", "err", err)
		} else {
			s = f.Apply(s)
		}
	}
	return ApplyEnv(s)
}
