package config

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/raster"
	"go.klb.dev/cliip-show/internal/textlayout"
)

// ApplyEnv overlays CLIIP_SHOW_* variables onto base. A value that cannot be
// parsed keeps the base value; numbers outside their range are clamped.
func ApplyEnv(base Settings) Settings {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	s := base
	for k := range keyNames {
		key := Key(k)
		if !v.IsSet(key.String()) {
			continue
		}
		raw := strings.TrimSpace(v.GetString(key.String()))
		var ok bool
		s, ok = applyRaw(s, key, raw)
		if !ok {
			warn("environment override ignored", "env", key.Env(), "value", raw)
		}
	}
	return s
}

// applyRaw parses raw for key onto s. It reports false when raw was rejected.
func applyRaw(s Settings, key Key, raw string) (Settings, bool) {
	switch key {
	case KeyPollIntervalSecs:
		return s, parseFloatSetting(&s.PollIntervalSecs, raw, MinPollIntervalSecs, MaxPollIntervalSecs)
	case KeyHUDDurationSecs:
		return s, parseFloatSetting(&s.HUDDurationSecs, raw, MinHUDDurationSecs, MaxHUDDurationSecs)
	case KeyHUDScale:
		return s, parseFloatSetting(&s.HUDScale, raw, raster.MinScale, raster.MaxScale)
	case KeyMaxCharsPerLine:
		return s, parseIntSetting(&s.MaxCharsPerLine, raw, textlayout.MinCharsPerLine, textlayout.MaxCharsPerLine)
	case KeyMaxLines:
		return s, parseIntSetting(&s.MaxLines, raw, textlayout.MinLines, textlayout.MaxLines)
	case KeyHUDPosition:
		p, err := raster.ParsePosition(raw)
		if err != nil {
			return s, false
		}
		s.HUDPosition = p
	case KeyHUDBackgroundColor:
		b, err := raster.ParseBackground(raw)
		if err != nil {
			return s, false
		}
		s.HUDBackground = b
	}
	return s, true
}

func parseFloatSetting(dst *float64, raw string, lo, hi float64) bool {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	*dst = math.Min(math.Max(v, lo), hi)
	return true
}

func parseIntSetting(dst *int, raw string, lo, hi int) bool {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return false
	}
	if v > uint64(hi) {
		*dst = hi
	} else {
		*dst = max(int(v), lo)
	}
	return true
}
