package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/config"
	"go.klb.dev/cliip-show/internal/imagediff"
	"go.klb.dev/cliip-show/internal/raster"
	"go.klb.dev/cliip-show/internal/textlayout"
)

// runRender writes a HUD snapshot using the effective display settings.
func runRender(v *viper.Viper) error {
	path, err := configPath(v)
	if err != nil {
		return err
	}
	settings := config.Resolve(path)

	layout, err := textlayout.Layout(v.GetString("text"), settings.Limits())
	if err != nil {
		return err
	}
	r, err := raster.New()
	if err != nil {
		return err
	}
	img, err := r.Render(layout, settings.Style())
	if err != nil {
		return err
	}

	out := v.GetString("output")
	if err := imagediff.WritePNG(out, img); err != nil {
		return err
	}
	size := int64(0)
	if fi, err := os.Stat(out); err == nil {
		size = fi.Size()
	}
	slog.Info("hud snapshot written",
		"path", out,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"lines", len(layout.Lines),
		"truncated", layout.Truncated,
		"size", humanize.Bytes(uint64(size)),
	)
	return nil
}

// runDiff compares --baseline and --current and writes the highlight image
// to --output when any pixel differs.
func runDiff(cmd *cobra.Command, v *viper.Viper) error {
	baseline, err := imagediff.Decode(v.GetString("baseline"))
	if err != nil {
		return err
	}
	current, err := imagediff.Decode(v.GetString("current"))
	if err != nil {
		return err
	}

	report, err := imagediff.Diff(baseline, current, imagediff.WithHighlight())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "diff_pixels=%d total_pixels=%d\n", report.DiffPixels, report.TotalPixels)

	if report.Equal() {
		return nil
	}
	out := v.GetString("output")
	if err := imagediff.WritePNG(out, report.Highlight); err != nil {
		return err
	}
	slog.Debug("diff highlight written", "path", out, "diff_pixels", humanize.Comma(int64(report.DiffPixels)))
	return nil
}
