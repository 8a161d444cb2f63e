// Package overlay puts rendered HUD sessions in front of the user.
package overlay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.klb.dev/cliip-show/internal/hud"
	"go.klb.dev/cliip-show/internal/imagediff"
	"go.klb.dev/cliip-show/internal/logging"
)

// Presenter kinds accepted by New.
const (
	KindAuto  = "auto"
	KindLog   = "log"
	KindFile  = "file"
	KindKitty = "kitty"
)

// Options configures New.
type Options struct {
	// Path is the PNG written by the file presenter.
	Path string
	// Out receives terminal graphics for the kitty presenter.
	Out io.Writer
}

// Kinds lists every presenter kind.
func Kinds() []string { return []string{KindAuto, KindLog, KindFile, KindKitty} }

// New returns the presenter for kind. "auto" picks kitty graphics when Out
// is a kitty terminal and logging otherwise.
func New(kind string, opts Options) (hud.Presenter, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindAuto, "":
		if logging.IsTTY(opts.Out) && isKittyTerm() {
			return NewKitty(opts.Out), nil
		}
		return Log{}, nil
	case KindLog:
		return Log{}, nil
	case KindFile:
		if opts.Path == "" {
			return nil, errors.New("file presenter needs an output path")
		}
		return &File{Path: opts.Path}, nil
	case KindKitty:
		return NewKitty(opts.Out), nil
	default:
		return nil, fmt.Errorf("unknown presenter %q (allowed: %s)", kind, strings.Join(Kinds(), ", "))
	}
}

func isKittyTerm() bool {
	return os.Getenv("KITTY_WINDOW_ID") != "" || strings.Contains(os.Getenv("TERM"), "kitty")
}

// Log reports sessions through slog. It is the headless default.
type Log struct{}

func (Log) Show(s *hud.Session) error {
	slog.Info("clipboard",
		"text", s.Layout.Text(),
		"truncated", s.Layout.Truncated,
		"until", s.Deadline.Format("15:04:05.000"),
	)
	return nil
}

func (Log) Hide(s *hud.Session) error {
	slog.Debug("clipboard hud dismissed", "session", s.ID)
	return nil
}

// File mirrors the visible session into a PNG file, for status bars and
// widgets that display an image path. The file is removed on hide.
type File struct {
	Path string
}

func (f *File) Show(s *hud.Session) error {
	if err := imagediff.WritePNG(f.Path, s.Image); err != nil {
		return fmt.Errorf("write hud image: %w", err)
	}
	return nil
}

func (f *File) Hide(*hud.Session) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove hud image: %w", err)
	}
	return nil
}
