//go:build linux

package clip

import (
	"log/slog"

	"golang.design/x/clipboard"
)

// New returns the Linux clipboard backend, or a headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland). clipboard.Init is called here rather than in init() so that
// CLI sub-commands that never watch the clipboard don't trigger the warning.
//
// X11 and Wayland expose no portable change counter, so the token is a hash
// of the text.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	return newHashed("Linux clipboard (poll)", func() []byte {
		return clipboard.Read(clipboard.FmtText)
	})
}
