//go:build windows

package clip

import (
	"fmt"
	"log/slog"

	"golang.design/x/clipboard"
	"golang.org/x/sys/windows"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procGetClipboardSequenceNumber = user32.NewProc("GetClipboardSequenceNumber")
)

type windowsBackend struct{}

// New returns the Windows clipboard backend.
// clipboard.Init is called here rather than in init() so that CLI sub-commands
// that never watch the clipboard don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	if err := procGetClipboardSequenceNumber.Find(); err != nil {
		slog.Warn("GetClipboardSequenceNumber unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	return windowsBackend{}
}

func (windowsBackend) Name() string { return "Windows Clipboard" }

// ChangeToken returns the clipboard sequence number, which Windows bumps on
// every clipboard write.
func (windowsBackend) ChangeToken() (uint64, error) {
	seq, _, _ := procGetClipboardSequenceNumber.Call()
	if seq == 0 {
		return 0, fmt.Errorf("GetClipboardSequenceNumber: no access to the window station")
	}
	return uint64(seq), nil
}

func (windowsBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (windowsBackend) Close() {}
