// Package clip provides a unified, read-only view of the system clipboard
// across platforms. Build constraints select the implementation:
//
//	clip_darwin.go   macOS via golang.design/x/clipboard + cgo changeCount
//	clip_windows.go  Windows via golang.design/x/clipboard + GetClipboardSequenceNumber
//	clip_linux.go    Linux via golang.design/x/clipboard, content hash token
//	clip_other.go    headless / container stub
package clip

// Snapshot is the observed clipboard state at one poll.
// Snapshots with equal tokens describe the same clipboard content.
type Snapshot struct {
	Text  string
	Token uint64
}

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ChangeToken returns an identity for the current clipboard content. It
	// changes whenever the content changes and is cheap enough to call on
	// every poll.
	ChangeToken() (uint64, error)

	// ReadText returns the clipboard as UTF-8 text, or "" when the clipboard
	// holds no text.
	ReadText() (string, error)

	// Close releases any resources held by the backend.
	Close()
}

// Read captures a snapshot from b.
func Read(b Backend) (Snapshot, error) {
	tok, err := b.ChangeToken()
	if err != nil {
		return Snapshot{}, err
	}
	text, err := b.ReadText()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Text: text, Token: tok}, nil
}
