// Package watcher polls a clipboard backend and emits a snapshot whenever the
// clipboard's identity token changes.
package watcher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.klb.dev/cliip-show/internal/clip"
)

// previewRunes bounds the text preview in debug logs.
const previewRunes = 120

// Watcher owns the last observed token. Poll and Run must not be called
// concurrently.
type Watcher struct {
	backend  clip.Backend
	interval atomic.Int64
	resetCh  chan struct{}

	primed bool
	last   uint64
}

// New creates a watcher but does not start it.
func New(backend clip.Backend, interval time.Duration) *Watcher {
	w := &Watcher{
		backend: backend,
		resetCh: make(chan struct{}, 1),
	}
	w.interval.Store(int64(interval))
	return w
}

// Interval returns the current poll interval.
func (w *Watcher) Interval() time.Duration { return time.Duration(w.interval.Load()) }

// SetInterval changes the poll interval. A running loop picks it up before
// its next tick. Safe to call from any goroutine.
func (w *Watcher) SetInterval(d time.Duration) {
	if d <= 0 || time.Duration(w.interval.Swap(int64(d))) == d {
		return
	}
	select {
	case w.resetCh <- struct{}{}:
	default:
	}
}

// Poll checks the backend once. The first call only records a baseline so
// whatever was on the clipboard at startup is not reported. After that a
// snapshot is returned, with ok set, each time the token differs from the
// last one seen.
func (w *Watcher) Poll() (snap clip.Snapshot, ok bool, err error) {
	tok, err := w.backend.ChangeToken()
	if err != nil {
		return clip.Snapshot{}, false, err
	}
	if !w.primed {
		w.primed, w.last = true, tok
		return clip.Snapshot{}, false, nil
	}
	if tok == w.last {
		return clip.Snapshot{}, false, nil
	}

	text, err := w.backend.ReadText()
	if err != nil {
		// token is left unchanged so the next tick retries the read
		return clip.Snapshot{}, false, err
	}
	w.last = tok
	return clip.Snapshot{Text: text, Token: tok}, true, nil
}

// Run polls until ctx is cancelled, sending each change on out. Poll errors
// are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context, out chan<- clip.Snapshot) {
	slog.Info("clipboard watcher started", "backend", w.backend.Name(), "interval", w.Interval())
	defer slog.Debug("clipboard watcher stopped")

	t := time.NewTicker(w.Interval())
	defer t.Stop()

	if !w.primed {
		if _, _, err := w.Poll(); err != nil {
			slog.Warn("clipboard poll failed", "err", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.resetCh:
			t.Reset(w.Interval())
			slog.Debug("clipboard poll interval changed", "interval", w.Interval())
		case <-t.C:
			snap, ok, err := w.Poll()
			if err != nil {
				slog.Warn("clipboard poll failed", "err", err)
				continue
			}
			if !ok {
				continue
			}
			logChange(snap)
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}
}

// logChange logs a change at DEBUG with a short preview of the text.
func logChange(snap clip.Snapshot) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	preview := []rune(snap.Text)
	if len(preview) > previewRunes {
		preview = append(preview[:previewRunes], '…')
	}
	slog.Debug("clipboard changed", "token", snap.Token, "bytes", len(snap.Text), "preview", string(preview))
}
