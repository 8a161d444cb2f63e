package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliip-show/internal/clip"
	"go.klb.dev/cliip-show/internal/config"
	"go.klb.dev/cliip-show/internal/hud"
	"go.klb.dev/cliip-show/internal/ipc"
	"go.klb.dev/cliip-show/internal/message"
	"go.klb.dev/cliip-show/internal/overlay"
	"go.klb.dev/cliip-show/internal/raster"
	"go.klb.dev/cliip-show/internal/watcher"
)

// injectedTokenBit marks tokens of SHOW requests so they never collide
// with clipboard tokens.
const injectedTokenBit = uint64(1) << 63

// daemon ties the clipboard watcher, HUD controller and control socket together.
type daemon struct {
	ctl        *hud.Controller
	watch      *watcher.Watcher
	backend    clip.Backend
	presenter  string
	configPath string
	started    time.Time
	events     chan clip.Snapshot
	injected   atomic.Uint64

	mu       sync.Mutex
	settings config.Settings
}

func runDaemon(cmd *cobra.Command, v *viper.Viper) error {
	path, err := configPath(v)
	if err != nil {
		return err
	}
	settings := config.Resolve(path)

	r, err := raster.New()
	if err != nil {
		return err
	}
	kind := v.GetString("presenter")
	presenter, err := overlay.New(kind, overlay.Options{Path: v.GetString("hud-png"), Out: cmd.OutOrStdout()})
	if err != nil {
		return &usageError{err: err}
	}
	backend := clip.New()
	defer backend.Close()

	d, err := newDaemon(settings, path, backend, r, presenter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return d.run(ctx, socketPath(v))
}

func newDaemon(settings config.Settings, path string, backend clip.Backend, r hud.Renderer, p hud.Presenter) (*daemon, error) {
	ctl, err := hud.New(settings.HUD(), r, p)
	if err != nil {
		return nil, err
	}
	return &daemon{
		ctl:        ctl,
		watch:      watcher.New(backend, settings.PollInterval()),
		backend:    backend,
		presenter:  presenterName(p),
		configPath: path,
		started:    time.Now(),
		events:     make(chan clip.Snapshot, 1),
		settings:   settings,
	}, nil
}

func (d *daemon) run(ctx context.Context, sock string) error {
	slog.Info("cliip-show daemon starting",
		"version", Version,
		"backend", d.backend.Name(),
		"presenter", d.presenter,
		"config", d.configPath,
	)

	// whatever is on the clipboard at startup is not shown
	if _, _, err := d.watch.Poll(); err != nil {
		slog.Warn("clipboard poll failed", "err", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	ln, err := ipc.Listen(sock)
	if err != nil {
		slog.Warn("control socket unavailable", "err", err)
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ipc.Serve(ctx, ln, d.handle); err != nil {
				slog.Warn("control socket stopped", "err", err)
			}
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := config.Watch(ctx, d.configPath, d.reload); err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		}
	}()
	go func() {
		defer wg.Done()
		d.watch.Run(ctx, d.events)
	}()

	d.ctl.Run(ctx, d.events)
	slog.Info("cliip-show daemon stopped")
	return nil
}

// reload applies settings read after a config file change.
func (d *daemon) reload(s config.Settings) {
	if err := d.ctl.Reconfigure(s.HUD()); err != nil {
		slog.Warn("config reload rejected", "err", err)
		return
	}
	d.watch.SetInterval(s.PollInterval())

	d.mu.Lock()
	d.settings = s
	d.mu.Unlock()
}

// handle answers one control socket request.
func (d *daemon) handle(req *message.Message) *message.Message {
	switch req.Type {
	case message.TypeStatus:
		return &message.Message{Type: message.TypeStatusResponse, Status: d.status()}
	case message.TypeShow:
		return d.show(req)
	default:
		return message.Errorf("unsupported request %q", req.Type)
	}
}

func (d *daemon) show(req *message.Message) *message.Message {
	if req.Text == "" {
		return message.Errorf("show: empty text")
	}
	snap := clip.Snapshot{Text: req.Text, Token: injectedTokenBit | d.injected.Add(1)}
	select {
	case d.events <- snap:
	case <-time.After(time.Second):
		return message.Errorf("show: display controller busy")
	}
	slog.Debug("show requested", "source", req.Source, "bytes", len(req.Text))
	return &message.Message{Type: message.TypeOK}
}

func (d *daemon) status() *message.Status {
	st := d.ctl.Status()

	d.mu.Lock()
	settings := d.settings
	d.mu.Unlock()

	out := &message.Status{
		PID:        os.Getpid(),
		Version:    Version,
		StartedAt:  d.started,
		Backend:    d.backend.Name(),
		Presenter:  d.presenter,
		ConfigPath: d.configPath,
		State:      st.State.String(),
		Shown:      st.Shown,
		Settings:   settings.Lines(),
	}
	if s := st.Session; s != nil {
		b := s.Image.Bounds()
		out.Session = &message.Session{
			ID:        s.ID.String(),
			Lines:     len(s.Layout.Lines),
			Truncated: s.Layout.Truncated,
			Width:     b.Dx(),
			Height:    b.Dy(),
			Shown:     s.Shown,
			Deadline:  s.Deadline,
		}
	}
	return out
}

// presenterName turns *overlay.Kitty into "kitty".
func presenterName(p hud.Presenter) string {
	name := fmt.Sprintf("%T", p)
	name = name[strings.LastIndexByte(name, '.')+1:]
	return strings.ToLower(name)
}
