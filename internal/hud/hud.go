// Package hud implements the display controller: a two-state machine that
// turns clipboard changes into a transient on-screen session and dismisses
// it after a fixed duration.
package hud

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/cliip-show/internal/clip"
	"go.klb.dev/cliip-show/internal/raster"
	"go.klb.dev/cliip-show/internal/textlayout"
)

// Duration bounds for Config.Duration.
const (
	MinDuration     = 100 * time.Millisecond
	MaxDuration     = 10 * time.Second
	DefaultDuration = time.Second
)

// ErrInvalidConfiguration is returned by Reconfigure and New for a bad Config.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// State is the controller state.
type State int

const (
	Idle State = iota
	Showing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Showing:
		return "showing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Clock is the time source for deadlines.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Renderer produces the HUD image for a layout.
type Renderer interface {
	Render(layout textlayout.Result, style raster.Style) (*image.RGBA, error)
}

// Presenter puts a session on screen and takes it down again. Show may be
// called while another session is visible; the new one replaces it.
type Presenter interface {
	Show(s *Session) error
	Hide(s *Session) error
}

// Session is one HUD display. It is never mutated after it is shown.
type Session struct {
	ID       uuid.UUID
	Token    uint64
	Text     string
	Layout   textlayout.Result
	Style    raster.Style
	Image    *image.RGBA
	Shown    time.Time
	Deadline time.Time
}

// Config is what the controller applies to each new session.
type Config struct {
	Limits   textlayout.Limits
	Style    raster.Style
	Duration time.Duration
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Limits:   textlayout.DefaultLimits(),
		Style:    raster.DefaultStyle(),
		Duration: DefaultDuration,
	}
}

// Validate checks every part of the config.
func (c Config) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Style.Validate(); err != nil {
		return err
	}
	if c.Duration < MinDuration || c.Duration > MaxDuration {
		return fmt.Errorf("%w: hud duration %v outside %v..%v", ErrInvalidConfiguration, c.Duration, MinDuration, MaxDuration)
	}
	return nil
}

// Status is a point-in-time view of the controller.
type Status struct {
	State     State
	Session   *Session
	Shown     uint64
	LastToken uint64
	Config    Config
}

type options struct {
	clock Clock
}

// Option configures a Controller.
type Option func(*options)

// WithClock replaces the wall clock used for deadlines.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// Controller owns at most one live session.
type Controller struct {
	renderer  Renderer
	presenter Presenter
	clock     Clock

	mu         sync.Mutex
	cfg        Config
	state      State
	session    *Session
	lastToken  uint64
	dispatched bool
	shown      uint64
}

// New creates an idle controller.
func New(cfg Config, r Renderer, p Presenter, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller{
		renderer:  r,
		presenter: p,
		clock:     o.clock,
		cfg:       cfg,
	}, nil
}

// HandleChange reacts to a clipboard change. Non-empty text replaces any
// live session and restarts the dismiss deadline. Empty text and repeated
// tokens are ignored. On error the controller state is unchanged.
func (c *Controller) HandleChange(snap clip.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dispatched && snap.Token == c.lastToken {
		slog.Debug("hud ignoring repeated token", "token", snap.Token)
		return nil
	}

	layout, err := textlayout.Layout(snap.Text, c.cfg.Limits)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if layout.Empty() {
		slog.Debug("hud ignoring empty clipboard text", "token", snap.Token)
		return nil
	}

	img, err := c.renderer.Render(layout, c.cfg.Style)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	now := c.clock.Now()
	s := &Session{
		ID:       uuid.New(),
		Token:    snap.Token,
		Text:     snap.Text,
		Layout:   layout,
		Style:    c.cfg.Style,
		Image:    img,
		Shown:    now,
		Deadline: now.Add(c.cfg.Duration),
	}
	if err := c.presenter.Show(s); err != nil {
		return fmt.Errorf("present: %w", err)
	}

	if c.session != nil {
		slog.Debug("hud session replaced", "session", c.session.ID)
	}
	c.session = s
	c.state = Showing
	c.lastToken = snap.Token
	c.dispatched = true
	c.shown++

	slog.Info("hud shown",
		"session", s.ID,
		"lines", len(layout.Lines),
		"truncated", layout.Truncated,
		"size", fmt.Sprintf("%dx%d", img.Rect.Dx(), img.Rect.Dy()),
	)
	return nil
}

// Tick hides the live session once its deadline has passed.
func (c *Controller) Tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Showing || c.clock.Now().Before(c.session.Deadline) {
		return nil
	}
	return c.hideLocked()
}

// hideLocked ends the live session. The controller becomes idle even when
// the presenter fails to hide.
func (c *Controller) hideLocked() error {
	s := c.session
	c.session = nil
	c.state = Idle
	if s == nil {
		return nil
	}
	slog.Debug("hud hidden", "session", s.ID)
	if err := c.presenter.Hide(s); err != nil {
		return fmt.Errorf("hide: %w", err)
	}
	return nil
}

// Deadline returns the live session's deadline, if any.
func (c *Controller) Deadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Showing {
		return time.Time{}, false
	}
	return c.session.Deadline, true
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reconfigure applies cfg to sessions started after the call. A live session
// keeps its style and deadline.
func (c *Controller) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:     c.state,
		Session:   c.session,
		Shown:     c.shown,
		LastToken: c.lastToken,
		Config:    c.cfg,
	}
}

// Run is the controller's owner loop. It consumes changes and keeps exactly
// one timer armed for the live session's deadline. When ctx is cancelled or
// changes is closed, a live session is hidden and Run returns.
func (c *Controller) Run(ctx context.Context, changes <-chan clip.Snapshot) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var timerC <-chan time.Time
	arm := func() {
		timer.Stop()
		timerC = nil
		if d, ok := c.Deadline(); ok {
			timer.Reset(d.Sub(c.clock.Now()))
			timerC = timer.C
		}
	}

	shutdown := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.hideLocked(); err != nil {
			slog.Warn("hud hide failed", "err", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			shutdown()
			return
		case snap, ok := <-changes:
			if !ok {
				shutdown()
				return
			}
			if err := c.HandleChange(snap); err != nil {
				slog.Error("hud show failed", "err", err)
			}
			arm()
		case <-timerC:
			if err := c.Tick(); err != nil {
				slog.Warn("hud hide failed", "err", err)
			}
			arm()
		}
	}
}
