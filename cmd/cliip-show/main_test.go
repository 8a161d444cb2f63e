package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/cliip-show/internal/clip"
	"go.klb.dev/cliip-show/internal/config"
	"go.klb.dev/cliip-show/internal/imagediff"
	"go.klb.dev/cliip-show/internal/ipc"
	"go.klb.dev/cliip-show/internal/message"
	"go.klb.dev/cliip-show/internal/overlay"
	"go.klb.dev/cliip-show/internal/raster"
)

// cli runs the command line in-process with an isolated config path.
func cli(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = run(append([]string{"--log-format", "json", "--log-level", "error"}, args...), &out, &errb)
	return code, out.String(), errb.String()
}

func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv(config.PathEnv, path)
	for _, k := range config.Keys() {
		key, err := config.ParseKey(k)
		require.NoError(t, err)
		t.Setenv(key.Env(), "")
		os.Unsetenv(key.Env())
	}
	return path
}

func TestRenderThenDiff(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	c := filepath.Join(dir, "c.png")
	diff := filepath.Join(dir, "diff.png")

	code, _, stderr := cli(t, "--render-hud-png", "--text", "hello", "--output", a)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = cli(t, "--render-hud-png", "--text", "hello", "--output", b)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = cli(t, "--render-hud-png", "--text", "HELLO", "--output", c)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := cli(t, "--diff-png", "--baseline", a, "--current", b, "--output", diff)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "diff_pixels=0 total_pixels=")
	assert.NoFileExists(t, diff, "identical images leave no highlight")

	code, stdout, stderr = cli(t, "--diff-png", "--baseline", a, "--current", c, "--output", diff)
	require.Equal(t, 0, code, stderr, "differences are not a failure")
	assert.NotContains(t, stdout, "diff_pixels=0 ")
	assert.FileExists(t, diff)

	img, err := imagediff.Decode(diff)
	require.NoError(t, err)
	base, err := imagediff.Decode(a)
	require.NoError(t, err)
	assert.Equal(t, base.Bounds(), img.Bounds())
}

func TestRenderDefaultText(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "nested", "hud.png")
	code, _, stderr := cli(t, "--render-hud-png", "--output", out)
	require.Equal(t, 0, code, stderr)

	img, err := imagediff.Decode(out)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, img.Bounds().Dx(), 200)
	assert.GreaterOrEqual(t, img.Bounds().Dy(), 52)
}

func TestRenderUsesEnvironment(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	small := filepath.Join(dir, "small.png")
	big := filepath.Join(dir, "big.png")

	code, _, _ := cli(t, "--render-hud-png", "--output", small)
	require.Equal(t, 0, code)
	t.Setenv("CLIIP_SHOW_HUD_SCALE", "2")
	code, _, _ = cli(t, "--render-hud-png", "--output", big)
	require.Equal(t, 0, code)

	s, err := imagediff.Decode(small)
	require.NoError(t, err)
	b, err := imagediff.Decode(big)
	require.NoError(t, err)
	assert.Greater(t, b.Bounds().Dx(), s.Bounds().Dx())
}

func TestDiffDimensionMismatch(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")

	require.Equal(t, 0, run([]string{"--render-hud-png", "--text", "x", "--output", a}, new(bytes.Buffer), new(bytes.Buffer)))
	require.Equal(t, 0, run([]string{"--render-hud-png", "--text", strings.Repeat("wide ", 20), "--output", b}, new(bytes.Buffer), new(bytes.Buffer)))

	code, _, stderr := cli(t, "--diff-png", "--baseline", a, "--current", b, "--output", filepath.Join(dir, "d.png"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "dimension mismatch")
}

func TestDiffMissingInput(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	code, _, _ := cli(t, "--diff-png",
		"--baseline", filepath.Join(dir, "nope.png"),
		"--current", filepath.Join(dir, "nope.png"),
		"--output", filepath.Join(dir, "d.png"))
	assert.Equal(t, 1, code)
}

func TestUsageErrors(t *testing.T) {
	isolate(t)
	out := filepath.Join(t.TempDir(), "x.png")
	tests := []struct {
		name string
		args []string
	}{
		{"both modes", []string{"--render-hud-png", "--diff-png", "--output", out}},
		{"render without output", []string{"--render-hud-png"}},
		{"render with baseline", []string{"--render-hud-png", "--output", out, "--baseline", out}},
		{"diff without baseline", []string{"--diff-png", "--current", out, "--output", out}},
		{"diff with text", []string{"--diff-png", "--text", "x", "--baseline", out, "--current", out, "--output", out}},
		{"output without mode", []string{"--output", out}},
		{"unknown flag", []string{"--bogus"}},
		{"missing flag value", []string{"--render-hud-png", "--output"}},
		{"positional argument", []string{"stray"}},
		{"config without command", []string{"config"}},
		{"config set arity", []string{"config", "set", "max_lines"}},
		{"config set unknown key", []string{"config", "set", "hud_sclae", "1"}},
		{"config set bad value", []string{"config", "set", "hud_position", "left"}},
		{"show without text", []string{"show"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := cli(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestConfigPath(t *testing.T) {
	path := isolate(t)
	code, stdout, _ := cli(t, "config", "path")
	require.Equal(t, 0, code)
	assert.Equal(t, path+"\n", stdout)

	other := filepath.Join(t.TempDir(), "other.toml")
	code, stdout, _ = cli(t, "config", "path", "--config", other)
	require.Equal(t, 0, code)
	assert.Equal(t, other+"\n", stdout)
}

func TestConfigLifecycle(t *testing.T) {
	path := isolate(t)

	code, stdout, _ := cli(t, "config", "show")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "config_path = "+path+"\n")
	assert.Contains(t, stdout, "config_file = not_found\n")
	assert.NotContains(t, stdout, "[saved]")
	assert.Contains(t, stdout, "[effective]\n")
	assert.Contains(t, stdout, "max_lines = 5\n")

	code, stdout, _ = cli(t, "config", "init")
	require.Equal(t, 0, code)
	assert.Equal(t, "initialized config: "+path+"\n", stdout)
	assert.FileExists(t, path)

	code, _, stderr := cli(t, "config", "init")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = cli(t, "config", "init", "--force")
	assert.Equal(t, 0, code)

	code, stdout, stderr = cli(t, "config", "set", "hud-scale", "3")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "warning: hud_scale was clamped from 3 to 2")
	assert.Contains(t, stdout, "updated config: "+path+"\n")
	assert.Contains(t, stdout, "hud_scale = 2\n")

	code, _, _ = cli(t, "config", "set", "hud_background_color", "Purple")
	require.Equal(t, 0, code)

	code, stdout, _ = cli(t, "config", "show")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "config_file = exists\n")
	saved := stdout[strings.Index(stdout, "[saved]"):strings.Index(stdout, "[effective]")]
	assert.Contains(t, saved, "hud_scale = 2\n")
	assert.Contains(t, saved, "hud_background_color = purple\n")

	t.Setenv("CLIIP_SHOW_HUD_BACKGROUND_COLOR", "red")
	code, stdout, _ = cli(t, "config", "show")
	require.Equal(t, 0, code)
	effective := stdout[strings.Index(stdout, "[effective]"):]
	assert.Contains(t, effective, "hud_background_color = red\n")
}

func TestUnknownKeySuggestion(t *testing.T) {
	isolate(t)
	code, _, stderr := cli(t, "config", "set", "max_line", "3")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "did you mean max_lines?")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := cli(t, "version")
	require.Equal(t, 0, code)
	assert.Equal(t, "cliip-show "+Version+"\n", stdout)

	var out bytes.Buffer
	require.Equal(t, 0, run([]string{"--version"}, &out, new(bytes.Buffer)))
	assert.Equal(t, Version+"\n", out.String())
}

func TestStatusWithoutDaemon(t *testing.T) {
	isolate(t)
	sock := filepath.Join(t.TempDir(), "none.sock")
	code, _, stderr := cli(t, "status", "--socket", sock)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not running")
}

func shortTempDir(t *testing.T) string {
	t.Helper()
	// unix socket paths are limited to ~100 bytes
	dir, err := os.MkdirTemp("", "cliip")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestDaemonEndToEnd(t *testing.T) {
	cfgPath := isolate(t)
	dir := shortTempDir(t)
	sock := filepath.Join(dir, "d.sock")
	hudPNG := filepath.Join(dir, "hud.png")

	settings := config.Defaults()
	settings.PollIntervalSecs = config.MinPollIntervalSecs
	settings.HUDDurationSecs = config.MaxHUDDurationSecs

	r, err := raster.New()
	require.NoError(t, err)
	mem := clip.NewMemory()
	d, err := newDaemon(settings, cfgPath, mem, r, &overlay.File{Path: hudPNG})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, sock) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return ipc.IsRunning(sock) }, 2*time.Second, 10*time.Millisecond)

	// idle until something is copied
	reply, err := ipc.Request(ctx, sock, &message.Message{Type: message.TypeStatus})
	require.NoError(t, err)
	require.NotNil(t, reply.Status)
	assert.Equal(t, "idle", reply.Status.State)
	assert.Equal(t, "file", reply.Status.Presenter)
	assert.Equal(t, cfgPath, reply.Status.ConfigPath)
	assert.Nil(t, reply.Status.Session)

	// a clipboard change shows the HUD
	mem.Set("copied text")
	require.Eventually(t, func() bool {
		_, err := os.Stat(hudPNG)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	reply, err = ipc.Request(ctx, sock, &message.Message{Type: message.TypeStatus})
	require.NoError(t, err)
	assert.Equal(t, "showing", reply.Status.State)
	require.NotNil(t, reply.Status.Session)
	assert.Equal(t, 1, reply.Status.Session.Lines)
	assert.EqualValues(t, 1, reply.Status.Shown)

	// a SHOW request replaces the live session
	_, err = ipc.Request(ctx, sock, &message.Message{Type: message.TypeShow, Text: "line one\nline two"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		reply, err := ipc.Request(ctx, sock, &message.Message{Type: message.TypeStatus})
		return err == nil && reply.Status.Session != nil && reply.Status.Session.Lines == 2
	}, 2*time.Second, 10*time.Millisecond)

	_, err = ipc.Request(ctx, sock, &message.Message{Type: message.TypeShow})
	assert.Error(t, err, "empty text is rejected")

	// shutdown hides the HUD
	cancel()
	require.NoError(t, <-done)
	done <- nil
	assert.NoFileExists(t, hudPNG)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDaemonStartupLogs(t *testing.T) {
	cfgPath := isolate(t)
	sock := filepath.Join(shortTempDir(t), "d.sock")

	var logs syncBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r, err := raster.New()
	require.NoError(t, err)
	d, err := newDaemon(config.Defaults(), cfgPath, clip.NewMemory(), r, overlay.Log{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, sock) }()
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "control socket listening")
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, strings.Count(logs.String(), `"msg":"control socket listening"`))
	assert.Equal(t, 1, strings.Count(logs.String(), `"msg":"cliip-show daemon starting"`))
}

func TestDaemonHotReload(t *testing.T) {
	cfgPath := isolate(t)
	dir := shortTempDir(t)
	sock := filepath.Join(dir, "d.sock")

	r, err := raster.New()
	require.NoError(t, err)
	d, err := newDaemon(config.Defaults(), cfgPath, clip.NewMemory(), r, overlay.Log{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, sock) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return ipc.IsRunning(sock) }, 2*time.Second, 10*time.Millisecond)

	var f config.File
	_, err = f.Set(config.KeyMaxLines, "9")
	require.NoError(t, err)
	_, err = f.Set(config.KeyPollIntervalSecs, "1.5")
	require.NoError(t, err)
	require.NoError(t, config.Save(cfgPath, f))

	require.Eventually(t, func() bool {
		return d.ctl.Status().Config.Limits.MaxLines == 9
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, d.watch.Interval())

	reply, err := ipc.Request(ctx, sock, &message.Message{Type: message.TypeStatus})
	require.NoError(t, err)
	assert.Contains(t, reply.Status.Settings, "max_lines = 9")
}

func TestPrintStatus(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st := &message.Status{
		PID:       42,
		Version:   "1.2.3",
		StartedAt: now.Add(-time.Hour),
		Backend:   "memory",
		Presenter: "log",
		State:     "showing",
		Shown:     1234,
		Session: &message.Session{
			ID: "abc", Lines: 2, Width: 300, Height: 60,
			Deadline: now.Add(time.Second),
		},
		Settings: []string{"max_lines = 5"},
	}
	var out bytes.Buffer
	printStatus(&out, st, now)
	s := out.String()
	assert.Contains(t, s, "1 hour ago")
	assert.Contains(t, s, "1,234")
	assert.Contains(t, s, "300x60, 2 line(s)")
	assert.Contains(t, s, "[effective]\nmax_lines = 5\n")
}
