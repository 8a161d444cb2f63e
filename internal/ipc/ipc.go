// Package ipc provides the local Unix-socket control channel between CLI
// sub-commands (status, show) and a running cliip-show daemon.
//
// Each connection carries exactly one request and one reply, framed by the
// wire package.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.klb.dev/cliip-show/internal/message"
	"go.klb.dev/cliip-show/internal/wire"
)

// SocketEnv overrides the socket location.
const SocketEnv = "CLIIP_SHOW_SOCKET"

const (
	socketName     = "cliip-show.sock"
	requestTimeout = 5 * time.Second
)

// ErrNotRunning is returned by Request when no daemon is listening.
var ErrNotRunning = errors.New("cliip-show daemon is not running")

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - $CLIIP_SHOW_SOCKET when set
//   - Linux: $XDG_RUNTIME_DIR/cliip-show.sock
//   - macOS / fallback: $TMPDIR/cliip-show.sock
func SocketPath() string {
	if s := os.Getenv(SocketEnv); s != "" {
		return s
	}
	return defaultSocketPath()
}

// IsRunning reports whether a daemon appears to be listening on path.
// It does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path, removing a stale socket file first.
// It refuses to take over a socket another daemon is still serving.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("another cliip-show daemon is listening on %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	// Remove stale socket from a previous (crashed) run.
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return ln, nil
}

// Handler answers one request.
type Handler func(req *message.Message) *message.Message

// Serve accepts connections on ln until ctx is cancelled, answering each
// with h. It closes ln before returning.
func Serve(ctx context.Context, ln net.Listener, h Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	slog.Info("control socket listening", "path", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConn(wire.New(conn), h)
		}()
	}
}

func handleConn(c *wire.Conn, h Handler) {
	defer c.Close()
	c.SetReadDeadline(requestTimeout)
	req, err := c.ReadMsg()
	if err != nil {
		slog.Debug("control request read failed", "err", err)
		return
	}
	c.SetReadDeadline(0)

	reply := h(req)
	if reply == nil {
		reply = message.Errorf("no reply for %s", req.Type)
	}
	if err := c.WriteMsg(reply); err != nil {
		slog.Debug("control reply write failed", "err", err)
	}
}

// Request sends req to the daemon at path and returns its reply. An ERROR
// reply is returned as an error.
func Request(ctx context.Context, path string, req *message.Message) (*message.Message, error) {
	var d net.Dialer
	dctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	conn, err := d.DialContext(dctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %v", ErrNotRunning, path, err)
	}
	c := wire.New(conn)
	defer c.Close()

	if err := c.WriteMsg(req); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Type, err)
	}
	c.SetReadDeadline(requestTimeout)
	reply, err := c.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if reply.Type == message.TypeError {
		return nil, fmt.Errorf("daemon: %s", reply.Error)
	}
	return reply, nil
}
