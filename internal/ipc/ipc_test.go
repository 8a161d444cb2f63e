package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/cliip-show/internal/message"
)

// shortSocket keeps the path under the sun_path limit on macOS.
func shortSocket(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cs")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func TestSocketPathOverride(t *testing.T) {
	t.Setenv(SocketEnv, "/tmp/custom.sock")
	assert.Equal(t, "/tmp/custom.sock", SocketPath())

	t.Setenv(SocketEnv, "")
	assert.Equal(t, socketName, filepath.Base(SocketPath()))
}

func TestServeAndRequest(t *testing.T) {
	path := shortSocket(t)
	ln, err := Listen(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, func(req *message.Message) *message.Message {
			switch req.Type {
			case message.TypeStatus:
				return &message.Message{Type: message.TypeStatusResponse, Status: &message.Status{State: "idle"}}
			case message.TypeShow:
				return &message.Message{Type: message.TypeOK}
			}
			return message.Errorf("unsupported request %s", req.Type)
		})
	}()

	assert.True(t, IsRunning(path))

	reply, err := Request(ctx, path, &message.Message{Type: message.TypeStatus})
	require.NoError(t, err)
	require.NotNil(t, reply.Status)
	assert.Equal(t, "idle", reply.Status.State)

	reply, err = Request(ctx, path, &message.Message{Type: message.TypeShow, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, message.TypeOK, reply.Type)

	_, err = Request(ctx, path, &message.Message{Type: "BOGUS"})
	assert.ErrorContains(t, err, "unsupported request BOGUS")

	_, err = Listen(path)
	assert.Error(t, err, "second daemon must not steal the socket")

	cancel()
	require.NoError(t, <-done)
	assert.False(t, IsRunning(path))
}

func TestRequestNotRunning(t *testing.T) {
	_, err := Request(context.Background(), shortSocket(t), &message.Message{Type: message.TypeStatus})
	assert.ErrorIs(t, err, ErrNotRunning)
}
