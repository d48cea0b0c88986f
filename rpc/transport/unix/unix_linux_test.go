//go:build linux

package unix

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmtools/vsh/lib/reactor"
	"github.com/vmtools/vsh/lib/stream"
	"github.com/vmtools/vsh/rpc/common"
)

func runReactor(t *testing.T) reactor.IReactor {
	t.Helper()
	r, err := reactor.NewReactor()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = r.Close()
	})
	return r
}

// startServer runs a unix server with handler until the test ends
func startServer(t *testing.T, r reactor.IRegistrar, maxConns int, handler func(context.Context, *stream.Stream)) common.TransportConfig {
	t.Helper()
	config := common.ServerConfig{
		Transport: common.TransportConfig{
			Kind:     common.TransportUnix,
			Endpoint: filepath.Join(t.TempDir(), "vsh.sock"),
		},
		MaxConnections: maxConns,
	}

	server := NewUnixServerTransport(r)
	server.RegisterHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	listened := make(chan error, 1)
	go func() { listened <- server.Listen(ctx, config) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-listened:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Listen did not return after cancel")
		}
	})

	return config.Transport
}

func dial(t *testing.T, r reactor.IRegistrar, tc common.TransportConfig) *stream.Stream {
	t.Helper()
	conn, err := NewUnixClientTransport(r).Connect(context.Background(), common.ClientConfig{
		Transport:     tc,
		TimeoutSecond: 1,
		RetryCount:    20,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEcho(t *testing.T) {
	r := runReactor(t)
	tc := startServer(t, r, 4, func(ctx context.Context, conn *stream.Stream) {
		defer conn.Close()
		buf := make([]byte, 64)
		n, err := conn.ReadContext(ctx, buf)
		if err != nil {
			return
		}
		_, _ = conn.WriteContext(ctx, buf[:n])
	})

	conn := dial(t, r, tc)
	assert.Equal(t, stream.KindUnix, conn.Kind())

	_, err := conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestMaxConnectionsBoundsHandlers(t *testing.T) {
	r := runReactor(t)

	var running, peak atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 3)

	tc := startServer(t, r, 1, func(ctx context.Context, conn *stream.Stream) {
		defer conn.Close()
		n := running.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		running.Add(-1)
	})

	dial(t, r, tc)
	dial(t, r, tc)

	<-started
	select {
	case <-started:
		t.Fatal("second handler ran while the first one was busy")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("second handler never ran")
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestConnectGivesUp(t *testing.T) {
	r := runReactor(t)
	_, err := NewUnixClientTransport(r).Connect(context.Background(), common.ClientConfig{
		Transport: common.TransportConfig{
			Kind:     common.TransportUnix,
			Endpoint: filepath.Join(t.TempDir(), "missing.sock"),
		},
		TimeoutSecond: 1,
		RetryCount:    2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestConnectValidatesConfig(t *testing.T) {
	r := runReactor(t)
	_, err := NewUnixClientTransport(r).Connect(context.Background(), common.ClientConfig{
		Transport: common.TransportConfig{Kind: common.TransportUnix},
	})
	require.Error(t, err)
}

func TestListenRequiresHandler(t *testing.T) {
	r := runReactor(t)
	err := NewUnixServerTransport(r).Listen(context.Background(), common.ServerConfig{
		Transport: common.TransportConfig{
			Kind:     common.TransportUnix,
			Endpoint: filepath.Join(t.TempDir(), "vsh.sock"),
		},
	})
	require.Error(t, err)
}

func TestGetName(t *testing.T) {
	r := runReactor(t)
	assert.Equal(t, "unix", NewUnixServerTransport(r).GetName())
	assert.Equal(t, "unix", NewUnixClientTransport(r).GetName())
}
