package httpserver_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/dentflow/pkg/httpserver"
)

var fastShutdown = httpserver.Config{ShutdownTimeout: 100 * time.Millisecond}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// start runs srv in the background and returns the bound address and the Run result channel.
func start(t *testing.T, ctx context.Context, handler http.Handler, opts ...httpserver.Option) (*httpserver.Server, string, <-chan error) {
	t.Helper()

	bound := make(chan string, 1)
	opts = append([]httpserver.Option{
		httpserver.WithLogger(quietLogger()),
		httpserver.WithOnStarted(func(addr string) { bound <- addr }),
	}, opts...)
	srv := httpserver.New("127.0.0.1:0", fastShutdown, opts...)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler) }()

	select {
	case addr := <-bound:
		return srv, addr, done
	case err := <-done:
		require.FailNow(t, "server exited early", "%v", err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "server did not start")
	}
	return nil, "", nil
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, addr, done := start(t, ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	assert.Equal(t, addr, srv.Addr())
	assert.NotEqual(t, "127.0.0.1:0", addr)

	resp, err := http.Get("http://" + addr)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	cancel()
	waitDone(t, done)
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestServe_WithErrgroup(t *testing.T) {
	t.Parallel()

	bound := make(chan string, 1)
	srv := httpserver.New("127.0.0.1:0", fastShutdown,
		httpserver.WithLogger(quietLogger()),
		httpserver.WithOnStarted(func(addr string) { bound <- addr }))

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve(gctx, http.NewServeMux()))

	addr := <-bound
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	cancel()
	require.NoError(t, g.Wait())
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("manual and repeated", func(t *testing.T) {
		t.Parallel()

		var stopped atomic.Int32
		srv, _, done := start(t, context.Background(), http.NewServeMux(),
			httpserver.WithOnStopped(func() { stopped.Add(1) }))

		require.NoError(t, srv.Shutdown(context.Background()))
		require.NoError(t, srv.Shutdown(context.Background()))
		waitDone(t, done)
		assert.Equal(t, int32(1), stopped.Load())
	})

	t.Run("before run", func(t *testing.T) {
		t.Parallel()
		srv := httpserver.New("", httpserver.Config{}, httpserver.WithLogger(quietLogger()))
		assert.Equal(t, ":8081", srv.Addr())
		assert.NoError(t, srv.Shutdown(context.Background()))
	})
}

func TestRun_BindError(t *testing.T) {
	t.Parallel()

	srv := httpserver.New("127.0.0.1:invalid", httpserver.Config{}, httpserver.WithLogger(quietLogger()))
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestRun_AlreadyRunning(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	srv, _, done := start(t, ctx, http.NewServeMux())

	err := srv.Run(context.Background(), http.NewServeMux())
	assert.ErrorIs(t, err, httpserver.ErrStart)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)

	cancel()
	waitDone(t, done)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { httpserver.WithOnStarted(nil) })
	assert.Panics(t, func() { httpserver.WithOnStopped(nil) })
	assert.NotPanics(t, func() { httpserver.WithLogger(nil) })
}
