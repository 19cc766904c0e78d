// Package httpserver runs the admin HTTP surface with configurable timeouts
// and graceful shutdown.
//
// Run binds the listener first, so Addr reports the real port when the
// configured address ends in ":0". It blocks until its context is cancelled
// and then drains requests within Config.ShutdownTimeout. Serve wraps Run for
// errgroup. Signal handling belongs to the caller.
//
//	srv := httpserver.New(":8081", cfg, httpserver.WithLogger(log))
//	g.Go(srv.Serve(ctx, router))
//
// Bind and serve errors are wrapped with ErrStart, shutdown errors with
// ErrShutdown.
package httpserver
