package httpserver

import "log/slog"

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOnStarted registers a callback invoked with the bound address once the
// listener is open.
func WithOnStarted(fn func(addr string)) Option {
	if fn == nil {
		panic("httpserver: nil OnStarted callback")
	}
	return func(s *Server) { s.onStarted = append(s.onStarted, fn) }
}

// WithOnStopped registers a callback invoked after graceful shutdown.
func WithOnStopped(fn func()) Option {
	if fn == nil {
		panic("httpserver: nil OnStopped callback")
	}
	return func(s *Server) { s.onStopped = append(s.onStopped, fn) }
}
