package httpserver

import "errors"

var (
	ErrStart          = errors.New("admin server failed to start")
	ErrShutdown       = errors.New("admin server failed to shut down gracefully")
	ErrAlreadyRunning = errors.New("admin server already running")
)
