package server

import "io"

// Config is the HTTP server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// StaticDir holds the built single-page app served for non-API paths.
	StaticDir string

	// TestMode answers every POST under /api with a fixed error after writing
	// a diagnostic capture of the request. No backend is called.
	TestMode bool

	// Passthrough relays unknown /api/* calls to backends that support it.
	Passthrough bool

	// DiagnosticOutput receives intercepted request captures. Defaults to
	// stdout.
	DiagnosticOutput io.Writer
}
