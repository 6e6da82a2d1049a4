package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	configFile string
	logOutput  io.Writer
	mcpIn      io.Reader
	mcpOut     io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigFile names the file cfg was loaded from. The file is watched and
// viewer settings are reloaded when it changes.
func WithConfigFile(path string) Option {
	return func(a *application) {
		a.configFile = path
	}
}

// WithLogOutput sets where the JSON log is written. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithMCP serves the MCP tools over in/out alongside the HTTP server. The
// application stops when in is closed.
func WithMCP(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.mcpIn = in
		a.mcpOut = out
	}
}
