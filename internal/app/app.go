// Package app wires configuration, the stream source, the coordinator and the
// report writer into the mpsearch command.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agbru/mpsearch/internal/config"
	"github.com/agbru/mpsearch/internal/logging"
	"github.com/agbru/mpsearch/internal/ui"
)

// Version is set at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

// Application represents the mpsearch application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer
	// Logger overrides the console logger built from Config.LogLevel.
	Logger logging.Logger
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) AppOption {
	return func(a *Application) { a.Logger = l }
}

// New creates a new Application by parsing command-line arguments. args[0]
// is the program name.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}

	programName := "mpsearch"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	if app.Logger == nil {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		app.Logger = logging.NewConsoleLogger(errWriter, level)
	}
	return app, nil
}

// Run executes the search and returns the process exit code.
// With Config.LogFile set, every entry from debug upwards is also appended
// to that file as JSON.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	ui.InitTheme(a.Config.Theme)
	if a.Config.LogFile != "" {
		f, err := os.OpenFile(a.Config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return a.fail(fmt.Errorf("failed to open log file: %w", err))
		}
		defer f.Close()
		console := a.Logger
		a.Logger = logging.Tee(console, logging.NewLogger(f, "mpsearch"))
		defer func() { a.Logger = console }()
	}
	return a.runSearch(ctx, out)
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

// HasVersionFlag reports whether args request the version string.
func HasVersionFlag(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--version", "-version", "-V":
			return true
		}
	}
	return false
}

// PrintVersion writes the program version to out.
func PrintVersion(out io.Writer) {
	fmt.Fprintf(out, "mpsearch %s\n", Version)
}
