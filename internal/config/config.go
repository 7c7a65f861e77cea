// Package config parses and validates the command line, environment and
// optional YAML file that configure a search.
package config

import (
	"flag"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	apperrors "github.com/agbru/mpsearch/internal/errors"
	"github.com/agbru/mpsearch/internal/logging"
	"github.com/agbru/mpsearch/internal/orchestration"
	"github.com/agbru/mpsearch/internal/ui"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "MPSEARCH_"

// Defaults.
const (
	DefaultReportPath = "report.log"
	DefaultLogLevel   = "warn"
	DefaultDeadline   = "per-worker"
	DefaultTheme      = "dark"
)

// AppConfig is the fully resolved configuration of one invocation.
type AppConfig struct {
	// Path is a filesystem path or an s3://bucket/key location.
	Path    string
	Pattern string

	Workers     int
	Timeout     time.Duration
	Deadline    string
	ReportPath  string
	MetricsFile string
	LogFile     string
	LogLevel    string
	MaxReadRate int
	Seed        uint64
	ConfigFile  string

	Theme         string
	Quiet         bool
	FailOnTimeout bool

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Insecure  bool
}

// Validate checks semantic constraints that the flag parser cannot express.
func (c AppConfig) Validate() error {
	if c.Path == "" {
		return apperrors.NewConfigError("a stream path is required")
	}
	if c.Pattern == "" {
		return apperrors.NewConfigError("the search pattern must not be empty")
	}
	if _, err := regexp.Compile(c.Pattern); err != nil {
		return apperrors.NewConfigError("invalid pattern %q: %v", c.Pattern, err)
	}
	if c.Workers < 1 {
		return apperrors.NewConfigError("--workers must be at least 1, got %d", c.Workers)
	}
	if c.Timeout < 0 {
		return apperrors.NewConfigError("--timeout must not be negative, got %s", c.Timeout)
	}
	if c.MaxReadRate < 0 {
		return apperrors.NewConfigError("--max-read-rate must not be negative, got %d", c.MaxReadRate)
	}
	if _, err := orchestration.ParseDeadlinePolicy(c.Deadline); err != nil {
		return err
	}
	if !ui.ValidThemeName(c.Theme) {
		return apperrors.NewConfigError("unknown theme %q (want dark, light or none)", c.Theme)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return apperrors.NewConfigError("unknown log level %q", c.LogLevel)
	}
	return nil
}

// ParseConfig resolves the configuration from args (without the program
// name). Priority is: flags, then MPSEARCH_* environment variables, then the
// YAML file named by --config, then defaults. Usage errors are written to
// errWriter; --help returns flag.ErrHelp.
func ParseConfig(programName string, args []string, errWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)
	fs.Usage = func() {
		fmt.Fprintf(errWriter, "Usage: %s [flags] <path|s3://bucket/key> <pattern> [timeout-seconds]\n\n", programName)
		fmt.Fprintln(errWriter, "Searches a byte stream for a pattern with a pool of concurrent workers")
		fmt.Fprintln(errWriter, "and writes a per-worker report.")
		fmt.Fprintln(errWriter, "\nFlags:")
		fs.PrintDefaults()
	}

	config := AppConfig{}
	fs.IntVar(&config.Workers, "workers", orchestration.DefaultWorkers, "Number of concurrent workers.")
	fs.DurationVar(&config.Timeout, "timeout", orchestration.DefaultTimeout, "Time to wait for each worker (e.g. 10s, 1m).")
	fs.StringVar(&config.Deadline, "deadline", DefaultDeadline, "Deadline policy: 'per-worker' or 'shared'.")
	fs.StringVar(&config.ReportPath, "report", DefaultReportPath, "Path of the run report.")
	fs.StringVar(&config.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file.")
	fs.StringVar(&config.LogFile, "log-file", "", "Append a JSON debug log to this file.")
	fs.StringVar(&config.LogLevel, "log-level", DefaultLogLevel, "Console log level (debug, info, warn, error).")
	fs.IntVar(&config.MaxReadRate, "max-read-rate", 0, "Limit total reads to this many bytes per second (0 = unlimited).")
	fs.Uint64Var(&config.Seed, "seed", 0, "Seed for worker read sizes (0 = time-based).")
	fs.StringVar(&config.ConfigFile, "config", "", "YAML configuration file.")
	fs.StringVar(&config.Theme, "theme", DefaultTheme, "Console colour theme: dark, light or none.")
	fs.BoolVar(&config.Quiet, "quiet", false, "Suppress the spinner and console summary.")
	fs.BoolVar(&config.Quiet, "q", false, "Shorthand for --quiet.")
	fs.BoolVar(&config.FailOnTimeout, "fail-on-timeout", false, "Exit with status 2 when any worker timed out.")
	fs.StringVar(&config.S3Endpoint, "s3-endpoint", "", "S3-compatible endpoint for s3:// locations.")
	fs.StringVar(&config.S3AccessKey, "s3-access-key", "", "S3 access key.")
	fs.StringVar(&config.S3SecretKey, "s3-secret-key", "", "S3 secret key.")
	fs.BoolVar(&config.S3Insecure, "s3-insecure", false, "Use plain HTTP for the S3 endpoint.")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return AppConfig{}, err
	}

	configFile := config.ConfigFile
	if !isFlagSet(fs, "config") {
		configFile = getEnvString("CONFIG", configFile)
	}
	if configFile != "" {
		if err := applyFileConfig(&config, fs, configFile); err != nil {
			return AppConfig{}, err
		}
		config.ConfigFile = configFile
	}
	applyEnvOverrides(&config, fs)

	if err := applyPositional(&config, positional); err != nil {
		fs.Usage()
		return AppConfig{}, err
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintln(errWriter, "Error:", err)
		return AppConfig{}, err
	}
	return config, nil
}

// parseInterleaved parses flags that may appear before, between or after
// positional arguments. Everything after a "--" terminator is positional,
// so a pattern such as "-x" can be searched for.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// applyPositional maps "path pattern [timeout-seconds]". A positional timeout
// takes precedence over every other source.
func applyPositional(c *AppConfig, positional []string) error {
	if len(positional) < 2 || len(positional) > 3 {
		return apperrors.NewConfigError("expected <path> <pattern> [timeout-seconds], got %d arguments", len(positional))
	}
	c.Path, c.Pattern = positional[0], positional[1]
	if len(positional) == 3 {
		secs, err := strconv.ParseFloat(positional[2], 64)
		if err != nil || secs < 0 {
			return apperrors.NewConfigError("timeout must be a non-negative number of seconds, got %q", positional[2])
		}
		c.Timeout = time.Duration(secs * float64(time.Second))
	}
	return nil
}
