// This file contains environment variable overrides.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// Used for aliased flags where either the short or long form may be given.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride maps an env key (without the MPSEARCH_ prefix) to the flag
// name(s) it stands for and a function that applies the value. Unparsable
// values are ignored.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

var envOverrides = []envOverride{
	// Numeric overrides
	{"WORKERS", []string{"workers"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.Workers = parsed
		}
	}},
	{"MAX_READ_RATE", []string{"max-read-rate"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.MaxReadRate = parsed
		}
	}},
	{"SEED", []string{"seed"}, func(c *AppConfig, v string) {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}},

	// Duration overrides
	{"TIMEOUT", []string{"timeout"}, func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Timeout = parsed
		}
	}},

	// String overrides
	{"DEADLINE", []string{"deadline"}, func(c *AppConfig, v string) {
		c.Deadline = v
	}},
	{"REPORT", []string{"report"}, func(c *AppConfig, v string) {
		c.ReportPath = v
	}},
	{"METRICS_FILE", []string{"metrics-file"}, func(c *AppConfig, v string) {
		c.MetricsFile = v
	}},
	{"LOG_FILE", []string{"log-file"}, func(c *AppConfig, v string) {
		c.LogFile = v
	}},
	{"LOG_LEVEL", []string{"log-level"}, func(c *AppConfig, v string) {
		c.LogLevel = v
	}},
	{"THEME", []string{"theme"}, func(c *AppConfig, v string) {
		c.Theme = v
	}},
	{"S3_ENDPOINT", []string{"s3-endpoint"}, func(c *AppConfig, v string) {
		c.S3Endpoint = v
	}},
	{"S3_ACCESS_KEY", []string{"s3-access-key"}, func(c *AppConfig, v string) {
		c.S3AccessKey = v
	}},
	{"S3_SECRET_KEY", []string{"s3-secret-key"}, func(c *AppConfig, v string) {
		c.S3SecretKey = v
	}},

	// Boolean overrides
	{"QUIET", []string{"quiet", "q"}, func(c *AppConfig, v string) {
		c.Quiet = parseBoolEnv(v, c.Quiet)
	}},
	{"FAIL_ON_TIMEOUT", []string{"fail-on-timeout"}, func(c *AppConfig, v string) {
		c.FailOnTimeout = parseBoolEnv(v, c.FailOnTimeout)
	}},
	{"S3_INSECURE", []string{"s3-insecure"}, func(c *AppConfig, v string) {
		c.S3Insecure = parseBoolEnv(v, c.S3Insecure)
	}},
}

// parseBoolEnv accepts "true", "1", "yes" as true and "false", "0", "no" as
// false (case-insensitive). Anything else returns defaultVal.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
//
// Supported environment variables (all prefixed with MPSEARCH_):
//   - WORKERS, TIMEOUT, DEADLINE, REPORT, METRICS_FILE, LOG_FILE, LOG_LEVEL,
//     MAX_READ_RATE, SEED, THEME, QUIET, FAIL_ON_TIMEOUT, CONFIG,
//     S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY, S3_INSECURE
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
