package config

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/mpsearch/internal/errors"
)

// fileConfig mirrors the flags that may be set from a YAML file. Pointer
// fields distinguish "absent" from a zero value.
type fileConfig struct {
	Workers       *int    `yaml:"workers"`
	Timeout       *string `yaml:"timeout"`
	Deadline      *string `yaml:"deadline"`
	Report        *string `yaml:"report"`
	MetricsFile   *string `yaml:"metrics_file"`
	LogFile       *string `yaml:"log_file"`
	LogLevel      *string `yaml:"log_level"`
	MaxReadRate   *int    `yaml:"max_read_rate"`
	Seed          *uint64 `yaml:"seed"`
	Theme         *string `yaml:"theme"`
	Quiet         *bool   `yaml:"quiet"`
	FailOnTimeout *bool   `yaml:"fail_on_timeout"`
	S3            struct {
		Endpoint  *string `yaml:"endpoint"`
		AccessKey *string `yaml:"access_key"`
		SecretKey *string `yaml:"secret_key"`
		Insecure  *bool   `yaml:"insecure"`
	} `yaml:"s3"`
}

// loadFileConfig decodes path strictly: unknown keys are an error.
func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, apperrors.NewConfigError("cannot read config file %s: %v", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, apperrors.NewConfigError("invalid config file %s: %v", path, err)
	}
	return fc, nil
}

// applyFileConfig copies values from the YAML file into config for every
// flag that was not set explicitly.
func applyFileConfig(config *AppConfig, fs *flag.FlagSet, path string) error {
	fc, err := loadFileConfig(path)
	if err != nil {
		return err
	}
	set := func(names ...string) bool { return isFlagSetAny(fs, names...) }

	if fc.Workers != nil && !set("workers") {
		config.Workers = *fc.Workers
	}
	if fc.Timeout != nil && !set("timeout") {
		d, err := time.ParseDuration(*fc.Timeout)
		if err != nil {
			return apperrors.NewConfigError("invalid timeout %q in %s", *fc.Timeout, path)
		}
		config.Timeout = d
	}
	if fc.Deadline != nil && !set("deadline") {
		config.Deadline = *fc.Deadline
	}
	if fc.Report != nil && !set("report") {
		config.ReportPath = *fc.Report
	}
	if fc.MetricsFile != nil && !set("metrics-file") {
		config.MetricsFile = *fc.MetricsFile
	}
	if fc.LogFile != nil && !set("log-file") {
		config.LogFile = *fc.LogFile
	}
	if fc.LogLevel != nil && !set("log-level") {
		config.LogLevel = *fc.LogLevel
	}
	if fc.MaxReadRate != nil && !set("max-read-rate") {
		config.MaxReadRate = *fc.MaxReadRate
	}
	if fc.Seed != nil && !set("seed") {
		config.Seed = *fc.Seed
	}
	if fc.Theme != nil && !set("theme") {
		config.Theme = *fc.Theme
	}
	if fc.Quiet != nil && !set("quiet", "q") {
		config.Quiet = *fc.Quiet
	}
	if fc.FailOnTimeout != nil && !set("fail-on-timeout") {
		config.FailOnTimeout = *fc.FailOnTimeout
	}
	if fc.S3.Endpoint != nil && !set("s3-endpoint") {
		config.S3Endpoint = *fc.S3.Endpoint
	}
	if fc.S3.AccessKey != nil && !set("s3-access-key") {
		config.S3AccessKey = *fc.S3.AccessKey
	}
	if fc.S3.SecretKey != nil && !set("s3-secret-key") {
		config.S3SecretKey = *fc.S3.SecretKey
	}
	if fc.S3.Insecure != nil && !set("s3-insecure") {
		config.S3Insecure = *fc.S3.Insecure
	}
	return nil
}
