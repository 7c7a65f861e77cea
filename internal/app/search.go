package app

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/agbru/mpsearch/internal/cli"
	apperrors "github.com/agbru/mpsearch/internal/errors"
	"github.com/agbru/mpsearch/internal/logging"
	"github.com/agbru/mpsearch/internal/metrics"
	"github.com/agbru/mpsearch/internal/orchestration"
	"github.com/agbru/mpsearch/internal/report"
	"github.com/agbru/mpsearch/internal/stream"
	"github.com/agbru/mpsearch/internal/sysmon"
)

// runSearch resolves the stream, runs the worker pool and persists the
// report. Fatal stream errors return before any worker starts. An
// interrupted run still writes the partial report.
func (a *Application) runSearch(ctx context.Context, out io.Writer) int {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	cfg := a.Config
	logger := a.Logger

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return a.fail(apperrors.NewConfigError("invalid pattern %q: %v", cfg.Pattern, err))
	}
	policy, err := orchestration.ParseDeadlinePolicy(cfg.Deadline)
	if err != nil {
		return a.fail(err)
	}

	src, err := stream.Resolve(ctx, cfg.Path, stream.ObjectConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Insecure:  cfg.S3Insecure,
	})
	if err != nil {
		return a.fail(err)
	}
	if cfg.MaxReadRate > 0 {
		src = stream.Throttle(src, cfg.MaxReadRate)
	}

	recorder := metrics.NewRecorder()
	observers := orchestration.MultiObserver{recorder}
	if !cfg.Quiet {
		observers = append(observers, cli.NewProgressObserver(out))
	}

	coordinator := orchestration.NewCoordinator(orchestration.Config{
		Workers:  cfg.Workers,
		Timeout:  cfg.Timeout,
		Deadline: policy,
		Seed:     cfg.Seed,
	}, orchestration.WithLogger(logger), orchestration.WithObserver(observers))

	result, runErr := coordinator.Run(ctx, src, pattern)
	if result == nil {
		return a.fail(runErr)
	}

	rep, err := report.Build(result.Completed, result.Failed, result.Workers)
	if err != nil {
		return a.fail(apperrors.WrapError(err, "cannot build report"))
	}
	if err := report.WriteFile(cfg.ReportPath, rep); err != nil {
		return a.fail(err)
	}
	if _, err := rep.AverageTimePerByte(); err != nil {
		logger.Warn(err.Error())
	}

	a.logHost(ctx, result.Workers)
	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics export failed", err, logging.String("path", cfg.MetricsFile))
		}
	}
	if !cfg.Quiet {
		cli.PrintSummary(out, result, rep, cfg.ReportPath)
	}

	if runErr != nil {
		logger.Warn("search interrupted; partial report written", logging.String("report", cfg.ReportPath))
		return apperrors.ExitCodeFor(runErr)
	}
	if cfg.FailOnTimeout && len(result.Terminated) > 0 {
		return apperrors.ExitErrorTimeout
	}
	return apperrors.ExitSuccess
}

// fail reports err on the error writer and maps it to an exit code.
func (a *Application) fail(err error) int {
	a.Logger.Debug("search failed", logging.Err(err))
	fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
	return apperrors.ExitCodeFor(err)
}

// logHost records host load at debug level so slow runs can be explained.
func (a *Application) logHost(ctx context.Context, workers int) {
	stats := sysmon.Sample(context.WithoutCancel(ctx))
	a.Logger.Debug("host sample", stats.Fields()...)
	if stats.Oversubscribed(workers) {
		a.Logger.Debug(fmt.Sprintf("%d workers share %d logical CPUs", workers, stats.LogicalCPUs))
	}
}
