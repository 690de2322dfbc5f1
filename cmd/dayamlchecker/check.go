package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"dayaml-tools/checker/pkg/cli"
	"dayaml-tools/checker/pkg/collect"
	"dayaml-tools/checker/pkg/config"
	"dayaml-tools/checker/pkg/dayaml"
	daerrors "dayaml-tools/checker/pkg/dayaml/errors"
	"dayaml-tools/checker/pkg/telemetry/logging"
	"dayaml-tools/checker/pkg/watch"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var checkFlags struct {
	checkAll      bool
	minimal       bool
	quiet         bool
	noSummary     bool
	format        string
	watch         bool
	workers       int
	contextLines  int
	metricsListen string
}

func addCheckFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&checkFlags.checkAll, "check-all", false, "do not ignore .git*, .github*, .venv* and sources directories")
	flags.BoolVarP(&checkFlags.minimal, "minimal", "m", false, "print one character per clean file instead of one line")
	flags.BoolVarP(&checkFlags.quiet, "quiet", "q", false, "print only files with errors")
	flags.BoolVar(&checkFlags.noSummary, "no-summary", false, "do not print the summary line")
	flags.StringVar(&checkFlags.format, "format", "text", "output format: text, json")
	flags.BoolVarP(&checkFlags.watch, "watch", "w", false, "keep running and re-check files when they change")
	flags.IntVar(&checkFlags.workers, "workers", config.DefaultWorkers, "number of files checked concurrently")
	flags.IntVar(&checkFlags.contextLines, "context-lines", 0, "source lines shown around each error")
	flags.StringVar(&checkFlags.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address while watching")

	cmd.MarkFlagsMutuallyExclusive("minimal", "quiet")
}

// outputMode maps the output flags to a reporter mode.
func outputMode() cli.Mode {
	switch {
	case checkFlags.minimal:
		return cli.ModeMinimal
	case checkFlags.quiet:
		return cli.ModeQuiet
	}
	return cli.ModeDefault
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(checkFlags.format)
	if err != nil {
		return usageError(err)
	}
	if checkFlags.watch && format == cli.FormatJSON {
		return usageError(fmt.Errorf("--watch cannot be combined with --format json"))
	}
	if checkFlags.metricsListen != "" && !checkFlags.watch {
		return usageError(fmt.Errorf("--metrics-listen requires --watch"))
	}

	a, err := newApp(cmd, func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("check-all") {
			cfg.Check.CheckAll = checkFlags.checkAll
		}
		if flags.Changed("workers") {
			cfg.Check.Workers = checkFlags.workers
		}
		if flags.Changed("context-lines") {
			cfg.Check.ContextLines = checkFlags.contextLines
		}
	})
	if err != nil {
		return err
	}

	files, err := collect.Collect(args, collect.Options{CheckAll: a.config.Check.CheckAll})
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No YAML files found.")
		return cli.Exit(cli.ExitErrors)
	}
	a.logger.Debug("collected files", "count", len(files), "check_all", a.config.Check.CheckAll)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	runner := &checkRunner{app: a, display: collect.NewDisplayer(args)}

	// Text output already shows progress line by line.
	progress := cli.NewProgressReporter(nil)
	if format == cli.FormatJSON {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr())
	}

	reporter := cli.NewReporter(cmd.OutOrStdout(), format, outputMode())
	summary := runner.run(ctx, files, reporter, progress)
	if err := reporter.Finish(summary, !checkFlags.noSummary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if checkFlags.watch {
		return runner.watch(ctx, cmd, args)
	}
	if summary.Errors > 0 {
		return cli.Exit(cli.ExitErrors)
	}
	return nil
}

// outcome is the result of handling one collected file. result is nil for
// skipped files and files not reached before an interrupt.
type outcome struct {
	result  *dayaml.Result
	skipped bool
	name    string
}

type checkRunner struct {
	app     *app
	display *collect.Displayer
}

// run checks files with at most Workers checks in flight and hands the
// outcomes to reporter in the order of files.
func (r *checkRunner) run(ctx context.Context, files []string, reporter cli.Reporter, progress cli.ProgressReporter) cli.Summary {
	outcomes := make([]outcome, len(files))
	done := make([]chan struct{}, len(files))
	for i := range done {
		done[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.app.config.Check.Workers)
	go func() {
		for i, file := range files {
			g.Go(func() error {
				defer close(done[i])
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = r.checkFile(gctx, file)
				return nil
			})
		}
	}()

	progress.Start(len(files))
	var summary cli.Summary
	for i := range files {
		<-done[i]
		progress.Increment()

		out := outcomes[i]
		switch {
		case out.skipped:
			summary.Skipped++
			reporter.Skipped(out.name)
		case out.result == nil:
		case out.result.HasErrors():
			summary.Errors++
			reporter.Result(out.result)
		default:
			summary.OK++
			reporter.Result(out.result)
		}
	}
	if err := g.Wait(); err != nil {
		r.app.logger.Warn("check interrupted", "checked", summary.Total(), "total", len(files))
	}
	progress.Finish()
	return summary
}

// checkFile checks one file, naming it by its display path.
func (r *checkRunner) checkFile(ctx context.Context, path string) outcome {
	name := r.display.Display(path)
	if collect.ShouldSkip(path, r.app.config.Check.SkipFiles...) {
		r.app.collector.RecordSkipped()
		return outcome{skipped: true, name: name}
	}

	ctx = logging.WithFile(ctx, name)
	data, err := os.ReadFile(path)
	if err != nil {
		r.app.logger.WarnContext(ctx, "failed to read file", "error", err)
		return outcome{
			name: name,
			result: &dayaml.Result{
				File:   name,
				Errors: []*daerrors.Error{dayaml.IOError(name, err)},
			},
		}
	}
	return outcome{name: name, result: r.app.checker.Check(ctx, name, string(data))}
}

// watch re-checks files under paths as they change until ctx is canceled.
func (r *checkRunner) watch(ctx context.Context, cmd *cobra.Command, paths []string) error {
	w, err := watch.New(watch.Config{
		Paths:    paths,
		Debounce: r.app.config.Watch.Debounce,
		CheckAll: r.app.config.Check.CheckAll,
	}, r.app.logger.Slog())
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	if checkFlags.metricsListen != "" {
		if err := r.serveMetrics(ctx, checkFlags.metricsListen); err != nil {
			return cli.NewCommandError("watch", err)
		}
	}

	mode := cli.ModeDefault
	if checkFlags.quiet {
		mode = cli.ModeQuiet
	}
	reporter := cli.NewReporter(cmd.OutOrStdout(), cli.FormatText, mode)
	fmt.Fprintln(cmd.ErrOrStderr(), "Watching for changes. Press Ctrl+C to stop.")

	err = w.Watch(ctx, func(path string) {
		out := r.checkFile(ctx, path)
		if out.skipped {
			reporter.Skipped(out.name)
			return
		}
		reporter.Result(out.result)
	})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// serveMetrics exposes the collector on addr until ctx is canceled.
func (r *checkRunner) serveMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+r.app.config.Metrics.Path, r.app.collector.Handler())
	srv := &http.Server{
		Handler:     mux,
		ReadTimeout: r.app.config.Server.ReadTimeout,
		IdleTimeout: r.app.config.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.app.config.Server.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.app.logger.Error("metrics server failed", "error", err)
		}
	}()

	r.app.logger.Info("serving metrics", "address", ln.Addr().String(), "path", r.app.config.Metrics.Path)
	return nil
}
