package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"dayaml-tools/checker/pkg/cli"
	"dayaml-tools/checker/pkg/config"
	"dayaml-tools/checker/pkg/dayaml"
	"dayaml-tools/checker/pkg/telemetry/logging"
	"dayaml-tools/checker/pkg/telemetry/metrics"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dayamlchecker [paths...]",
		Short: "Validate docassemble interview YAML files",
		Long: `Validate docassemble interview YAML files.

Each file is split into documents, every document is classified into its
block type and the keys, field lists and embedded Python, JavaScript and
Mako fragments are checked. Directories are searched recursively for .yml
and .yaml files; .git*, .github*, .venv* and sources directories are
ignored unless --check-all is given.

Errors prefixed with "REAL ERROR" are certain. Other findings come from
static analysis and may be false positives.

Examples:
  # Check a package's questions
  dayamlchecker docassemble/MyPackage/data/questions

  # One character per file
  dayamlchecker -m questions/

  # JSON report
  dayamlchecker --format json questions/ > report.json`,
		Version:       Version,
		Args:          usageArgs(cobra.MinimumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCheck,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (text, json)")

	addCheckFlags(cmd)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	cmd.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newMCPConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return exitCode(rootCmd.Execute(), os.Stderr)
}

// exitCode reports err on stderr unless it was already shown and maps it to
// an exit code.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return cli.ExitOK
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		if !exitErr.Silent {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr)
		}
		return exitErr.Code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	var cfgErr *cli.ConfigError
	if errors.As(err, &cfgErr) {
		return cli.ExitUsage
	}
	return cli.ExitErrors
}

// usageError marks err as a command line mistake.
func usageError(err error) error {
	return &cli.ExitError{Code: cli.ExitUsage, Err: err}
}

// usageArgs reports argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// app holds what every command builds from the configuration.
type app struct {
	config    *config.Config
	logger    *logging.Logger
	collector *metrics.Collector
	checker   *dayaml.Checker
}

// newApp loads the configuration, applies the global flag overrides and
// those of override, then builds the logger, metrics collector and checker.
// Logs go to stderr.
func newApp(cmd *cobra.Command, override func(cfg *config.Config)) (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(configName(), err.Error())
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if override != nil {
		override(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, cli.NewConfigError("flags", err.Error())
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
		Writer:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, cli.NewConfigError("logging", err.Error())
	}

	collector := metrics.NewCollector(&cfg.Metrics, nil)
	checker := dayaml.NewChecker(
		dayaml.WithLogger(logger.Slog()),
		dayaml.WithMetrics(collector),
		dayaml.WithContextLines(cfg.Check.ContextLines),
		dayaml.WithMaxDepth(cfg.Check.MaxDepth),
	)

	return &app{
		config:    cfg,
		logger:    logger,
		collector: collector,
		checker:   checker,
	}, nil
}

func configName() string {
	if cfgFile == "" {
		return "environment"
	}
	return cfgFile
}
