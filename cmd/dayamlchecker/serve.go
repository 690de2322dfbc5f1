package main

import (
	"fmt"

	"dayaml-tools/checker/pkg/cli"
	"dayaml-tools/checker/pkg/config"
	"dayaml-tools/checker/pkg/server"
	"dayaml-tools/checker/pkg/telemetry/health"

	"github.com/spf13/cobra"
)

var serveFlags struct {
	listenAddress string
	noMetrics     bool
	dryRun        bool
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP validation API",
		Long: `Serve the HTTP validation API.

Endpoints:
  POST /validate   check an interview file sent as the raw body
                   (?filename= names it) or as JSON {"content", "filename"}
  GET  /healthz    liveness
  GET  /readyz     readiness
  GET  /version    build information
  GET  /metrics    Prometheus metrics (unless disabled)

Examples:
  # Listen on the configured address
  dayamlchecker serve

  # Override listen address
  dayamlchecker serve --listen 0.0.0.0:8080

  # Validate config without starting the server
  dayamlchecker serve --dry-run`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runServe,
	}

	cmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().BoolVar(&serveFlags.noMetrics, "no-metrics", false, "disable the metrics endpoint")
	cmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, func(cfg *config.Config) {
		if serveFlags.listenAddress != "" {
			cfg.Server.ListenAddress = serveFlags.listenAddress
		}
		if serveFlags.noMetrics {
			cfg.Metrics.Enabled = false
		}
	})
	if err != nil {
		return err
	}

	if serveFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid. Would listen on %s\n", a.config.Server.ListenAddress)
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	srv := server.NewServer(a.config, a.checker, a.collector, a.logger,
		server.WithVersion(health.VersionInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildDate: BuildDate,
		}),
	)
	a.logger.Info("starting server",
		"version", Version,
		"address", a.config.Server.ListenAddress,
		"metrics", a.config.Metrics.Enabled,
		"tls", a.config.Server.TLS.Enabled,
	)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	a.logger.Info("server stopped")
	return nil
}
