package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/config"
	"github.com/rtstore/rtstore/pkg/logger"
	"github.com/rtstore/rtstore/pkg/metrics"
	"github.com/rtstore/rtstore/pkg/observability"
)

var version = "0.1.0"

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	configFile string
	logLevel   string
	trace      bool

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Collector
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "rtstore",
		Short: "rtstore - a table store engine for realtime ingesting and analytics",
		Long: `rtstore buffers rows in memory nodes and flushes them as columnar files.
This tool inspects table descriptions, converts JSON rows to Parquet or Arrow
files and manages the metadata snapshot.`,
		SilenceUsage:       true,
		PersistentPreRunE:  func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error { return a.teardown(cmd.Context()) },
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "Export trace spans to stderr")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rtstore v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})
	root.AddCommand(newDescribeCmd(a))
	root.AddCommand(newShowCreateCmd(a))
	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newMetaCmd(a))

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.LoadConfig(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.trace {
		cfg.Tracing.Enabled = true
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	a.log = logger.With(zap.String("component", "rtstore-cli"), zap.String("command", cmd.Name()))
	logger.Debug("configuration loaded",
		zap.String("config", a.configFile),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("tracing", cfg.Tracing.Enabled))

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(prometheus.DefaultRegisterer, cfg.Metrics.Namespace)
	} else {
		a.metrics = metrics.New(nil, cfg.Metrics.Namespace)
	}

	return observability.InitTracing(cfg.Tracing,
		observability.WithWriter(cmd.ErrOrStderr()),
		observability.WithServiceVersion(version))
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := observability.Shutdown(ctx); err != nil {
		return err
	}
	_ = logger.Sync()
	return nil
}
