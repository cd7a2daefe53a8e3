// Package cli implements the capable command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yairfalse/capable/internal/observers/capabilities"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "capable",
	Short: "Trace capability checks made by a container",
	Long: `capable traces every capability check a target workload performs,
so you can derive the minimum capability set it needs to run under
least privilege.

Point it at a pid with --pid; the probe discovers the pid's cgroup and
follows the whole container, including forks and short-lived children.
Alternatively pre-bind the scope with --cgroup-path.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	flags := rootCmd.Flags()
	flags.Uint32P("pid", "p", 0, "target pid (task group) to trace")
	flags.BoolP("verbose", "v", false, "include checks the kernel would not audit")
	flags.String("unique", "off", "suppress repeats per scope key: off, pid or cgroup")
	flags.BoolP("extra", "x", false, "show TID and INSETID columns")
	flags.StringP("output-file", "o", "", "also append events to this file")
	flags.String("cgroup-path", "", "pre-bind the trace scope to a cgroup v2 directory")
	flags.Bool("mock", false, "run without eBPF (development)")
	flags.Bool("debug", false, "enable debug logging")

	viper.SetEnvPrefix("CAPABLE")
	viper.AutomaticEnv()
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("capable version %s\n", rootCmd.Version))
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// configFromFlags maps flag and environment values onto an observer config.
func configFromFlags() (*capabilities.Config, bool, error) {
	unique, err := capabilities.ParseUniqueMode(viper.GetString("unique"))
	if err != nil {
		return nil, false, err
	}

	cfg := capabilities.DefaultConfig()
	cfg.TargetPID = viper.GetUint32("pid")
	cfg.Verbose = viper.GetBool("verbose")
	cfg.Unique = unique
	cfg.CgroupPath = viper.GetString("cgroup-path")
	cfg.MockMode = viper.GetBool("mock")

	return cfg, viper.GetBool("extra"), nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	// Keep stdout free for event rows
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, extra, err := configFromFlags()
	if err != nil {
		return err
	}

	logger, err := newLogger(viper.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	observer, err := capabilities.NewObserver(cfg.Name, cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := observer.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := observer.Stop(); err != nil {
			logger.Warn("Observer stop reported error", zap.Error(err))
		}
	}()

	var tee io.Writer
	if path := viper.GetString("output-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer f.Close()
		tee = f
	}

	printer := NewPrinter(cmd.OutOrStdout(), tee, extra)
	if err := printer.Banner(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			stats := observer.Statistics()
			logger.Info("Shutting down",
				zap.Int64("events", stats.EventsProcessed),
				zap.Int64("dropped", stats.EventsDropped),
				zap.String("ring_lost", stats.CustomMetrics["ring_lost"]),
			)
			return nil
		case ev, ok := <-observer.Events():
			if !ok {
				return nil
			}
			if err := printer.Event(ev); err != nil {
				logger.Warn("Failed to print event", zap.Error(err))
			}
		}
	}
}
