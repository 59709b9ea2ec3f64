package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stickerkit/internal/config"
	"stickerkit/internal/metrics"
	"stickerkit/pkg/logging"
)

// app is what every command needs after the root pre-run.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	logFile io.Closer
}

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "stickerkit",
		Short:         "stickerkit - turn transparent PNGs into trimmed, styled stickers",
		Long:          "stickerkit trims transparent borders, fits images to sticker size, applies adjustments and filters, and exports PNGs or zip archives.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(ctx, cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(ctx)
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewProcessCmd(ctx, a),
		NewBatchCmd(ctx, a),
		NewScanCmd(ctx, a),
		NewWatchCmd(ctx, a),
	)
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := cmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR); overrides the config file")
	pf.String("log-file", "", "write logs to this file with size based rotation")
	pf.Bool("log-json", false, "log as JSON")
	pf.String("metrics-file", "", "write Prometheus metrics in textfile format when the command ends")
	return cmd
}

func (a *app) setup(ctx context.Context, cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		cfg.Log.File, _ = flags.GetString("log-file")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile, _ = flags.GetString("metrics-file")
	}

	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		rw := logging.RotatingWriter(logging.RotateOptions{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   true,
		})
		a.logFile = rw
		w = rw
	}

	level, levelErr := logging.ParseLevel(cfg.Log.Level)
	a.log = logging.Logger(w, cfg.Log.JSON, level)
	slog.SetDefault(a.log)
	if levelErr != nil {
		slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", cfg.Log.Level, "error", levelErr)
	}

	a.cfg = cfg
	a.metrics = metrics.New()
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.cfg != nil && a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			slog.ErrorContext(ctx, "writing metrics failed", "path", a.cfg.MetricsFile, "error", err)
		}
	}
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		if subCmd.Hidden {
			continue
		}
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
}
