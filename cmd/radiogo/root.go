package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/prometheus/common/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/zachfi/zkit/pkg/tracing"

	"github.com/zachfi/radiogo/app"
)

func newRootCmd(cfg *app.Config, fs *flag.FlagSet) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Play internet radio stations from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().AddGoFlagSet(fs)
	lo.Must0(root.MarkPersistentFlagFilename(configFileOption, "yaml", "yml"))

	root.AddCommand(newPlayCmd(cfg), newVersionCmd())

	if os.Getenv("NO_COLOR") == "" {
		cc.Init(&cc.Config{
			RootCmd:       root,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	return root
}

func newPlayCmd(cfg *app.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "play <name-or-id>",
		Short:   "Resolve a station and play it",
		Long:    "Resolve a station name or directory id, print the stream URL and play it with a live level meter.",
		Example: "  radiogo play s12345\n  radiogo play \"groove salad\"\n  radiogo play --config.file radiogo.yaml --player.record-dir ~/radio s12345",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Player.Station = args[0]
			return run(cfg)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Print(appName))
		},
	}
}

func run(cfg *app.Config) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	// stdout carries the stream URL and the meter.
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	shutdownTracer, err := tracing.InstallOpenTelemetryTracer(&cfg.Tracing, logger, appName, Version)
	if err != nil {
		return fmt.Errorf("error initialising tracer: %w", err)
	}
	defer shutdownTracer()

	a, err := app.New(*cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", appName, err)
	}

	return a.Run()
}
