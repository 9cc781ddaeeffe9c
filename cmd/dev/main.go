package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mklimuk/luxmeter/cmd/dev/cmd"
)

func setupLogger(debug bool) {
	charm := log.NewWithOptions(os.Stdout, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "dev",
	})
	charm.SetColorProfile(termenv.TrueColor)
	charm.SetLevel(log.InfoLevel)
	if debug {
		charm.SetLevel(log.DebugLevel)
	}
	slog.SetDefault(slog.New(charm))
}

func newRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:           "dev",
		Short:         "build/test/release tool for the luxmeter project",
		Long:          "Builds the luxmeter cli (natively or in docker for the NanoPi), runs tests and linters and maintains the changelog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.AddCommand(
		cmd.BuildCmd(),
		cmd.ChangelogCmd(),
		cmd.TestCmd(),
		cmd.LintCmd(),
		cmd.IntegrationTestCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("dev command failed", "error", err)
		os.Exit(1)
	}
}
