package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// qualityCmd wraps a devtool check into a command that logs how it went.
func qualityCmd(use, short, what string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("running " + what)
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", what, err)
			}
			slog.Info(what + " passed")
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return qualityCmd("test", "Run unit tests (driver, transports, monitor, cli)", "unit tests", test.Test)
}

func LintCmd() *cobra.Command {
	return qualityCmd("lint", "Run linters", "lint", test.Lint)
}

func IntegrationTestCmd() *cobra.Command {
	return qualityCmd("integration-test", "Run integration tests against an attached sensor", "integration tests", test.Integ)
}
