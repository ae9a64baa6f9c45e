package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build, optimize and publish the contract to the configured network",
	Long: `deploy runs the full release pipeline from the repository root:

  preflight → network → identity → build → optimize → publish → record → verify → summary

Configuration is read from deploy.yaml in the working directory (or the
file named by DEPLOY_CONFIG). The remote contract id is written to the
record file, .contract-id by default.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		return run(cmd.Context(), environment{
			rootDir:     root,
			getenv:      os.Getenv,
			stdin:       os.Stdin,
			stdout:      cmd.OutOrStdout(),
			interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
		})
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		die(err)
	}
}

func die(err error) {
	if !reported(err) {
		fmt.Fprintf(os.Stderr, "deploy: %v\n", err)
	}
	os.Exit(1)
}
