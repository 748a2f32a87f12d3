// Command envault is the client for the envault secret exchange: it
// encrypts project .env files locally and pushes only ciphertext to the
// server.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/envault/envault/internal/cli"
	"github.com/envault/envault/internal/errs"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var (
	verbose bool
	debug   bool
	logger  cli.Logger

	serverFlag   string
	registryFlag string
	timeoutFlag  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "envault",
	Short: "Push and pull encrypted .env files through a shared server",
	Long: `envault keeps project secrets out of version control. Files are
encrypted on this machine with a per-project key that never leaves it;
the server only ever sees ciphertext and hands out a one-time access key
when a project is first stored.

Run 'envault init' in a project directory to get started.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = cli.Logger{Verbose: verbose, Debug: debug}
		logger.Debugf("envault %s (%s)", version, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "server URL (overrides envault.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryFlag, "registry", "", "registry file (overrides envault.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "request timeout (overrides envault.yaml)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✗")+" "+err.Error())
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps the sentinel behind err to a stable exit code so
// scripts can branch on outcomes without parsing messages.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errs.ErrConflict):
		return 3
	case errors.Is(err, errs.ErrUnauthorized):
		return 4
	case errors.Is(err, errs.ErrNoAccessKey):
		return 5
	case errors.Is(err, errs.ErrIntegrity):
		return 6
	case errors.Is(err, errs.ErrUnavailable), errors.Is(err, errs.ErrRateLimited):
		return 7
	default:
		return 1
	}
}
