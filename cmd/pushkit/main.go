package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushkit-dev/pushkit/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┬ ┬┌─┐┬ ┬┬┌─┬┌┬┐
  ╠═╝│ │└─┐├─┤├┴┐│ │
  ╩  └─┘└─┘┴ ┴┴ ┴┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "pushkit",
		Short: "Command-line client for Channels-protocol realtime messaging",
		Long: `Pushkit is a realtime pub/sub client for the Channels protocol.

Subscribe to public, private, and presence channels from the
terminal, run a local auth server for development, and watch
events as they arrive:

  • Live event tailing with automatic reconnect
  • Channel auth signing for private/presence channels
  • Prometheus metrics for long-running watchers
  • pushkit.json project configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		tailCmd(),
		authServerCmd(),
		initCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the pushkit ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
