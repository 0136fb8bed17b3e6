// Command georeporter replays recorded location readings through the
// reporter and forwards them to the remote record-location function.
//
// Usage:
//
//	georeporter run --config georeporter.yaml [flags]
//	georeporter version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	ExitSuccess         = 0
	ExitThresholdFailed = 1
	ExitError           = 2
)

// Version is injected at build time via ldflags.
var Version = "dev"

var errThresholdFailed = errors.New("threshold check failed")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "georeporter",
		Short:         "Periodic location reporter",
		Long:          `georeporter forwards location readings to a remote function at most once every five minutes while a session is active.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "georeporter %s\n", Version)
		},
	}
}

func main() {
	err := newRootCmd().Execute()
	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.Is(err, errThresholdFailed):
		fmt.Fprintln(os.Stderr, "\nThreshold check failed!")
		os.Exit(ExitThresholdFailed)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
}
