package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errChangesDetected is returned by snapshot --exit-code when at least one
// page was new or changed. It only sets the exit status.
var errChangesDetected = errors.New("changes detected")

// NewRootCmd creates the root command for sitesnap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitesnap",
		Short: "Detect changes on websites by crawling and fingerprinting pages",
		Long: `sitesnap crawls a website from one or more seed URLs, hashes every page
it finds below each seed and compares the hashes with those recorded by the
previous run. Each page is reported as New, Changed, Unchanged or
FetchFailed.

Fingerprints and run history are kept in an SQLite database in the XDG data
directory unless another store is selected with --store.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewSnapshotCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errChangesDetected) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
