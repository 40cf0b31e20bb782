package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prfsd",
	Short: "Protected Reversible File System control daemon and tooling",
	Long: `prfsd runs the PRFS mode control surface (HTTP endpoint, mode file
watcher, metrics, audit log) and provides operator tooling for the
backup namespace: listing, restoring and cleaning timestamp-named
backup files.`,
	SilenceUsage: true,
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
