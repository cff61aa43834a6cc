// Package cli implements the replicator command line.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	ConfigFile string
	LogLevel   string
	Version    string

	// In is read by serve to wait for user input. Defaults to os.Stdin.
	In io.Reader
}

// NewRootCommand creates the root command
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version, In: os.Stdin}

	cmd := &cobra.Command{
		Use:   "replicator",
		Short: "Derive delivery notes from sales orders",
		Long: `replicator attaches to an SAP Business One company (through the Service Layer) or to a
local document store and, whenever a sales order is added, creates the delivery note
based on it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./config.toml or /etc/replicator/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReplicateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}
