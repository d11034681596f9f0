// Package cli provides the command-line interface for the flowcanvas
// bridge.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile is the --config override; empty means auto-discovery next to
// the working directory.
var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowcanvas",
		Short: "Local bridge between the canvas UI and the workflow backend",
		Long: `flowcanvas runs the local HTTP bridge for the visual agent-workflow
builder. It holds the working graph document in memory, autosaves it to
the upstream workflow backend, and relays chat executions while keeping
session continuity.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags. Every name except --config is folded
	// into the configuration with highest precedence; see the loader's
	// flag bindings.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./flowcanvas.yaml)")
	rootCmd.PersistentFlags().String("host", "", "listen host")
	rootCmd.PersistentFlags().Int("port", 0, "listen port")
	rootCmd.PersistentFlags().String("backend-url", "", "workflow backend base URL")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("environment", "", "environment name (development|production)")
	rootCmd.PersistentFlags().String("draft-dir", "", "directory for crash-recovery drafts")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
