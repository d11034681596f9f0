package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "flowcanvas %s\n", Version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", BuildDate)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
