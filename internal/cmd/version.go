package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var short bool

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Version output needs no environment or configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				_, err := fmt.Fprintln(out, versionInfo.Version)
				return err
			}
			_, err := fmt.Fprintf(out, "%s %s (commit %s, built %s, %s %s/%s)\n",
				appName, versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate,
				runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
	versionCmd.Flags().BoolVar(&short, "short", false, "Print only the version number")

	return versionCmd
}
