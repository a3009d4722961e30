package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version, Commit and BuildDate are set with -ldflags at build time.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, Version)
			return
		}
		fmt.Fprintf(out, "cadence %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  commit: %s\n", Commit)
		fmt.Fprintf(out, "  built:  %s\n", BuildDate)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version")
	rootCmd.AddCommand(versionCmd)
}
