// =============================================================================
// Plan Cost Extractor - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   costscan version
//
// OUTPUT:
//   Plan Cost Extractor
//   Version:    1.0.0
//   Build Date: 2026-10-17
//   Go Version: go1.24.11
//   Patterns:   12
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/plan-cost-extractor/internal/costtable"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/plan-cost-extractor/cmd.Version=1.0.0'"
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, Go runtime version and the number of registered table patterns.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Plan Cost Extractor")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "Patterns:   %d\n", costtable.DefaultRegistry().Len())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
