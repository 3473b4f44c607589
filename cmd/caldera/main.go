// Command caldera is the CLI driver: `caldera check` runs the rule runner
// over a workspace and reports diagnostics; `caldera format` applies
// available autofixes. Both subcommands wire the same store/vfs/query/rules
// stack, assembled once in setupAnalysis.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "caldera",
	Short: "Incremental analysis core for Python source",
	Long:  `caldera analyzes Python source incrementally: caldera check lints a workspace, caldera format applies autofixes.`,
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "path to caldera.toml (default: ./caldera.toml if present)")
	rootCmd.PersistentFlags().StringSlice("select", nil, "rule categories or IDs to enable")
	rootCmd.PersistentFlags().StringSlice("ignore", nil, "rule categories or IDs to disable")
	rootCmd.PersistentFlags().Int("line-length", 0, "maximum line length (0: use config/default)")
	rootCmd.PersistentFlags().String("target-version", "", "target Python version")
	rootCmd.PersistentFlags().String("output-format", "", "compact|grouped|full|json (empty: use config/default)")
	rootCmd.PersistentFlags().Bool("respect-gitignore", true, "honor .gitignore while discovering files")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(formatCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command's returned error to the CLI's exit code
// contract: 0 success/no diagnostics, 1 diagnostics were emitted, 2
// invocation error (bad arguments, missing file, config load failure).
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errIsDiagnosticsFound(err):
		return 1
	default:
		fmt.Fprintln(os.Stderr, "caldera:", err)
		return 2
	}
}
