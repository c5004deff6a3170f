// Package cli wires the docsweep commands. The heavy lifting lives in the
// engine and terms packages; commands only parse flags, load config, and
// print the run report.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "docsweep",
	Short:         "Redact sensitive terms from PDF and DOCX documents",
	Long:          "Docsweep destroys and covers sensitive terms in legal documents: native PDF text, scanned pages via OCR, and word-processor files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run executes the root command and returns the process exit code.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "docsweep: %v\n", err)
		return 1
	}
	return 0
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print docsweep version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "docsweep version %s\n", version)
	},
}
