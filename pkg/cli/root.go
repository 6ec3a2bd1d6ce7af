// Package cli implements the qfront command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qfront/internal/sqlfront"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if getOutputFormat(rootCmd) == outputJSON {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			var lexErr *sqlfront.LexError
			var parseErr *sqlfront.ParseError
			switch {
			case errors.As(err, &lexErr):
				errObj["kind"] = "lex"
				errObj["offset"] = lexErr.Offset
			case errors.As(err, &parseErr):
				errObj["kind"] = "parse"
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	output := outputFormat(outputText)

	rootCmd := &cobra.Command{
		Use:           "qfront",
		Short:         "SQL-like query front-end",
		Long:          "Tokenize, parse and canonicalize a small SQL dialect, and serve it over TCP and HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().VarP(&output, "output", "o", "Output format (text, json, yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTokenizeCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newReplCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
