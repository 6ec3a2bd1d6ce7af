package cli

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"qfront/internal/sqlfront"
)

// TokenEntry is one token in structured output.
type TokenEntry struct {
	Type    string `json:"type" yaml:"type"`
	Literal string `json:"literal" yaml:"literal"`
	Pos     int    `json:"pos" yaml:"pos"`
}

func newTokenizeCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "tokenize [sql]",
		Short: "Print the token sequence of a query",
		Example: `  qfront tokenize "select * from my_table;"
  echo "select 1;" | qfront tokenize -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, args, file)
			if err != nil {
				return err
			}
			tokens, err := sqlfront.Tokenize(sql)
			if err != nil {
				return err
			}

			entries := make([]TokenEntry, 0, len(tokens))
			for _, t := range tokens {
				entries = append(entries, TokenEntry{Type: t.Type.String(), Literal: t.Literal, Pos: t.Pos})
			}
			if ok, err := printStructured(cmd, os.Stdout, entries); ok {
				return err
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{strconv.Itoa(e.Pos), e.Type, e.Literal})
			}
			printTable(os.Stdout, []string{"pos", "type", "literal"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file")

	return cmd
}
