package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"qfront/internal/domain"
	"qfront/internal/service/query"
	"qfront/internal/sqlfront"
)

// ParseOutput is the structured result of `qfront parse`.
type ParseOutput struct {
	Canonical  string            `json:"canonical" yaml:"canonical"`
	Statements []query.Statement `json:"statements" yaml:"statements"`
	Ast        sqlfront.NodeInfo `json:"ast" yaml:"ast"`
}

func newParseCmd() *cobra.Command {
	var (
		file string
		tree bool
	)

	cmd := &cobra.Command{
		Use:   "parse [sql]",
		Short: "Parse a query and print its canonical form",
		Long: `Parses the query and prints the canonical rendering: lowercase keywords,
normalized whitespace and a terminating ';' per statement. Structured output
also includes statement metadata and the syntax tree.`,
		Example: `  qfront parse "SELECT foo FROM my_table"
  qfront parse --tree "select a from t where a >= 10;"
  qfront parse -o yaml -f query.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, args, file)
			if err != nil {
				return err
			}

			svc := query.NewQueryService(nil, cliLogger())
			res, err := svc.Handle(cmd.Context(), query.Request{SQL: sql, Source: domain.QuerySourceCLI})
			if err != nil {
				return err
			}

			out := ParseOutput{
				Canonical:  res.Canonical,
				Statements: res.Statements,
				Ast:        sqlfront.Describe(res.Ast),
			}
			if ok, err := printStructured(cmd, os.Stdout, out); ok {
				return err
			}

			_, _ = fmt.Fprintln(os.Stdout, out.Canonical)
			if tree {
				printTree(os.Stdout, out.Ast, 0)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file")
	cmd.Flags().BoolVar(&tree, "tree", false, "Also print the syntax tree (text output)")

	return cmd
}

// printTree writes an indented outline of a syntax tree.
func printTree(w io.Writer, n sqlfront.NodeInfo, depth int) {
	label := n.Type
	if n.Role != "" {
		label = n.Role + ": " + label
	}
	_, _ = fmt.Fprintf(w, "%s%s  %s\n", strings.Repeat("  ", depth), label, n.Text)
	for _, c := range n.Children {
		printTree(w, c, depth+1)
	}
}

// cliLogger reports only warnings, on stderr, so stdout stays parseable.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
