package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the qfront version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
			}
			if ok, err := printStructured(cmd, os.Stdout, info); ok {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "qfront version %s (commit: %s)\n", version, commit)
			return nil
		},
	}
}
