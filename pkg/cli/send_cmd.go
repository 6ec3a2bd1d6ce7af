package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qfront/internal/config"
	"qfront/internal/relay"
)

// SendOutput is the structured result of `qfront send`.
type SendOutput struct {
	OK       bool   `json:"ok" yaml:"ok"`
	Response string `json:"response" yaml:"response"`
}

func newSendCmd() *cobra.Command {
	var (
		addr    string
		file    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send [sql]",
		Short: "Send a query to a running relay and print the reply",
		Example: `  qfront send "select * from my_table;"
  qfront send --addr 127.0.0.1:9000 -f query.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, args, file)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				if v := os.Getenv("RELAY_ADDR"); v != "" {
					addr = v
				}
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			resp, err := relay.Send(ctx, addr, sql)
			if err != nil {
				return err
			}

			if !resp.OK {
				return fmt.Errorf("relay: %s", resp.Text)
			}
			if ok, err := printStructured(cmd, os.Stdout, SendOutput{OK: true, Response: resp.Text}); ok {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, resp.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultRelayAddr, "Relay address (env RELAY_ADDR)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the query from a file")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall timeout; 0 waits indefinitely")

	return cmd
}
