package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"qfront/internal/domain"
	"qfront/internal/relay"
	"qfront/internal/service/query"
)

const (
	replPrompt     = "qfront> "
	replContPrompt = "   ...> "
)

// lineReader is satisfied by *term.Terminal and scannerReader.
type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(prompt string)
}

// scannerReader reads lines from a non-terminal input.
type scannerReader struct {
	sc *bufio.Scanner
}

func (s *scannerReader) ReadLine() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scannerReader) SetPrompt(string) {}

// evalFunc turns one complete input into a reply line.
type evalFunc func(ctx context.Context, sql string) (string, error)

func newReplCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive prompt: parse queries locally or through a relay",
		Long: `Reads queries until a line ends with ';' and prints the canonical form or
the error. With --addr each query is sent to a running relay instead of being
parsed in-process. Type \q or exit to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eval := localEval()
			if addr != "" {
				eval = relayEval(addr)
			}

			if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				state, err := term.MakeRaw(int(f.Fd()))
				if err != nil {
					return fmt.Errorf("enter raw mode: %w", err)
				}
				defer term.Restore(int(f.Fd()), state) //nolint:errcheck

				t := term.NewTerminal(struct {
					io.Reader
					io.Writer
				}{f, os.Stdout}, replPrompt)
				return runRepl(cmd.Context(), t, t, eval)
			}

			sc := bufio.NewScanner(cmd.InOrStdin())
			sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
			return runRepl(cmd.Context(), &scannerReader{sc: sc}, os.Stdout, eval)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Send queries to the relay at this address instead of parsing locally")

	return cmd
}

// runRepl drives the read-eval-print loop until EOF or a quit command.
// Input is evaluated once the accumulated text ends with ';'; a pending
// partial query is evaluated at EOF.
func runRepl(ctx context.Context, r lineReader, w io.Writer, eval evalFunc) error {
	var pending strings.Builder
	flush := func() {
		sql := pending.String()
		pending.Reset()
		r.SetPrompt(replPrompt)
		if strings.TrimSpace(sql) == "" {
			return
		}
		out, err := eval(ctx, sql)
		if err != nil {
			_, _ = fmt.Fprintf(w, "error: %v\n", err)
			return
		}
		_, _ = fmt.Fprintln(w, out)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				flush()
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(line)
		if pending.Len() == 0 && isQuit(trimmed) {
			return nil
		}
		if pending.Len() > 0 {
			pending.WriteByte('\n')
		}
		pending.WriteString(line)

		if strings.HasSuffix(trimmed, ";") {
			flush()
		} else if pending.Len() > 0 && strings.TrimSpace(pending.String()) != "" {
			r.SetPrompt(replContPrompt)
		}
	}
}

func isQuit(s string) bool {
	switch strings.ToLower(s) {
	case `\q`, "exit", "quit":
		return true
	}
	return false
}

func localEval() evalFunc {
	svc := query.NewQueryService(nil, cliLogger())
	return func(ctx context.Context, sql string) (string, error) {
		res, err := svc.Handle(ctx, query.Request{SQL: sql, Source: domain.QuerySourceCLI})
		if err != nil {
			return "", err
		}
		return res.Canonical, nil
	}
}

func relayEval(addr string) evalFunc {
	return func(ctx context.Context, sql string) (string, error) {
		resp, err := relay.Send(ctx, addr, sql)
		if err != nil {
			return "", err
		}
		if !resp.OK {
			return "", errors.New(resp.Text)
		}
		return resp.Text, nil
	}
}
