package relay

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
)

// Response is one parsed response line.
type Response struct {
	OK   bool
	Text string
}

// Send dials addr, sends one framed query and reads the response line.
func Send(ctx context.Context, addr, sql string) (Response, error) {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return Response{}, fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(Frame(sql)); err != nil {
		return Response{}, fmt.Errorf("send query: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return ParseResponse(line)
}

// ParseResponse parses an "ok ..." or "error ..." response line.
func ParseResponse(line string) (Response, error) {
	line = strings.TrimSuffix(line, "\n")
	status, text, _ := strings.Cut(line, " ")
	switch status {
	case "ok":
		return Response{OK: true, Text: text}, nil
	case "error":
		return Response{Text: text}, nil
	default:
		return Response{}, fmt.Errorf("malformed relay response %q", line)
	}
}
