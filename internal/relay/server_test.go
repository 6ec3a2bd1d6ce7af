package relay

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qfront/internal/ratelimit"
)

func echoHandler(_ context.Context, req Request) (string, error) {
	if strings.HasPrefix(req.SQL, "bad") {
		return "", errors.New("parse error: unsupported statement")
	}
	return req.SQL, nil
}

func startServer(t *testing.T, opts Options, handler Handler) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), opts, handler)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func dial(t *testing.T, srv *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn, bufio.NewReader(conn)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil, Options{}, echoHandler)
	assert.Empty(t, srv.Addr())
	require.NoError(t, srv.Start())
	assert.NotEmpty(t, srv.Addr())
	require.Error(t, srv.Start(), "second start fails")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx), "shutdown is idempotent")
}

func TestServer_SingleRequest(t *testing.T) {
	srv := startServer(t, Options{}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte("select * from table;"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("\n\n\n\n"))
	require.NoError(t, err)

	assert.Equal(t, "ok select * from table;\n", readLine(t, r))
}

func TestServer_TerminatorSplitAcrossWrites(t *testing.T) {
	srv := startServer(t, Options{}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte("select 1;\n\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte("\n\n"))
	require.NoError(t, err)

	assert.Equal(t, "ok select 1;\n", readLine(t, r))
}

func TestServer_MultipleRequestsPerConnection(t *testing.T) {
	srv := startServer(t, Options{}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte("select 1;\n\n\n\nselect 2;\n\n\n\nselect"))
	require.NoError(t, err)
	assert.Equal(t, "ok select 1;\n", readLine(t, r))
	assert.Equal(t, "ok select 2;\n", readLine(t, r))

	_, err = conn.Write([]byte(" 3;\n\n\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "ok select 3;\n", readLine(t, r), "bytes after a terminator carry over")
}

func TestServer_HandlerError(t *testing.T) {
	srv := startServer(t, Options{}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write(Frame("bad query"))
	require.NoError(t, err)
	assert.Equal(t, "error parse error: unsupported statement\n", readLine(t, r))

	_, err = conn.Write(Frame("select 1;"))
	require.NoError(t, err)
	assert.Equal(t, "ok select 1;\n", readLine(t, r), "connection survives a rejected request")
}

func TestServer_ResponseIsSingleLine(t *testing.T) {
	srv := startServer(t, Options{}, func(_ context.Context, _ Request) (string, error) {
		return "", errors.New("line one\nline two")
	})
	conn, r := dial(t, srv)

	_, err := conn.Write(Frame("x"))
	require.NoError(t, err)
	assert.Equal(t, "error line one line two\n", readLine(t, r))
}

func TestServer_RequestMetadata(t *testing.T) {
	var mu sync.Mutex
	var got []Request
	srv := startServer(t, Options{}, func(_ context.Context, req Request) (string, error) {
		mu.Lock()
		got = append(got, req)
		mu.Unlock()
		return "", nil
	})
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte("a\n\n\n\nb\n\n\n\n"))
	require.NoError(t, err)
	readLine(t, r)
	readLine(t, r)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Equal(t, conn.LocalAddr().String(), got[0].RemoteAddr)
}

func TestServer_InvalidUTF8IsReplaced(t *testing.T) {
	srv := startServer(t, Options{}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write(append([]byte{'a', 0xff, 'b'}, terminator...))
	require.NoError(t, err)
	assert.Equal(t, "ok a�b\n", readLine(t, r))
}

func TestServer_MaxRequestBytes(t *testing.T) {
	srv := startServer(t, Options{MaxRequestBytes: 16}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte(strings.Repeat("x", 64)))
	require.NoError(t, err)
	assert.Equal(t, "error request exceeds 16 bytes\n", readLine(t, r))

	_, err = r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF, "connection is closed")
}

func TestServer_MaxRequestBytesExact(t *testing.T) {
	srv := startServer(t, Options{MaxRequestBytes: 16}, echoHandler)
	conn, r := dial(t, srv)

	// Both requests arrive in one read; the limit applies to each.
	payload := string(Frame(strings.Repeat("a", 16))) + string(Frame(strings.Repeat("b", 17)))
	_, err := conn.Write([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "ok "+strings.Repeat("a", 16)+"\n", readLine(t, r))
	assert.Equal(t, "error request exceeds 16 bytes\n", readLine(t, r))

	_, err = r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF, "connection is closed")
}

func TestServer_MaxRequestBytesPartialTerminator(t *testing.T) {
	srv := startServer(t, Options{MaxRequestBytes: 16}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte(strings.Repeat("a", 16) + "\n\n\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte("\n"))
	require.NoError(t, err)

	assert.Equal(t, "ok "+strings.Repeat("a", 16)+"\n", readLine(t, r))
}

func TestServer_ReadTimeout(t *testing.T) {
	srv := startServer(t, Options{ReadTimeout: 100 * time.Millisecond}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte("select 1;"))
	require.NoError(t, err)
	assert.Equal(t, "error timed out waiting for request terminator\n", readLine(t, r))

	_, err = r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)
}

func TestServer_RateLimit(t *testing.T) {
	srv := startServer(t, Options{Limiter: ratelimit.NewClients(0.001, 1)}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte("select 1;\n\n\n\nselect 2;\n\n\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "ok select 1;\n", readLine(t, r))
	assert.Equal(t, "error rate limit exceeded\n", readLine(t, r))
}

func TestServer_Echo(t *testing.T) {
	srv := startServer(t, Options{Echo: true}, echoHandler)
	conn, r := dial(t, srv)

	_, err := conn.Write([]byte("select"))
	require.NoError(t, err)
	echoed := make([]byte, len("select"))
	_, err = io.ReadFull(r, echoed)
	require.NoError(t, err)
	assert.Equal(t, "select", string(echoed))

	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write([]byte(" 1;\n\n\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "ok select 1;\n", readLine(t, r), "completing chunk is answered, not echoed")
}

func TestServer_ShutdownClosesIdleConnections(t *testing.T) {
	srv := NewServer("127.0.0.1:0", slog.New(slog.DiscardHandler), Options{}, echoHandler)
	require.NoError(t, srv.Start())
	conn, r := dial(t, srv)

	_, err := conn.Write(Frame("select 1;"))
	require.NoError(t, err)
	readLine(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	_, err = r.ReadString('\n')
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	srv := startServer(t, Options{}, echoHandler)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := Send(ctx, srv.Addr(), "select a from t;")
	require.NoError(t, err)
	assert.Equal(t, Response{OK: true, Text: "select a from t;"}, resp)

	resp, err = Send(ctx, srv.Addr(), "bad")
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Text, "unsupported statement")
}

func TestSend_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Send(context.Background(), addr, "select 1;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial relay")
}
