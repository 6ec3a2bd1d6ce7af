// Package relay serves the line-oriented query protocol over TCP: clients
// send a query followed by four newlines and receive one response line.
package relay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"qfront/internal/ratelimit"
)

const chunkSize = 1024

// Request is one framed query received from a client.
type Request struct {
	ID         string
	RemoteAddr string
	SQL        string
}

// Handler answers a request with the canonical query text, or an error whose
// message is sent back to the client.
type Handler func(ctx context.Context, req Request) (string, error)

// Options tunes connection handling. The zero value disables every limit.
type Options struct {
	// ReadTimeout bounds how long the server waits for a complete request.
	ReadTimeout time.Duration
	// MaxRequestBytes caps each request, terminator excluded, and the
	// unterminated input buffered per connection.
	MaxRequestBytes int
	// Limiter, when set, rate-limits requests per client IP.
	Limiter *ratelimit.Clients
	// Echo writes every chunk that does not complete a request back to the
	// client as it arrives.
	Echo bool
}

// Server accepts relay connections and dispatches framed requests.
type Server struct {
	addr    string
	logger  *slog.Logger
	opts    Options
	handler Handler

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a relay server. A nil handler answers every request with
// an error.
func NewServer(addr string, logger *slog.Logger, opts Options, handler Handler) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = func(_ context.Context, _ Request) (string, error) {
			return "", fmt.Errorf("relay handler is not configured")
		}
	}
	return &Server{addr: addr, logger: logger, opts: opts, handler: handler, conns: make(map[net.Conn]struct{})}
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return fmt.Errorf("relay listener already started")
	}

	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen relay: %w", err)
	}
	s.ln = ln
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	go s.acceptLoop(ln)
	s.logger.Info("relay listener enabled", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	if ln == nil {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close relay listener: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("relay listener stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay shutdown: %w", ctx.Err())
	}
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		if !s.track(conn) {
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			defer conn.Close() //nolint:errcheck
			s.handleConn(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)
	w := bufio.NewWriter(conn)

	var pending []byte
	chunk := make([]byte, chunkSize)
	deadline := s.nextDeadline()

	for {
		for {
			req, rest, ok := splitRequest(pending)
			if !ok {
				break
			}
			pending = rest
			if s.tooLarge(len(req)) {
				s.rejectTooLarge(logger, w, len(req))
				return
			}
			if err := s.serveRequest(logger, w, remote, req); err != nil {
				logger.Debug("relay write failed", "error", err)
				return
			}
			deadline = s.nextDeadline()
		}

		// pending may end in a partial terminator.
		if s.tooLarge(len(pending) - (len(terminator) - 1)) {
			s.rejectTooLarge(logger, w, len(pending))
			return
		}

		if !deadline.IsZero() {
			_ = conn.SetReadDeadline(deadline)
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			if s.opts.Echo && !bytes.Contains(pending, terminator) {
				if _, werr := w.Write(chunk[:n]); werr != nil || w.Flush() != nil {
					return
				}
			}
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Info("relay read timeout", "buffered", len(pending))
				_ = writeLine(w, "error", "timed out waiting for request terminator")
			}
			return
		}
	}
}

func (s *Server) tooLarge(n int) bool {
	return s.opts.MaxRequestBytes > 0 && n > s.opts.MaxRequestBytes
}

func (s *Server) rejectTooLarge(logger *slog.Logger, w *bufio.Writer, n int) {
	logger.Warn("relay request too large", "bytes", n, "limit", s.opts.MaxRequestBytes)
	_ = writeLine(w, "error", fmt.Sprintf("request exceeds %d bytes", s.opts.MaxRequestBytes))
}

func (s *Server) nextDeadline() time.Time {
	if s.opts.ReadTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.opts.ReadTimeout)
}

func (s *Server) serveRequest(logger *slog.Logger, w *bufio.Writer, remote string, raw []byte) error {
	req := Request{
		ID:         uuid.NewString(),
		RemoteAddr: remote,
		SQL:        strings.ToValidUTF8(string(raw), "\uFFFD"),
	}
	logger = logger.With("request_id", req.ID)

	if s.opts.Limiter != nil {
		if ok, retry := s.opts.Limiter.Allow(ratelimit.HostKey(remote)); !ok {
			logger.Warn("relay rate limit exceeded", "retry_after", retry)
			return writeLine(w, "error", "rate limit exceeded")
		}
	}

	start := time.Now()
	canonical, err := s.handler(s.ctx, req)
	if err != nil {
		logger.Info("relay request rejected", "error", err, "duration", time.Since(start))
		return writeLine(w, "error", err.Error())
	}
	logger.Debug("relay request served", "duration", time.Since(start))
	return writeLine(w, "ok", canonical)
}

// writeLine writes "<status> <text>\n". Newlines inside text are flattened
// so every response is exactly one line.
func writeLine(w *bufio.Writer, status, text string) error {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	if _, err := w.WriteString(status + " " + text + "\n"); err != nil {
		return err
	}
	return w.Flush()
}
