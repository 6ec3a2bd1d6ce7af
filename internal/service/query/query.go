// Package query turns raw query text into canonical text and statement
// metadata, and records each attempt in the query history.
package query

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"qfront/internal/domain"
	"qfront/internal/relay"
	"qfront/internal/sqlfront"
)

// HistoryRecorder stores history entries. domain.QueryHistoryRepository
// satisfies it.
type HistoryRecorder interface {
	Insert(ctx context.Context, e *domain.QueryHistoryEntry) error
}

// Request is one query submitted through any transport.
type Request struct {
	SQL       string
	RequestID string // generated when empty
	Principal string // taken from ctx when empty
	Source    string // domain.QuerySource*
}

// Statement describes one parsed statement.
type Statement struct {
	Type    string   `json:"type" yaml:"type"`
	Text    string   `json:"text" yaml:"text"`
	Tables  []string `json:"tables" yaml:"tables"`
	Columns []string `json:"columns" yaml:"columns"`
}

// Result is the outcome of a successful parse.
type Result struct {
	RequestID  string
	Canonical  string
	Statements []Statement
	Ast        *sqlfront.Ast
	Duration   time.Duration
}

// QueryService parses queries and records history.
//
//nolint:revive // Name chosen for clarity across package boundaries
type QueryService struct {
	history HistoryRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewQueryService creates a service. history may be nil, which disables
// recording.
func NewQueryService(history HistoryRecorder, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{history: history, logger: logger, now: time.Now}
}

// Handle parses req.SQL. Lex and parse failures are returned as the
// *sqlfront.QueryError produced by the parser. Blank input is a validation
// error and is not recorded.
func (s *QueryService) Handle(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.SQL) == "" {
		return nil, domain.ErrValidation("sql query is required")
	}
	if req.RequestID == "" {
		req.RequestID = domain.RequestIDFromContext(ctx)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Principal == "" {
		req.Principal = domain.PrincipalName(ctx)
	}

	start := s.now()
	ast, err := sqlfront.ParseQuery(req.SQL)
	duration := s.now().Sub(start)

	if err != nil {
		s.record(ctx, req, nil, err, duration)
		return nil, err
	}

	result := &Result{
		RequestID:  req.RequestID,
		Canonical:  sqlfront.Render(ast),
		Statements: describeStatements(ast),
		Ast:        ast,
		Duration:   duration,
	}
	s.record(ctx, req, result, nil, duration)
	return result, nil
}

// RelayHandler adapts the service to the relay protocol.
func (s *QueryService) RelayHandler() relay.Handler {
	return func(ctx context.Context, req relay.Request) (string, error) {
		res, err := s.Handle(ctx, Request{
			SQL:       req.SQL,
			RequestID: req.ID,
			Source:    domain.QuerySourceRelay,
		})
		if err != nil {
			return "", err
		}
		return res.Canonical, nil
	}
}

func describeStatements(ast *sqlfront.Ast) []Statement {
	out := make([]Statement, 0, len(ast.Statements))
	for _, stmt := range ast.Statements {
		out = append(out, Statement{
			Type:    sqlfront.Classify(stmt).String(),
			Text:    sqlfront.Render(stmt),
			Tables:  nonNil(sqlfront.CollectTableNames(stmt)),
			Columns: nonNil(sqlfront.CollectColumnNames(stmt)),
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// record writes a history entry. Failures are logged, never returned.
func (s *QueryService) record(ctx context.Context, req Request, res *Result, parseErr error, duration time.Duration) {
	if s.history == nil {
		return
	}

	entry := &domain.QueryHistoryEntry{
		RequestID:   req.RequestID,
		Principal:   req.Principal,
		Source:      req.Source,
		OriginalSQL: req.SQL,
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   s.now(),
	}

	if parseErr != nil {
		entry.Status = statusForError(parseErr)
		msg := parseErr.Error()
		entry.ErrorMessage = &msg
	} else {
		entry.Status = domain.QueryStatusOK
		entry.CanonicalSQL = &res.Canonical
		for _, st := range res.Statements {
			entry.StatementTypes = append(entry.StatementTypes, st.Type)
			entry.TablesAccessed = appendUnique(entry.TablesAccessed, st.Tables...)
		}
	}

	if err := s.history.Insert(ctx, entry); err != nil {
		s.logger.Warn("record query history failed", "request_id", req.RequestID, "error", err)
	}
}

func statusForError(err error) string {
	var qe *sqlfront.QueryError
	if errors.As(err, &qe) && qe.IsLexical() {
		return domain.QueryStatusLexError
	}
	return domain.QueryStatusParseError
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		if !slices.Contains(dst, item) {
			dst = append(dst, item)
		}
	}
	return dst
}
