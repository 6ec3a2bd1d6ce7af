package domain

import "time"

// Query history statuses.
const (
	QueryStatusOK         = "OK"
	QueryStatusLexError   = "LEX_ERROR"
	QueryStatusParseError = "PARSE_ERROR"
)

// Query history sources: the transport a query arrived on.
const (
	QuerySourceRelay = "relay"
	QuerySourceHTTP  = "http"
	QuerySourceCLI   = "cli"
	QuerySourceWS    = "ws"
)

// QueryHistoryEntry records one parsed request and its outcome.
type QueryHistoryEntry struct {
	ID             int64
	RequestID      string
	Principal      string
	Source         string
	OriginalSQL    string
	CanonicalSQL   *string // nil unless Status is OK
	StatementTypes []string
	TablesAccessed []string
	Status         string
	ErrorMessage   *string
	DurationMs     int64
	CreatedAt      time.Time
}

// QueryHistoryFilter holds filter parameters for listing query history.
type QueryHistoryFilter struct {
	Principal *string
	Status    *string
	From      *time.Time
	To        *time.Time
	Page      PageRequest
}

// ValidQueryStatus reports whether s is a known status.
func ValidQueryStatus(s string) bool {
	switch s {
	case QueryStatusOK, QueryStatusLexError, QueryStatusParseError:
		return true
	}
	return false
}
