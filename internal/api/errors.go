package api

import (
	"errors"
	"net/http"

	"qfront/internal/domain"
	"qfront/internal/sqlfront"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var lexErr *sqlfront.LexError
	var parseErr *sqlfront.ParseError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &lexErr), errors.As(err, &parseErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Kind is "lex" or "parse" for query errors.
	Kind string `json:"kind,omitempty"`
	// Reason names the parse error kind, e.g. "unexpected token".
	Reason string     `json:"reason,omitempty"`
	Offset *int       `json:"offset,omitempty"`
	Line   int        `json:"line,omitempty"`
	Column int        `json:"column,omitempty"`
	Token  *TokenJSON `json:"token,omitempty"`
}

func errorBody(err error) ErrorBody {
	status := httpStatusFromDomainError(err)
	body := ErrorBody{Code: status, Message: err.Error()}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}

	var lexErr *sqlfront.LexError
	var parseErr *sqlfront.ParseError
	switch {
	case errors.As(err, &lexErr):
		body.Kind = "lex"
		offset := lexErr.Offset
		body.Offset = &offset
		body.Line = lexErr.Line
		body.Column = lexErr.Column
	case errors.As(err, &parseErr):
		body.Kind = "parse"
		body.Reason = parseErr.Err.Error()
		if parseErr.Token != nil {
			tok := tokenJSON(*parseErr.Token)
			body.Token = &tok
			offset := parseErr.Token.Pos
			body.Offset = &offset
		}
	}
	return body
}
