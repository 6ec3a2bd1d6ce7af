// Package api provides the HTTP front door: tokenize, parse and query
// history endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"qfront/internal/domain"
	"qfront/internal/service/query"
	"qfront/internal/sqlfront"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// APIHandler serves the /v1 endpoints.
type APIHandler struct {
	query   *query.QueryService
	history domain.QueryHistoryRepository
	logger  *slog.Logger
}

// NewHandler creates an APIHandler. history may be nil, in which case the
// history endpoint reports that history is disabled.
func NewHandler(svc *query.QueryService, history domain.QueryHistoryRepository, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{query: svc, history: history, logger: logger}
}

// SQLRequest is the body of the tokenize and parse endpoints.
type SQLRequest struct {
	SQL string `json:"sql"`
}

// TokenJSON is the wire form of a token.
type TokenJSON struct {
	Type    string `json:"type"`
	Literal string `json:"literal"`
	Pos     int    `json:"pos"`
}

func tokenJSON(t sqlfront.Token) TokenJSON {
	return TokenJSON{Type: t.Type.String(), Literal: t.Literal, Pos: t.Pos}
}

// TokenizeResponse is returned by POST /v1/tokenize.
type TokenizeResponse struct {
	Tokens []TokenJSON `json:"tokens"`
}

// ParseResponse is returned by POST /v1/parse.
type ParseResponse struct {
	RequestID  string            `json:"request_id"`
	Canonical  string            `json:"canonical"`
	Statements []query.Statement `json:"statements"`
	Ast        sqlfront.NodeInfo `json:"ast"`
}

// Tokenize handles POST /v1/tokenize.
func (h *APIHandler) Tokenize(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSQL(w, r)
	if !ok {
		return
	}

	resp, err := tokenize(req.SQL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func tokenize(sql string) (TokenizeResponse, error) {
	tokens, err := sqlfront.Tokenize(sql)
	if err != nil {
		return TokenizeResponse{}, err
	}
	resp := TokenizeResponse{Tokens: make([]TokenJSON, len(tokens))}
	for i, tok := range tokens {
		resp.Tokens[i] = tokenJSON(tok)
	}
	return resp, nil
}

// Parse handles POST /v1/parse.
func (h *APIHandler) Parse(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSQL(w, r)
	if !ok {
		return
	}

	res, err := h.query.Handle(r.Context(), query.Request{
		SQL:    req.SQL,
		Source: domain.QuerySourceHTTP,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, parseResponse(res))
}

func parseResponse(res *query.Result) ParseResponse {
	return ParseResponse{
		RequestID:  res.RequestID,
		Canonical:  res.Canonical,
		Statements: res.Statements,
		Ast:        sqlfront.Describe(res.Ast),
	}
}

func (h *APIHandler) decodeSQL(w http.ResponseWriter, r *http.Request) (SQLRequest, bool) {
	var req SQLRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{
				Code:    http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return req, false
		}
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return req, false
	}
	return req, true
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody(err)
	if body.Code == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, body.Code, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
