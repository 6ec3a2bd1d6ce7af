package api

import (
	"net/http"
	"strconv"
	"time"

	"qfront/internal/domain"
)

// HistoryEntryJSON is the wire form of a query history entry.
type HistoryEntryJSON struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	Principal      string    `json:"principal"`
	Source         string    `json:"source"`
	OriginalSQL    string    `json:"original_sql"`
	CanonicalSQL   *string   `json:"canonical_sql,omitempty"`
	StatementTypes []string  `json:"statement_types"`
	TablesAccessed []string  `json:"tables_accessed"`
	Status         string    `json:"status"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryResponse is returned by GET /v1/history.
type HistoryResponse struct {
	Entries    []HistoryEntryJSON `json:"entries"`
	Total      int64              `json:"total"`
	NextOffset *int               `json:"next_offset,omitempty"`
}

// ListHistory handles GET /v1/history.
func (h *APIHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, r, domain.ErrNotFound("query history is disabled"))
		return
	}

	filter, err := historyFilterFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entries, total, err := h.history.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := HistoryResponse{Entries: make([]HistoryEntryJSON, len(entries)), Total: total}
	for i, e := range entries {
		resp.Entries[i] = historyEntryJSON(e)
	}
	if filter.Page.HasMore(total) {
		next := filter.Page.Start() + filter.Page.Limit()
		resp.NextOffset = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func historyFilterFromQuery(r *http.Request) (domain.QueryHistoryFilter, error) {
	q := r.URL.Query()
	var filter domain.QueryHistoryFilter

	if v := q.Get("principal"); v != "" {
		filter.Principal = &v
	}
	if v := q.Get("status"); v != "" {
		if !domain.ValidQueryStatus(v) {
			return filter, domain.ErrValidation("invalid status %q", v)
		}
		filter.Status = &v
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, domain.ErrValidation("invalid %s: expected RFC 3339 timestamp", p.name)
		}
		*p.dst = &t
	}

	var err error
	if filter.Page.Size, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Page.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.ErrValidation("invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}

func historyEntryJSON(e domain.QueryHistoryEntry) HistoryEntryJSON {
	return HistoryEntryJSON{
		ID:             e.ID,
		RequestID:      e.RequestID,
		Principal:      e.Principal,
		Source:         e.Source,
		OriginalSQL:    e.OriginalSQL,
		CanonicalSQL:   e.CanonicalSQL,
		StatementTypes: nonNil(e.StatementTypes),
		TablesAccessed: nonNil(e.TablesAccessed),
		Status:         e.Status,
		ErrorMessage:   e.ErrorMessage,
		DurationMs:     e.DurationMs,
		CreatedAt:      e.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
