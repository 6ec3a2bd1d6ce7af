package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"qfront/internal/db"
	"qfront/internal/db/repository"
	"qfront/internal/domain"
)

// HistoryRow is one history entry in structured output.
type HistoryRow struct {
	ID           int64     `json:"id" yaml:"id"`
	RequestID    string    `json:"request_id" yaml:"request_id"`
	Principal    string    `json:"principal" yaml:"principal"`
	Source       string    `json:"source" yaml:"source"`
	Status       string    `json:"status" yaml:"status"`
	OriginalSQL  string    `json:"original_sql" yaml:"original_sql"`
	CanonicalSQL string    `json:"canonical_sql,omitempty" yaml:"canonical_sql,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Tables       []string  `json:"tables_accessed" yaml:"tables_accessed"`
	DurationMs   int64     `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// HistoryOutput is the structured result of `qfront history`.
type HistoryOutput struct {
	Entries []HistoryRow `json:"entries" yaml:"entries"`
	Total   int64        `json:"total" yaml:"total"`
}

func newHistoryCmd() *cobra.Command {
	var (
		dbPath    string
		principal string
		status    string
		since     time.Duration
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded queries from the history database",
		Example: `  qfront history --db history.sqlite
  qfront history --status PARSE_ERROR --since 24h -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("db") {
				dbPath = os.Getenv("HISTORY_DB_PATH")
			}
			if dbPath == "" {
				return fmt.Errorf("history database path is required: pass --db or set HISTORY_DB_PATH")
			}

			filter := domain.QueryHistoryFilter{Page: domain.PageRequest{Size: limit, Offset: offset}}
			if principal != "" {
				filter.Principal = &principal
			}
			if status != "" {
				status = strings.ToUpper(status)
				if !domain.ValidQueryStatus(status) {
					return fmt.Errorf("invalid status %q: use OK, LEX_ERROR or PARSE_ERROR", status)
				}
				filter.Status = &status
			}
			if since > 0 {
				from := time.Now().Add(-since)
				filter.From = &from
			}

			store, err := db.OpenStore(cmd.Context(), dbPath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			repo := repository.NewQueryHistoryRepo(store.Write, store.Read)
			entries, total, err := repo.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := HistoryOutput{Entries: make([]HistoryRow, 0, len(entries)), Total: total}
			for _, e := range entries {
				out.Entries = append(out.Entries, historyRow(e))
			}
			if ok, err := printStructured(cmd, os.Stdout, out); ok {
				return err
			}

			rows := make([][]string, 0, len(out.Entries))
			for _, e := range out.Entries {
				text := e.CanonicalSQL
				if text == "" {
					text = e.ErrorMessage
				}
				rows = append(rows, []string{
					e.CreatedAt.Local().Format(time.DateTime),
					e.Principal,
					e.Source,
					e.Status,
					strconv.FormatInt(e.DurationMs, 10) + "ms",
					text,
				})
			}
			printTable(os.Stdout, []string{"time", "principal", "source", "status", "duration", "query"}, rows)
			_, _ = fmt.Fprintf(os.Stdout, "%d of %d entries\n", len(out.Entries), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "History database file (env HISTORY_DB_PATH)")
	cmd.Flags().StringVar(&principal, "principal", "", "Only entries recorded for this principal")
	cmd.Flags().StringVar(&status, "status", "", "Only entries with this status (OK, LEX_ERROR, PARSE_ERROR)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only entries newer than this age, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultPageSize, "Maximum entries to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")

	return cmd
}

func historyRow(e domain.QueryHistoryEntry) HistoryRow {
	row := HistoryRow{
		ID:          e.ID,
		RequestID:   e.RequestID,
		Principal:   e.Principal,
		Source:      e.Source,
		Status:      e.Status,
		OriginalSQL: e.OriginalSQL,
		Tables:      e.TablesAccessed,
		DurationMs:  e.DurationMs,
		CreatedAt:   e.CreatedAt,
	}
	if row.Tables == nil {
		row.Tables = []string{}
	}
	if e.CanonicalSQL != nil {
		row.CanonicalSQL = *e.CanonicalSQL
	}
	if e.ErrorMessage != nil {
		row.ErrorMessage = *e.ErrorMessage
	}
	return row
}
