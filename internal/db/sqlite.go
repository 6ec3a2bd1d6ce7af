// Package db provides SQLite connectivity and schema migrations for the
// query history store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite DSN parameters.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

// Pool modes for OpenSQLite.
const (
	ModeWrite = "write"
	ModeRead  = "read"
)

// OpenSQLite opens a *sql.DB pool for the SQLite file at path.
//
// A write pool holds a single connection and takes the write lock at BEGIN,
// so concurrent history inserts queue instead of failing with SQLITE_BUSY.
// A read pool allows up to maxOpen connections (0 means 4).
func OpenSQLite(ctx context.Context, path string, mode string, maxOpen int) (*sql.DB, error) {
	if mode != ModeRead && mode != ModeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be %q or %q", mode, ModeRead, ModeWrite)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == ModeWrite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = 4
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return db, nil
}

// Store is the history database: a migrated write pool and a read pool over
// the same file.
type Store struct {
	Write *sql.DB
	Read  *sql.DB
}

// OpenStore opens both pools and applies pending migrations.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	writeDB, err := OpenSQLite(ctx, path, ModeWrite, 0)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(writeDB); err != nil {
		_ = writeDB.Close()
		return nil, err
	}

	readDB, err := OpenSQLite(ctx, path, ModeRead, 0)
	if err != nil {
		_ = writeDB.Close()
		return nil, err
	}

	return &Store{Write: writeDB, Read: readDB}, nil
}

// Close closes both pools.
func (s *Store) Close() error {
	readErr := s.Read.Close()
	if err := s.Write.Close(); err != nil {
		return fmt.Errorf("close history write pool: %w", err)
	}
	if readErr != nil {
		return fmt.Errorf("close history read pool: %w", readErr)
	}
	return nil
}

func buildDSN(path string, mode string) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)

	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	} else {
		params.Set("mode", "ro")
	}

	return "file:" + path + "?" + params.Encode()
}
