// Package sqlite stores the ledger in a SQLite database. The schema is
// created on the first append, so an untouched database reports the ledger
// as not found exactly like a missing CSV file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*Store)(nil)

const (
	insertTransaction = `INSERT INTO transactions
    (transaction_type, merchant, payment_details, date, time, amount, operation)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectTransactions = `SELECT transaction_type, merchant, payment_details, date, time, amount, operation
FROM transactions
ORDER BY id`

	tableExists = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'transactions'`
)

type Store struct {
	db     *sql.DB
	dbPath string

	mu       sync.Mutex
	migrated bool
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated {
		return nil
	}
	if err := RunMigrations(s.dbPath); err != nil {
		return err
	}
	s.migrated = true
	return nil
}

// Append implements ledger.Appender
func (s *Store) Append(ctx context.Context, r core.TransactionRecord) (string, error) {
	if err := s.ensureSchema(); err != nil {
		return "", core.IOError(core.OpAppend, err)
	}

	f := r.Fields()
	res, err := s.db.ExecContext(ctx, insertTransaction, f[0], f[1], f[2], f[3], f[4], f[5], f[6])
	if err != nil {
		return "", core.IOError(core.OpAppend, fmt.Errorf("insert transaction: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", core.IOError(core.OpAppend, fmt.Errorf("last insert id: %w", err))
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"merchant", r.Merchant,
		"amount", f[5],
		"operation", f[6])

	return strconv.FormatInt(id, 10), nil
}

// LoadAll implements ledger.Loader
func (s *Store) LoadAll(ctx context.Context) ([]core.Row, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, tableExists).Scan(&n); err != nil {
		return nil, loadError(fmt.Errorf("check schema: %w", err))
	}
	if n == 0 {
		return nil, core.NotFoundError(core.OpLoad, filepath.Base(s.dbPath))
	}

	rows, err := s.db.QueryContext(ctx, selectTransactions)
	if err != nil {
		return nil, loadError(fmt.Errorf("query transactions: %w", err))
	}
	defer rows.Close()

	out := []core.Row{}
	for rows.Next() {
		fields := make([]string, len(core.Header))
		dest := make([]any, len(fields))
		for i := range fields {
			dest[i] = &fields[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, loadError(fmt.Errorf("scan transaction: %w", err))
		}
		out = append(out, core.RowFromFields(core.Header, fields))
	}
	if err := rows.Err(); err != nil {
		return nil, loadError(err)
	}
	return out, nil
}

func loadError(err error) error {
	return &core.Error{
		Kind:    core.KindIOFailure,
		Op:      core.OpLoad,
		Message: fmt.Sprintf("Error reading database: %v", err),
		Err:     err,
	}
}
