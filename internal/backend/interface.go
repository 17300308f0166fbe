// Package backend builds the configured ledger store.
package backend

import (
	"context"

	"bookkeeper/internal/ledger"
)

// BackendType names a ledger backend.
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases whatever the backend holds open.
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function.
type BackendResult struct {
	Store   ledger.Store
	Type    BackendType
	Cleanup CleanupFunc
}

// Factory creates ledger stores from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds what the backends need.
type Config struct {
	Type BackendType

	CSVPath string

	SQLiteDBPath string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}
