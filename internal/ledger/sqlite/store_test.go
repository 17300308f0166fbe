package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"bookkeeper/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadAllBeforeFirstAppend(t *testing.T) {
	s := openTemp(t)
	_, err := s.LoadAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAppendAndLoadKeepsAppendOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := core.TransactionRecord{
		TransactionType: "Receive From",
		Merchant:        "LIM SI XUAN",
		PaymentDetails:  "Love youuuu",
		Date:            core.NewDate(2026, 1, 3),
		Time:            "00:27:27",
		Amount:          decimal.NewFromInt(43),
		Operation:       core.Income,
	}
	second := core.TransactionRecord{
		TransactionType: "Payment",
		Merchant:        "HongXuang",
		PaymentDetails:  "Lunch",
		Date:            core.NewDate(2023, 12, 25),
		Time:            "12:30:00",
		Amount:          decimal.NewFromInt(15),
		Operation:       core.Expense,
	}

	ref1, err := s.Append(ctx, first)
	require.NoError(t, err)
	ref2, err := s.Append(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "1", ref1)
	assert.Equal(t, "2", ref2)

	rows, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.Row(), rows[0])
	assert.Equal(t, second.Row(), rows[1])
}

func TestReopenSeesExistingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), core.TransactionRecord{
		TransactionType: "Payment",
		Date:            core.NewDate(2024, 1, 1),
		Amount:          decimal.NewFromInt(1),
		Operation:       core.Expense,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	rows, err := s2.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// Migrations are idempotent.
	require.NoError(t, RunMigrations(path))
}
