package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"bookkeeper/internal/analytics"
	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger/csvfile"
	"bookkeeper/internal/log"
	"bookkeeper/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *services.LedgerService {
	t.Helper()
	store := csvfile.New(filepath.Join(t.TempDir(), "expenses.csv"))
	return services.NewLedgerService(store, analytics.New(store, analytics.Options{}, nil), services.LedgerServiceConfig{
		Logger: log.Discard(),
		Clock:  func() time.Time { return time.Date(2024, 1, 5, 8, 0, 0, 0, time.Local) },
	})
}

var session = core.Session{AppName: "Bookkeeper_App", UserID: "cli"}

func TestRecordThenSummarize(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	var out bytes.Buffer
	err := run(ctx, svc, session, "RM", []string{"record",
		"-type", "Payment", "-merchant", "HongXuang", "-details", "Lunch",
		"-date", "25/12/2023", "-time", "12:30:00", "-amount", "15"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "✅ Saved Payment at HongXuang (Lunch) for Expense:RM15.00 on 25/12/2023 12:30:00.\n", out.String())

	out.Reset()
	err = run(ctx, svc, session, "RM", []string{"record",
		"-type", "Receive From", "-merchant", "LIM SI XUAN", "-details", "Gift",
		"-date", "03/01/2026", "-time", "00:27:27", "-amount", "43.00", "-operation", "Income"}, &out)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, run(ctx, svc, session, "RM", []string{"summarize"}, &out))
	got := out.String()
	assert.Contains(t, got, "Period:         Start to End")
	assert.Contains(t, got, "Total expenses: RM-15.00")
	assert.Contains(t, got, "Total income:   RM43.00")
	assert.Contains(t, got, "Net flow:       RM28.00")
	assert.Contains(t, got, "Transactions:   2")

	out.Reset()
	require.NoError(t, run(ctx, svc, session, "RM", []string{"summarize", "-start", "2024-01-01"}, &out))
	assert.Contains(t, out.String(), "Period:         2024-01-01 to End")
	assert.NotContains(t, out.String(), "HongXuang")
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	svc := newService(t)
	var out bytes.Buffer
	err := run(context.Background(), svc, session, "RM", []string{"record",
		"-type", "Payment", "-date", "2023-12-25", "-amount", "5"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestSummarizeErrors(t *testing.T) {
	svc := newService(t)
	var out bytes.Buffer

	err := run(context.Background(), svc, session, "RM", []string{"summarize"}, &out)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = run(context.Background(), svc, session, "RM", []string{"summarize", "-end", "31/12/2024"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid -end")
}

func TestToday(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newService(t), session, "RM", []string{"today"}, &out))
	assert.Equal(t, "2024-01-05 (Friday)\n", out.String())
}

func TestUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), newService(t), session, "RM", []string{"export"}, &out)
	assert.ErrorIs(t, err, errUsage)
}
