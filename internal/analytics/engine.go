// Package analytics summarizes the ledger over an optional inclusive date
// range.
//
// Rows that cannot be used (missing Date, Amount or Operation column,
// unparsable date or amount) are skipped without error: a dirty ledger
// must never make the whole summary fail.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"

	"github.com/shopspring/decimal"
)

// Options tune how rows are classified.
type Options struct {
	// StrictOperations skips rows whose Operation is neither Income nor
	// Expense instead of counting them as income.
	StrictOperations bool
}

type Engine struct {
	loader ledger.Loader
	opts   Options
	logger *slog.Logger
}

func New(loader ledger.Loader, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{loader: loader, opts: opts, logger: logger}
}

// Summarize loads every row and aggregates the ones dated within
// [start, end]. A zero Date leaves that side unbounded. A missing ledger is
// returned as a core.KindNotFound error, never as an empty summary.
func (e *Engine) Summarize(ctx context.Context, start, end core.Date) (core.SummaryResult, error) {
	rows, err := e.loader.LoadAll(ctx)
	if err != nil {
		return core.SummaryResult{}, err
	}

	res := core.SummaryResult{
		Period:             Period(start, end),
		Start:              start,
		End:                end,
		TotalExpenses:      decimal.Zero,
		TotalIncome:        decimal.Zero,
		MerchantBreakdown:  map[string]decimal.Decimal{},
		RecentTransactions: []core.Row{},
	}

	var matched []core.Row
	skipped := 0
	for _, row := range rows {
		contribution, ok := e.contribution(row, start, end)
		if !ok {
			skipped++
			continue
		}
		if contribution.expense {
			res.TotalExpenses = res.TotalExpenses.Add(contribution.amount)
		} else {
			res.TotalIncome = res.TotalIncome.Add(contribution.amount)
		}
		merchant := row[core.ColMerchant]
		res.MerchantBreakdown[merchant] = res.MerchantBreakdown[merchant].Add(contribution.amount)
		matched = append(matched, row)
	}

	res.NetFlow = res.TotalIncome.Add(res.TotalExpenses)
	res.Matched = len(matched)
	res.RecentTransactions = recent(matched, core.RecentLimit)

	e.logger.DebugContext(ctx, "Ledger summarized",
		"period", res.Period,
		"rows", len(rows),
		"matched", res.Matched,
		"skipped", skipped)

	return res, nil
}

type contribution struct {
	amount  decimal.Decimal
	expense bool
}

// contribution returns the signed amount a row adds to the totals, or false
// when the row is outside the range or unusable.
func (e *Engine) contribution(row core.Row, start, end core.Date) (contribution, bool) {
	rawDate, ok := row[core.ColDate]
	if !ok {
		return contribution{}, false
	}
	rawAmount, ok := row[core.ColAmount]
	if !ok {
		return contribution{}, false
	}
	rawOp, ok := row[core.ColOperation]
	if !ok {
		return contribution{}, false
	}

	date, err := core.ParseLedgerDate(rawDate)
	if err != nil {
		return contribution{}, false
	}
	if !InRange(date, start, end) {
		return contribution{}, false
	}

	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		return contribution{}, false
	}

	op := core.Operation(strings.TrimSpace(rawOp))
	if e.opts.StrictOperations && !op.IsValid() {
		return contribution{}, false
	}
	if op == core.Expense {
		return contribution{amount: amount.Abs().Neg(), expense: true}, true
	}
	return contribution{amount: amount}, true
}

// InRange reports whether d falls within the inclusive [start, end] range.
// Zero bounds are open.
func InRange(d, start, end core.Date) bool {
	if !start.IsEmpty() && d.Before(start.Time) {
		return false
	}
	if !end.IsEmpty() && d.After(end.Time) {
		return false
	}
	return true
}

// Period renders the effective bounds, e.g. "2024-01-01 to End".
func Period(start, end core.Date) string {
	s, e := "Start", "End"
	if !start.IsEmpty() {
		s = start.Format(core.QueryDateLayout)
	}
	if !end.IsEmpty() {
		e = end.Format(core.QueryDateLayout)
	}
	return fmt.Sprintf("%s to %s", s, e)
}

// recent returns the last n rows, newest first.
func recent(rows []core.Row, n int) []core.Row {
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	out := make([]core.Row, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}
