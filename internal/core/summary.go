package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RecentLimit is how many matched rows a summary reports.
const RecentLimit = 5

// MerchantAmount is a signed total aggregated by merchant name.
type MerchantAmount struct {
	Merchant string
	Amount   decimal.Decimal
}

// SummaryResult is computed fresh for every query and never stored.
type SummaryResult struct {
	Period             string
	Start              Date
	End                Date
	TotalExpenses      decimal.Decimal
	TotalIncome        decimal.Decimal
	NetFlow            decimal.Decimal
	MerchantBreakdown  map[string]decimal.Decimal
	RecentTransactions []Row
	Matched            int
}

// SortedBreakdown returns the merchant totals ordered by absolute amount,
// largest first, ties broken by name.
func (s SummaryResult) SortedBreakdown() []MerchantAmount {
	out := make([]MerchantAmount, 0, len(s.MerchantBreakdown))
	for m, amt := range s.MerchantBreakdown {
		out = append(out, MerchantAmount{Merchant: m, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Amount.Abs(), out[j].Amount.Abs()
		if c := ai.Cmp(aj); c != 0 {
			return c > 0
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}
