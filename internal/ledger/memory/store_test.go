package memory

import (
	"context"
	"testing"

	"bookkeeper/internal/core"

	"github.com/shopspring/decimal"
)

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	s := New()
	if _, err := s.LoadAll(context.Background()); core.KindOf(err) != core.KindNotFound {
		t.Fatalf("expected not found before first append, got %v", err)
	}

	ref, err := s.Append(context.Background(), core.TransactionRecord{
		TransactionType: "Payment",
		Merchant:        "Shop",
		Date:            core.NewDate(2024, 1, 1),
		Amount:          decimal.NewFromInt(5),
		Operation:       core.Expense,
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows, err := s.LoadAll(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("unexpected load: rows=%v err=%v", rows, err)
	}
	if rows[0][core.ColDate] != "01/01/2024" || rows[0][core.ColAmount] != "5.00" {
		t.Fatalf("unexpected row: %v", rows[0])
	}

	// Returned rows are copies.
	rows[0][core.ColMerchant] = "changed"
	again, _ := s.LoadAll(context.Background())
	if again[0][core.ColMerchant] != "Shop" {
		t.Fatalf("store row mutated through LoadAll result")
	}
}

func TestNewWithRowsIsInitialized(t *testing.T) {
	s := NewWithRows()
	rows, err := s.LoadAll(context.Background())
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty initialized store, got rows=%v err=%v", rows, err)
	}
	s = NewWithRows(core.Row{core.ColDate: "bad"})
	if s.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", s.Len())
	}
}
