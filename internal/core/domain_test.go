package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLedgerDate(t *testing.T) {
	d, err := ParseLedgerDate("25/12/2023")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2023, 12, 25), d)

	for _, in := range []string{"5/1/2024", "05/1/2024", "5/01/2024", " 05/01/2024 "} {
		d, err := ParseLedgerDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, NewDate(2024, 1, 5), d, in)
		assert.Equal(t, "05/01/2024", d.LedgerString())
	}

	for _, bad := range []string{"2023-12-25", "31/02/2023", "", "12/25/2023", "5/1/24"} {
		_, err := ParseLedgerDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseQueryDate(t *testing.T) {
	for _, in := range []string{"2024-01-05", "2024-1-5", "2024-01-5", "2024-1-05"} {
		d, err := ParseQueryDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, NewDate(2024, 1, 5), d, in)
	}

	for _, bad := range []string{"05/01/2024", "2024-13-01", "24-1-5", "tomorrow"} {
		_, err := ParseQueryDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestRecordFieldsFollowHeaderOrder(t *testing.T) {
	r := TransactionRecord{
		TransactionType: "Payment",
		Merchant:        "HongXuang",
		PaymentDetails:  "Lunch",
		Date:            NewDate(2023, 12, 25),
		Time:            "12:30:00",
		Amount:          decimal.NewFromInt(15),
		Operation:       Expense,
	}
	assert.Equal(t, []string{"Payment", "HongXuang", "Lunch", "25/12/2023", "12:30:00", "15.00", "Expense"}, r.Fields())
	row := r.Row()
	assert.Equal(t, "15.00", row[ColAmount])
	assert.Equal(t, "Expense", row[ColOperation])
}

func TestRowFromFieldsShortLine(t *testing.T) {
	row := RowFromFields(Header, []string{"Payment", "Shop", "x", "01/01/2024"})
	assert.Len(t, row, 4)
	_, ok := row[ColAmount]
	assert.False(t, ok)

	row = RowFromFields(Header, []string{"a", "b", "c", "d", "e", "f", "g", "extra"})
	assert.Len(t, row, len(Header))
}

func TestRecordInputValidation(t *testing.T) {
	valid := NewRecordInput("Payment", "", "Lunch", "25/12/2023", "12:30:00", "15", "Expense")
	rec, err := valid.Record()
	require.NoError(t, err)
	assert.Equal(t, "", rec.Merchant)
	assert.Equal(t, "15.00", FormatAmount(rec.Amount))

	cases := []struct {
		name   string
		mutate func(*RecordInput)
		want   string
	}{
		{"missing merchant", func(in *RecordInput) { in.Merchant = nil }, "Merchant is required"},
		{"blank type", func(in *RecordInput) { s := "  "; in.TransactionType = &s }, "TransactionType must not be blank"},
		{"bad date", func(in *RecordInput) { s := "2023-12-25"; in.Date = &s }, "Date must be DD/MM/YYYY"},
		{"negative amount", func(in *RecordInput) { a := AmountInput("-3"); in.Amount = &a }, "Amount must be a non-negative number"},
		{"huge exponent", func(in *RecordInput) { a := AmountInput("1e2000000"); in.Amount = &a }, "Amount must be a non-negative number up to 1000000000000"},
		{"above maximum", func(in *RecordInput) { a := AmountInput("1000000000000.01"); in.Amount = &a }, "Amount must be"},
		{"unknown operation", func(in *RecordInput) { s := "Refund"; in.Operation = &s }, "Operation must be one of"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := NewRecordInput("Payment", "Shop", "Lunch", "25/12/2023", "12:30:00", "15", "Expense")
			tc.mutate(&in)
			err := in.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRecordInputAcceptsUnpaddedDate(t *testing.T) {
	rec, err := NewRecordInput("Payment", "Shop", "Lunch", "5/1/2024", "12:30", "15", "Expense").Record()
	require.NoError(t, err)
	assert.Equal(t, "05/01/2024", rec.Fields()[3])
}

func TestRecordValidateRejectsOutOfRangeAmount(t *testing.T) {
	rec := TransactionRecord{
		TransactionType: "Payment",
		Date:            NewDate(2024, 1, 5),
		Amount:          decimal.New(1, 2000000),
		Operation:       Expense,
	}
	assert.ErrorIs(t, rec.Validate(), ErrAmountRange)
}

func TestAmountInputAcceptsNumberAndString(t *testing.T) {
	var in RecordInput
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 43.5}`), &in))
	assert.Equal(t, AmountInput("43.5"), *in.Amount)
	require.NoError(t, json.Unmarshal([]byte(`{"amount": "15.00"}`), &in))
	assert.Equal(t, AmountInput("15.00"), *in.Amount)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("append: %w", IOError("append", errors.New("disk full")))
	assert.True(t, errors.Is(err, ErrIOFailure))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindIOFailure, KindOf(err))
	assert.Equal(t, "append: ERROR: Failed to save - disk full", err.Error())

	nf := NotFoundError("load", "expenses.csv")
	assert.True(t, errors.Is(nf, ErrNotFound))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestCurrentDate(t *testing.T) {
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local)
	assert.Equal(t, "2024-01-05 (Friday)", CurrentDate(now))
}

func TestSortedBreakdown(t *testing.T) {
	s := SummaryResult{MerchantBreakdown: map[string]decimal.Decimal{
		"a": decimal.NewFromInt(-5),
		"b": decimal.NewFromInt(20),
		"c": decimal.NewFromInt(5),
	}}
	got := s.SortedBreakdown()
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Merchant)
	assert.Equal(t, "a", got[1].Merchant)
	assert.Equal(t, "c", got[2].Merchant)
}
