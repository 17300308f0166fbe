package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Operation = "Income"
	Expense Operation = "Expense"
)

// LedgerDateLayout is the on-disk layout of the Date column (DD/MM/YYYY).
const LedgerDateLayout = "02/01/2006"

// QueryDateLayout is the layout callers use for summary bounds.
const QueryDateLayout = "2006-01-02"

// Parsing accepts unpadded days and months ("5/1/2024", "2024-1-5");
// formatting always pads.
const (
	ledgerDateParseLayout = "2/1/2006"
	queryDateParseLayout  = "2006-1-2"
)

// Ledger column names, in the order they are written.
const (
	ColTransactionType = "Transaction Type"
	ColMerchant        = "Merchant"
	ColPaymentDetails  = "Payment Details"
	ColDate            = "Date"
	ColTime            = "Time"
	ColAmount          = "Amount"
	ColOperation       = "Operation"
)

// Header is the fixed first line of every ledger.
var Header = []string{
	ColTransactionType,
	ColMerchant,
	ColPaymentDetails,
	ColDate,
	ColTime,
	ColAmount,
	ColOperation,
}

type (
	Operation string

	Date struct {
		time.Time
	}

	// TransactionRecord is one logged financial event. Amount is always the
	// unsigned magnitude; the sign comes from Operation when the ledger is read.
	TransactionRecord struct {
		TransactionType string
		Merchant        string
		PaymentDetails  string
		Date            Date
		Time            string
		Amount          decimal.Decimal
		Operation       Operation
	}

	// Row is a raw ledger line keyed by column name. Columns missing from a
	// short line are absent from the map.
	Row map[string]string
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseLedgerDate parses a DD/MM/YYYY value.
func ParseLedgerDate(s string) (Date, error) {
	t, err := time.Parse(ledgerDateParseLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ParseQueryDate parses a YYYY-MM-DD value.
func ParseQueryDate(s string) (Date, error) {
	t, err := time.Parse(queryDateParseLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero, meaning "no bound" in queries.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// LedgerString formats the date the way the ledger stores it.
func (d Date) LedgerString() string {
	return d.Format(LedgerDateLayout)
}

func (o Operation) IsValid() bool {
	return o == Income || o == Expense
}

// Fields returns the record as a ledger line in Header order.
func (r TransactionRecord) Fields() []string {
	return []string{
		r.TransactionType,
		r.Merchant,
		r.PaymentDetails,
		r.Date.LedgerString(),
		r.Time,
		FormatAmount(r.Amount),
		string(r.Operation),
	}
}

// Row returns the record keyed by column name.
func (r TransactionRecord) Row() Row {
	fields := r.Fields()
	row := make(Row, len(Header))
	for i, col := range Header {
		row[col] = fields[i]
	}
	return row
}

// RowFromFields maps a raw line onto the header. Extra trailing fields are
// dropped and missing ones are left out of the map.
func RowFromFields(header, fields []string) Row {
	row := make(Row, len(header))
	for i, col := range header {
		if i >= len(fields) {
			break
		}
		row[col] = fields[i]
	}
	return row
}
