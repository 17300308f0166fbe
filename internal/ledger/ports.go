// Package ledger defines the append-only transaction store and the helpers
// shared by its backends.
package ledger

import (
	"context"
	"fmt"

	"bookkeeper/internal/core"
)

// Ports for the ledger backends.
type (
	// Appender durably records one transaction and returns a backend
	// specific reference to the written row. The first append to a fresh
	// store writes the header.
	Appender interface {
		Append(ctx context.Context, r core.TransactionRecord) (rowRef string, err error)
	}

	// Loader returns every row in append order. It fails with a
	// core.KindNotFound error when the store was never initialized.
	Loader interface {
		LoadAll(ctx context.Context) ([]core.Row, error)
	}

	Store interface {
		Appender
		Loader
	}
)

// Record validates r, appends it and returns the confirmation shown to the
// end user. Validation failures come back as core.KindValidation and any
// backend failure as core.KindIOFailure unless the backend already
// classified it.
func Record(ctx context.Context, a Appender, r core.TransactionRecord, currency string) (confirmation, rowRef string, err error) {
	if err := r.Validate(); err != nil {
		return "", "", core.ValidationError(core.OpAppend, err)
	}
	ref, err := a.Append(ctx, r)
	if err != nil {
		if core.KindOf(err) != core.KindUnknown {
			return "", "", err
		}
		return "", "", core.IOError(core.OpAppend, err)
	}
	return Confirmation(r, currency), ref, nil
}

// Confirmation renders the message shown to the end user after a record has
// been stored.
func Confirmation(r core.TransactionRecord, currency string) string {
	return fmt.Sprintf("✅ Saved %s at %s (%s) for %s:%s%s on %s %s.",
		r.TransactionType,
		r.Merchant,
		r.PaymentDetails,
		r.Operation,
		currency,
		core.FormatAmount(r.Amount),
		r.Date.LedgerString(),
		r.Time,
	)
}
