package log

import (
	"errors"

	"bookkeeper/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldError           = "error"
	FieldErrorKind       = "error_kind"
	FieldOperation       = "operation"
	FieldBackend         = "backend"
	FieldUserID          = "user_id"
	FieldSessionID       = "session_id"
	FieldTransactionType = "transaction_type"
	FieldMerchant        = "merchant"
	FieldAmount          = "amount"
	FieldLedgerOperation = "ledger_operation"
	FieldPeriod          = "period"
	FieldMatched         = "matched"
	FieldEventID         = "event_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentAnalytics = "analytics"
	ComponentWorker    = "worker"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpAppend    = "append"
	OpSummarize = "summarize"
	OpPublish   = "publish"
	OpMirror    = "mirror"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error message and, for ledger errors, its kind.
func (f LogFields) WithError(err error) LogFields {
	if err == nil {
		return f
	}
	f[FieldError] = err.Error()
	var lerr *core.Error
	if errors.As(err, &lerr) {
		f[FieldErrorKind] = lerr.Kind.String()
	}
	return f
}

// WithSession adds the caller identity.
func (f LogFields) WithSession(s core.Session) LogFields {
	f[FieldUserID] = s.UserID
	f[FieldSessionID] = s.SessionID
	return f
}

// WithRecord adds transaction fields.
func (f LogFields) WithRecord(r core.TransactionRecord) LogFields {
	f[FieldTransactionType] = r.TransactionType
	f[FieldMerchant] = r.Merchant
	f[FieldAmount] = core.FormatAmount(r.Amount)
	f[FieldLedgerOperation] = string(r.Operation)
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
