package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"bookkeeper/internal/core"

	"github.com/google/uuid"
)

// RecordFields is a transaction in ledger text form.
type RecordFields struct {
	TransactionType string `json:"transaction_type"`
	Merchant        string `json:"merchant"`
	PaymentDetails  string `json:"payment_details"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Amount          string `json:"amount"`
	Operation       string `json:"operation"`
}

// TransactionRecorded is published after a transaction has been appended
// to the primary ledger.
type TransactionRecorded struct {
	EventID   string       `json:"event_id"`
	Session   core.Session `json:"session"`
	Record    RecordFields `json:"record"`
	RowRef    string       `json:"row_ref,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewTransactionRecorded(s core.Session, r core.TransactionRecord, rowRef string) *TransactionRecorded {
	f := r.Fields()
	return &TransactionRecorded{
		EventID: uuid.NewString(),
		Session: s,
		Record: RecordFields{
			TransactionType: f[0],
			Merchant:        f[1],
			PaymentDetails:  f[2],
			Date:            f[3],
			Time:            f[4],
			Amount:          f[5],
			Operation:       f[6],
		},
		RowRef:    rowRef,
		Timestamp: time.Now().UTC(),
	}
}

// TransactionRecord validates the carried fields and converts them back.
func (m *TransactionRecorded) TransactionRecord() (core.TransactionRecord, error) {
	f := m.Record
	return core.NewRecordInput(f.TransactionType, f.Merchant, f.PaymentDetails, f.Date, f.Time, f.Amount, f.Operation).Record()
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", msg.EventID, err)
	}
	return &msg, nil
}
