package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// AmountInput accepts an amount sent either as a JSON number or a string.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = AmountInput(n.String())
	return nil
}

// RecordInput is a transaction as extracted by the agent layer. Every field
// must be present; Merchant, PaymentDetails and Time may be empty strings.
type RecordInput struct {
	TransactionType *string      `json:"transaction_type" validate:"required,notblank"`
	Merchant        *string      `json:"merchant" validate:"required"`
	PaymentDetails  *string      `json:"payment_details" validate:"required"`
	Date            *string      `json:"date" validate:"required,ledgerdate"`
	Time            *string      `json:"time" validate:"required"`
	Amount          *AmountInput `json:"amount" validate:"required,ledgeramount"`
	Operation       *string      `json:"operation" validate:"required,oneof=Income Expense"`
	IdempotencyKey  string       `json:"idempotency_key,omitempty" validate:"max=128"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("ledgerdate", func(fl validator.FieldLevel) bool {
			_, err := ParseLedgerDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("ledgeramount", func(fl validator.FieldLevel) bool {
			_, err := ParseMagnitude(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// Validate checks presence and format of every field.
func (in RecordInput) Validate() error {
	err := recordValidator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field())
	case "ledgerdate":
		return fmt.Sprintf("%s must be DD/MM/YYYY, got %q", fe.Field(), fe.Value())
	case "ledgeramount":
		return fmt.Sprintf("%s must be a non-negative number up to %s, got %q", fe.Field(), maxAmount, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Record validates the input and converts it into a TransactionRecord.
func (in RecordInput) Record() (TransactionRecord, error) {
	if err := in.Validate(); err != nil {
		return TransactionRecord{}, err
	}
	date, _ := ParseLedgerDate(*in.Date)
	amount, _ := ParseMagnitude(string(*in.Amount))
	return TransactionRecord{
		TransactionType: strings.TrimSpace(*in.TransactionType),
		Merchant:        strings.TrimSpace(*in.Merchant),
		PaymentDetails:  strings.TrimSpace(*in.PaymentDetails),
		Date:            date,
		Time:            strings.TrimSpace(*in.Time),
		Amount:          amount,
		Operation:       Operation(*in.Operation),
	}, nil
}

// Validate checks an already-typed record before it is appended.
func (r TransactionRecord) Validate() error {
	if strings.TrimSpace(r.TransactionType) == "" {
		return errors.New("TransactionType must not be blank")
	}
	if r.Date.IsEmpty() {
		return errors.New("Date is required")
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !amountInRange(r.Amount) {
		return ErrAmountRange
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("Operation must be one of [Income Expense], got %q", r.Operation)
	}
	return nil
}

// NewRecordInput builds an input from plain strings, as the CLI and the
// mirror worker do.
func NewRecordInput(txType, merchant, details, date, clock, amount, operation string) RecordInput {
	a := AmountInput(amount)
	return RecordInput{
		TransactionType: &txType,
		Merchant:        &merchant,
		PaymentDetails:  &details,
		Date:            &date,
		Time:            &clock,
		Amount:          &a,
		Operation:       &operation,
	}
}
