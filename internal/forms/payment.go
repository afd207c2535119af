package forms

import (
	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/ledger"
	"github.com/refill-ledger/ledger/internal/money"
)

// PaymentForm is a partial payment against one payment record.
type PaymentForm struct {
	Amount decimal.Decimal      `json:"amount" validate:"gt=0"`
	Method ledger.PaymentMethod `json:"method" validate:"required,oneof=CASH GCASH BANK_TRANSFER OTHER"`
	Notes  string               `json:"notes" validate:"max=500"`
}

// NotesPtr returns the trimmed notes or nil.
func (f PaymentForm) NotesPtr() *string { return trimmedPtr(f.Notes) }

// ValidatePayment checks the form against what is still owed on p.
func ValidatePayment(form PaymentForm, p ledger.Payment) FieldErrors {
	errs := check(form)
	if len(errs) > 0 {
		return errs
	}
	if p.Settled() {
		errs.Add("amount", "This payment is already settled")
		return errs
	}
	if _, err := ledger.ApplyPayment(p, form.Amount); err != nil {
		errs.Add("amount", "Amount exceeds the remaining balance of "+money.FormatCurrency(p.Remaining()))
	}
	return errs
}
