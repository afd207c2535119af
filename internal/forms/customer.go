package forms

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// CustomerForm is a customer as entered in the admin screens.
type CustomerForm struct {
	Name            string           `json:"name" validate:"required,min=2,max=100"`
	Location        ledger.Location  `json:"location" validate:"required,location"`
	Phone           string           `json:"phone" validate:"omitempty,phone"`
	CustomUnitPrice *decimal.Decimal `json:"customUnitPrice" validate:"omitempty,gt=0"`
	CreditLimit     *decimal.Decimal `json:"creditLimit" validate:"omitempty,gte=0"`
}

// ValidateCustomer checks a customer form.
func ValidateCustomer(form CustomerForm) FieldErrors {
	form.Name = strings.TrimSpace(form.Name)
	return check(form)
}

// PhonePtr returns the phone without spaces, or nil.
func (f CustomerForm) PhonePtr() *string {
	return trimmedPtr(strings.ReplaceAll(f.Phone, " ", ""))
}
