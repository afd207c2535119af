package forms

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// SaleForm is a new sale as entered by staff.
type SaleForm struct {
	CustomerID  string             `json:"customerId" validate:"required"`
	Quantity    int                `json:"quantity" validate:"required,min=1,max=1000"`
	PaymentType ledger.PaymentType `json:"paymentType" validate:"required,oneof=CASH CREDIT"`
	Notes       string             `json:"notes" validate:"max=500"`
}

// NotesPtr returns the trimmed notes or nil.
func (f SaleForm) NotesPtr() *string { return trimmedPtr(f.Notes) }

// SaleCheck is the priced outcome of a valid sale form.
type SaleCheck struct {
	UnitPrice   decimal.Decimal      `json:"unitPrice"`
	Total       decimal.Decimal      `json:"total"`
	PriceSource ledger.PriceSource   `json:"priceSource"`
	Credit      *ledger.CreditResult `json:"credit,omitempty"`
	// Warning is set when a credit sale nears the limit. It does not block.
	Warning string `json:"warning,omitempty"`
}

// ValidateSale checks the form against the customer, the settings and the
// customer's current balance. Every problem is collected; a non-empty
// FieldErrors means nothing may be submitted.
func ValidateSale(form SaleForm, customer *ledger.Customer, settings ledger.Settings, balance decimal.Decimal) (SaleCheck, FieldErrors) {
	form.CustomerID = strings.TrimSpace(form.CustomerID)
	errs := check(form)
	if form.CustomerID != "" && customer == nil {
		errs.Add("customerId", "Customer not found")
	}
	if len(errs) > 0 {
		return SaleCheck{}, errs
	}

	price, source := ledger.ResolvePrice(customer, settings)
	out := SaleCheck{
		UnitPrice:   price,
		Total:       ledger.LineTotal(form.Quantity, price),
		PriceSource: source,
	}
	if form.PaymentType != ledger.PaymentCredit {
		return out, nil
	}
	if customer.CollectionStatus == ledger.CollectionSuspended {
		errs.Add("customerId", "Customer is suspended from credit")
		return SaleCheck{}, errs
	}
	result, err := ledger.CheckCustomerCredit(customer, settings, balance, form.Quantity)
	if err != nil {
		errs.Add("paymentType", "Credit sales are disabled")
		return SaleCheck{}, errs
	}
	out.Credit = &result
	switch result.Level {
	case ledger.CreditBlocked:
		errs.Add("creditLimit", result.Message())
		return SaleCheck{}, errs
	case ledger.CreditWarning:
		out.Warning = result.Message()
	}
	return out, nil
}
