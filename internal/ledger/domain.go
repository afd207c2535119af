// Package ledger models the refill ledger records as the backend serves them
// and holds the client-side business rules over them: price resolution,
// credit checks and payment arithmetic.
package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/refill-ledger/ledger/internal/dates"
)

var (
	// ErrNotFound indicates the referenced record is unknown.
	ErrNotFound = errors.New("ledger: not found")
	// ErrCreditDisabled is returned for credit sales while credit is switched off.
	ErrCreditDisabled = errors.New("ledger: credit sales are disabled")
	// ErrCreditLimitExceeded marks a credit sale that would pass the limit.
	ErrCreditLimitExceeded = errors.New("ledger: credit limit exceeded")
	// ErrOverpayment is returned when a payment would exceed the amount owed.
	ErrOverpayment = errors.New("ledger: payment exceeds remaining balance")
	// ErrInvalidAmount is returned for zero or negative payment amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)

// MaxUsers is the number of staff accounts a deployment may hold.
const MaxUsers = 3

// Location is a delivery zone.
type Location string

// Delivery zones served by the station.
const (
	LocationPoblacion  Location = "POBLACION"
	LocationSanIsidro  Location = "SAN_ISIDRO"
	LocationSantaCruz  Location = "SANTA_CRUZ"
	LocationSanJose    Location = "SAN_JOSE"
	LocationBagumbayan Location = "BAGUMBAYAN"
	LocationOther      Location = "OTHER"
)

// Locations lists every zone in display order.
var Locations = []Location{
	LocationPoblacion,
	LocationSanIsidro,
	LocationSantaCruz,
	LocationSanJose,
	LocationBagumbayan,
	LocationOther,
}

// Valid reports whether l is a known zone.
func (l Location) Valid() bool {
	for _, known := range Locations {
		if l == known {
			return true
		}
	}
	return false
}

// CollectionStatus tracks how far a customer's debt collection has gone.
type CollectionStatus string

// Collection statuses.
const (
	CollectionActive    CollectionStatus = "ACTIVE"
	CollectionOverdue   CollectionStatus = "OVERDUE"
	CollectionSuspended CollectionStatus = "SUSPENDED"
)

// PaymentType distinguishes cash sales from sales on credit.
type PaymentType string

// Payment types.
const (
	PaymentCash   PaymentType = "CASH"
	PaymentCredit PaymentType = "CREDIT"
)

// PaymentStatus is the lifecycle state of a credit payment.
type PaymentStatus string

// Payment statuses.
const (
	StatusUnpaid     PaymentStatus = "UNPAID"
	StatusPartial    PaymentStatus = "PARTIAL"
	StatusPaid       PaymentStatus = "PAID"
	StatusOverdue    PaymentStatus = "OVERDUE"
	StatusCollection PaymentStatus = "COLLECTION"
)

// PaymentMethod records how a payment transaction was settled.
type PaymentMethod string

// Payment methods.
const (
	MethodCash  PaymentMethod = "CASH"
	MethodGCash PaymentMethod = "GCASH"
	MethodBank  PaymentMethod = "BANK_TRANSFER"
	MethodOther PaymentMethod = "OTHER"
)

// Role is a staff account role.
type Role string

// Roles.
const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// Customer is a delivery customer.
type Customer struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Location           Location         `json:"location"`
	Phone              *string          `json:"phone,omitempty"`
	CustomUnitPrice    *decimal.Decimal `json:"customUnitPrice,omitempty"`
	CreditLimit        *decimal.Decimal `json:"creditLimit,omitempty"`
	OutstandingBalance decimal.Decimal  `json:"outstandingBalance"`
	CollectionStatus   CollectionStatus `json:"collectionStatus,omitempty"`
	LastPaymentDate    *time.Time       `json:"lastPaymentDate,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// UserRef is the embedded recorder of a sale.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// Sale is one delivery transaction.
type Sale struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	Customer    *Customer       `json:"customer,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	User        *UserRef        `json:"user,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
	PaymentType PaymentType     `json:"paymentType"`
	Notes       *string         `json:"notes,omitempty"`
	Date        string          `json:"date,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// DateKey returns the business day of the sale. The explicit date field wins
// over the creation timestamp.
func (s Sale) DateKey() string {
	if len(s.Date) >= len(dates.KeyLayout) {
		return dates.KeyOf(s.Date)
	}
	return dates.DateKey(s.CreatedAt)
}

// Editable reports whether the sale is still inside its edit window.
func (s Sale) Editable(now time.Time) bool {
	return dates.WithinEditWindow(s.CreatedAt, now)
}

// PaymentTransaction is one partial payment against a Payment.
type PaymentTransaction struct {
	ID        string          `json:"id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Payment tracks what is owed on a credit sale.
type Payment struct {
	ID           string               `json:"id"`
	SaleID       string               `json:"saleId,omitempty"`
	Sale         *Sale                `json:"sale,omitempty"`
	CustomerID   string               `json:"customerId"`
	Customer     *Customer            `json:"customer,omitempty"`
	Amount       decimal.Decimal      `json:"amount"`
	PaidAmount   decimal.Decimal      `json:"paidAmount"`
	Status       PaymentStatus        `json:"status"`
	Method       PaymentMethod        `json:"method,omitempty"`
	DueDate      *time.Time           `json:"dueDate,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
	Transactions []PaymentTransaction `json:"transactions,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// OutstandingBalance is the backend's per-customer debt summary.
type OutstandingBalance struct {
	CustomerID       string           `json:"customerId"`
	CustomerName     string           `json:"customerName,omitempty"`
	Location         Location         `json:"location,omitempty"`
	TotalOwed        decimal.Decimal  `json:"totalOwed"`
	OldestDebtDate   *time.Time       `json:"oldestDebtDate,omitempty"`
	DaysPastDue      *int             `json:"daysPastDue,omitempty"`
	CreditLimit      decimal.Decimal  `json:"creditLimit"`
	CollectionStatus CollectionStatus `json:"collectionStatus,omitempty"`
	LastPaymentDate  *time.Time       `json:"lastPaymentDate,omitempty"`
}

// User is a staff or admin account.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reminder is a collection reminder logged against a customer.
type Reminder struct {
	ID         string    `json:"id,omitempty"`
	CustomerID string    `json:"customerId"`
	PaymentID  string    `json:"paymentId,omitempty"`
	Message    string    `json:"message"`
	Channel    string    `json:"channel,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
