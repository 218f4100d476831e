// Package model defines the core domain types for fincontrol.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether money flows in or out.
type Direction string

// Valid transaction directions.
const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// IsValid reports whether the direction is a known value.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionIncome, DirectionExpense:
		return true
	}
	return false
}

// PaymentMethod is how a transaction was paid.
type PaymentMethod string

// Valid payment methods.
const (
	PaymentPix    PaymentMethod = "pix"
	PaymentDebit  PaymentMethod = "debit"
	PaymentCredit PaymentMethod = "credit"
)

// IsValid reports whether the payment method is a known value.
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentPix, PaymentDebit, PaymentCredit:
		return true
	}
	return false
}

// Role describes the structural role a transaction row plays. It is derived
// from the row's flags and relations, never set directly by callers.
type Role string

// Transaction roles.
const (
	RoleTemplate Role = "template" // recurring obligation, never shown as an occurrence
	RoleInstance Role = "instance" // one month's generated occurrence of a template
	RoleParcel   Role = "parcel"   // one installment of a purchase
	RolePlain    Role = "plain"    // ordinary one-off transaction
)

// Transaction is the single persisted entity. One record type serves
// templates, generated instances, installment parcels and plain rows,
// distinguished by flags and parent references.
type Transaction struct {
	Date                time.Time
	CreatedAt           time.Time
	ID                  string
	UserID              string
	Description         string
	Category            string
	AccountRef          string // optional bank/card reference
	RecurringParentID   string // set only on generated instances
	InstallmentParentID string // set on every parcel except the first
	Direction           Direction
	PaymentMethod       PaymentMethod
	Amount              decimal.Decimal // per-occurrence value, never a divided fraction
	RecurringDay        int             // 1-31 anchor day, templates only
	InstallmentNumber   int             // 1-based position within the group
	TotalInstallments   int             // identical across the group, >= 2
	IsRecurringTemplate bool
	IsInstallment       bool
}

// Role derives the row's structural role from its flags and relations.
func (t *Transaction) Role() Role {
	switch {
	case t.IsRecurringTemplate:
		return RoleTemplate
	case t.RecurringParentID != "":
		return RoleInstance
	case t.IsInstallment:
		return RoleParcel
	default:
		return RolePlain
	}
}

// IsSeriesLinked reports whether the row is a template or a generated
// instance, i.e. whether series-wide operations can resolve a template from it.
func (t *Transaction) IsSeriesLinked() bool {
	return t.IsRecurringTemplate || t.RecurringParentID != ""
}

// SeriesTemplateID resolves the template id for series-wide operations:
// the row's own id if it is the template, otherwise its parent reference.
// Empty when the row is not linked to a series.
func (t *Transaction) SeriesTemplateID() string {
	if t.IsRecurringTemplate {
		return t.ID
	}
	return t.RecurringParentID
}

// GroupAnchorID resolves the installment group's anchor: the first parcel's
// id. Empty when the row is not an installment.
func (t *Transaction) GroupAnchorID() string {
	if !t.IsInstallment {
		return ""
	}
	if t.InstallmentParentID != "" {
		return t.InstallmentParentID
	}
	return t.ID
}
