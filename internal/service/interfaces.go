// Package service defines the contracts between the engine and its
// collaborators.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/willscaff1/fincontrol/internal/model"
)

// TransactionFilter selects transactions by equality and date-range
// predicates. Zero-valued fields are ignored. Results are always sorted by
// occurrence date, with creation time as the tie-break.
type TransactionFilter struct {
	StartDate           *time.Time
	EndDate             *time.Time
	UserID              string
	RecurringParentID   string
	InstallmentParentID string
	TemplatesOnly       bool
	ExcludeTemplates    bool
	Limit               int
}

// TransactionUpdate carries the writable fields of an edit. Nil fields are
// left untouched. Role flags and parent references are deliberately absent:
// a row's role is structural and never settable through an update.
type TransactionUpdate struct {
	Description   *string
	Amount        *decimal.Decimal
	Direction     *model.Direction
	Category      *string
	PaymentMethod *model.PaymentMethod
	AccountRef    *string
	Date          *time.Time
	RecurringDay  *int
}

// IsEmpty reports whether the update would change nothing.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Description == nil && u.Amount == nil && u.Direction == nil &&
		u.Category == nil && u.PaymentMethod == nil && u.AccountRef == nil &&
		u.Date == nil && u.RecurringDay == nil
}

// Storage defines the persistence contract. Every operation is atomic per
// single row; the engine never relies on multi-row transactions.
type Storage interface {
	// SaveTransaction inserts one transaction.
	SaveTransaction(ctx context.Context, txn *model.Transaction) error

	// GetTransactionByID fetches one transaction owned by the given user.
	// Returns common.ErrNotFound when absent or owned by someone else.
	GetTransactionByID(ctx context.Context, id, userID string) (*model.Transaction, error)

	// GetTransactions returns all transactions matching the filter.
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// UpdateTransaction applies the non-nil fields of upd to one row.
	UpdateTransaction(ctx context.Context, id string, upd TransactionUpdate) error

	// UpdateTransactions applies the non-nil fields of upd to every row
	// matching the filter, returning the number of rows changed.
	UpdateTransactions(ctx context.Context, filter TransactionFilter, upd TransactionUpdate) (int, error)

	// DeleteTransaction removes one row by id.
	DeleteTransaction(ctx context.Context, id string) error

	// DeleteTransactions removes every row matching the filter, returning
	// the number of rows removed.
	DeleteTransactions(ctx context.Context, filter TransactionFilter) (int, error)

	// Migrate brings the schema to the expected version.
	Migrate(ctx context.Context) error

	Close() error
}
