// Package testutil provides test helpers for fincontrol: an in-memory
// migrated store and transaction builders for the common row shapes.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/storage"
)

// SetupTestDB creates a new in-memory migrated database. Cleanup is
// registered automatically.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// TransactionOption mutates a transaction under construction.
type TransactionOption func(*model.Transaction)

// NewTransaction builds a plain expense transaction with sane defaults,
// customized by options.
func NewTransaction(userID string, date time.Time, opts ...TransactionOption) *model.Transaction {
	txn := &model.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Description:   "Groceries",
		Amount:        decimal.RequireFromString("50.00"),
		Direction:     model.DirectionExpense,
		Category:      "food",
		PaymentMethod: model.PaymentPix,
		Date:          date,
	}
	for _, opt := range opts {
		opt(txn)
	}
	return txn
}

// AsTemplate marks the transaction as a recurring template anchored on its
// own date's day-of-month.
func AsTemplate() TransactionOption {
	return func(txn *model.Transaction) {
		txn.IsRecurringTemplate = true
		txn.RecurringDay = txn.Date.Day()
	}
}

// AsInstanceOf marks the transaction as a generated instance of a template.
func AsInstanceOf(templateID string) TransactionOption {
	return func(txn *model.Transaction) {
		txn.RecurringParentID = templateID
	}
}

// WithDescription overrides the description.
func WithDescription(description string) TransactionOption {
	return func(txn *model.Transaction) {
		txn.Description = description
	}
}

// WithAmount overrides the amount.
func WithAmount(amount string) TransactionOption {
	return func(txn *model.Transaction) {
		txn.Amount = decimal.RequireFromString(amount)
	}
}
