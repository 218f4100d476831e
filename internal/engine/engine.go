// Package engine implements the recurring/installment materialization engine:
// deterministic expansion of recurring templates into monthly instances,
// splitting of installment purchases into dated parcels, and the update and
// delete semantics that keep templates, instances and parcel groups
// consistent under concurrent requests.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/willscaff1/fincontrol/internal/calendar"
	"github.com/willscaff1/fincontrol/internal/common"
	"github.com/willscaff1/fincontrol/internal/lock"
	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/service"
)

// TransactionEngine is the entry point for all transaction writes and for
// month-scoped materialization. The CRUD/API layer above it never touches
// the store directly.
type TransactionEngine struct {
	storage service.Storage
	locks   *lock.Table
	now     func() time.Time
}

// New creates a transaction engine backed by the given store and lock table.
func New(storage service.Storage, locks *lock.Table) *TransactionEngine {
	return &TransactionEngine{
		storage: storage,
		locks:   locks,
		now:     time.Now,
	}
}

// TransactionFields carries the user-settable fields of a new transaction.
// Role flags and parent references are absent on purpose: the engine assigns
// roles structurally and never trusts them from input.
type TransactionFields struct {
	Description   string
	Category      string
	AccountRef    string
	Direction     model.Direction
	PaymentMethod model.PaymentMethod
	Amount        decimal.Decimal
}

func (f TransactionFields) validate() error {
	if f.Description == "" {
		return fmt.Errorf("%w: description is required", common.ErrValidation)
	}
	if !f.Direction.IsValid() {
		return fmt.Errorf("%w: direction %q", common.ErrValidation, f.Direction)
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: payment method %q", common.ErrValidation, f.PaymentMethod)
	}
	return nil
}

// newTransaction builds a plain row from the fields at the given occurrence
// date, normalized to noon UTC.
func (e *TransactionEngine) newTransaction(userID string, fields TransactionFields, date time.Time) *model.Transaction {
	return &model.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Description:   fields.Description,
		Amount:        fields.Amount,
		Direction:     fields.Direction,
		Category:      fields.Category,
		PaymentMethod: fields.PaymentMethod,
		AccountRef:    fields.AccountRef,
		Date:          atNoon(date),
		CreatedAt:     e.now().UTC(),
	}
}

// atNoon normalizes any incoming date to noon UTC, discarding the
// time-of-day so serialization cannot shift the calendar day.
func atNoon(t time.Time) time.Time {
	return calendar.DateAtNoon(t.Year(), int(t.Month()), t.Day())
}

// CreatePlain persists a single ordinary transaction.
func (e *TransactionEngine) CreatePlain(ctx context.Context, userID string, fields TransactionFields, date time.Time) (*model.Transaction, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}

	txn := e.newTransaction(userID, fields, date)
	if err := e.storage.SaveTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// CreateRecurring persists a recurring template together with its first
// generated instance. The template's anchor day is taken from the occurrence
// date and stays fixed from then on.
func (e *TransactionEngine) CreateRecurring(ctx context.Context, userID string, fields TransactionFields, date time.Time) (template, firstInstance *model.Transaction, err error) {
	if err := fields.validate(); err != nil {
		return nil, nil, err
	}

	template = e.newTransaction(userID, fields, date)
	template.IsRecurringTemplate = true
	template.RecurringDay = template.Date.Day()

	// Hold the period's generation lock across both inserts so a concurrent
	// materialization cannot slip the month's instance in between them. If
	// the lock is taken the adoption path below recovers instead.
	key := lock.MaterializationKey(userID, int(template.Date.Month()), template.Date.Year())
	if e.locks.TryAcquire(key) {
		defer e.locks.Release(key)
	}

	if err := e.storage.SaveTransaction(ctx, template); err != nil {
		return nil, nil, err
	}

	firstInstance = e.newTransaction(userID, fields, date)
	firstInstance.RecurringParentID = template.ID

	if err := e.storage.SaveTransaction(ctx, firstInstance); err != nil {
		if generated, ok := e.adoptGeneratedInstance(ctx, template.ID, firstInstance.Date); ok {
			return template, generated, nil
		}
		// Avoid leaving a template that materialization would then expand.
		if cleanupErr := e.storage.DeleteTransaction(ctx, template.ID); cleanupErr != nil {
			slog.Error("Failed to clean up template after instance insert failure",
				"template_id", template.ID, "error", cleanupErr)
		}
		return nil, nil, err
	}
	return template, firstInstance, nil
}

// adoptGeneratedInstance checks whether the first-instance insert failed
// because a concurrent materialization already generated the month's
// instance. When it did, that instance stands in as the first occurrence and
// the template is kept.
func (e *TransactionEngine) adoptGeneratedInstance(ctx context.Context, templateID string, date time.Time) (*model.Transaction, bool) {
	start, end := calendar.MonthBounds(date.Year(), int(date.Month()))
	existing, err := e.storage.GetTransactions(ctx, service.TransactionFilter{
		RecurringParentID: templateID,
		StartDate:         &start,
		EndDate:           &end,
		Limit:             1,
	})
	if err != nil || len(existing) == 0 {
		return nil, false
	}
	return &existing[0], true
}

// sumListing accumulates income/expense totals over transactions.
func sumListing(transactions []model.Transaction) (income, expense decimal.Decimal) {
	for _, txn := range transactions {
		if txn.Direction == model.DirectionIncome {
			income = income.Add(txn.Amount)
		} else {
			expense = expense.Add(txn.Amount)
		}
	}
	return income, expense
}

// MonthListing is one calendar month's visible transactions plus simple sums.
type MonthListing struct {
	Transactions []model.Transaction
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Net          decimal.Decimal
}

// ListMonth materializes the period and returns its visible transactions
// sorted by date. Template rows are never listed; only their generated
// instances are.
func (e *TransactionEngine) ListMonth(ctx context.Context, userID string, month, year int) (*MonthListing, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	if err := e.EnsureMaterialized(ctx, userID, month, year); err != nil {
		return nil, err
	}

	start, end := calendar.MonthBounds(year, month)
	transactions, err := e.storage.GetTransactions(ctx, service.TransactionFilter{
		UserID:           userID,
		StartDate:        &start,
		EndDate:          &end,
		ExcludeTemplates: true,
	})
	if err != nil {
		return nil, err
	}

	income, expense := sumListing(transactions)
	return &MonthListing{
		Transactions: transactions,
		Income:       income,
		Expense:      expense,
		Net:          income.Sub(expense),
	}, nil
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range", common.ErrValidation, month)
	}
	if year < 1 {
		return fmt.Errorf("%w: year %d out of range", common.ErrValidation, year)
	}
	return nil
}
