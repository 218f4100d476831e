package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/willscaff1/fincontrol/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrEmptyFilter        = errors.New("filter must constrain at least one field")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction before persistence.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTransaction)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Direction.IsValid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidTransaction, txn.Direction)
	}
	if txn.PaymentMethod != "" && !txn.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: payment method %q", ErrInvalidTransaction, txn.PaymentMethod)
	}
	if txn.IsRecurringTemplate && txn.IsInstallment {
		return fmt.Errorf("%w: a template cannot be an installment member", ErrInvalidTransaction)
	}
	if txn.IsRecurringTemplate && (txn.RecurringDay < 1 || txn.RecurringDay > 31) {
		return fmt.Errorf("%w: recurring day %d out of range", ErrInvalidTransaction, txn.RecurringDay)
	}
	if txn.IsRecurringTemplate && txn.RecurringParentID != "" {
		return fmt.Errorf("%w: a template cannot reference a parent template", ErrInvalidTransaction)
	}
	if txn.IsInstallment && txn.TotalInstallments < 2 {
		return fmt.Errorf("%w: total installments %d below two", ErrInvalidTransaction, txn.TotalInstallments)
	}
	return nil
}
