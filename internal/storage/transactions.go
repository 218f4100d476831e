package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/willscaff1/fincontrol/internal/common"
	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/service"
)

const transactionColumns = `id, user_id, description, amount, direction, category,
	payment_method, account_ref, date, is_recurring_template, recurring_day,
	recurring_parent_id, is_installment, installment_number, total_installments,
	installment_parent_id, created_at`

// SaveTransaction inserts one transaction row.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		txn.UserID,
		txn.Description,
		txn.Amount.String(),
		string(txn.Direction),
		txn.Category,
		string(txn.PaymentMethod),
		txn.AccountRef,
		txn.Date.UTC(),
		txn.IsRecurringTemplate,
		txn.RecurringDay,
		txn.RecurringParentID,
		txn.IsInstallment,
		txn.InstallmentNumber,
		txn.TotalInstallments,
		txn.InstallmentParentID,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert transaction: %v", common.ErrStoreFailure, err)
	}
	return nil
}

// GetTransactionByID fetches one transaction owned by the given user.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id, userID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ? AND user_id = ?
	`, id, userID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get transaction: %v", common.ErrStoreFailure, err)
	}
	return txn, nil
}

// GetTransactions returns all transactions matching the filter, sorted by
// occurrence date with creation time as the tie-break.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := buildFilter(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date, created_at"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", common.ErrStoreFailure, err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", common.ErrStoreFailure, scanErr)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %v", common.ErrStoreFailure, err)
	}
	return transactions, nil
}

// UpdateTransaction applies the non-nil fields of upd to one row by id.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, id string, upd service.TransactionUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	set, args := buildUpdate(upd)
	if set == "" {
		return nil
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, "UPDATE transactions SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("%w: update transaction: %v", common.ErrStoreFailure, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update transaction: %v", common.ErrStoreFailure, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return nil
}

// UpdateTransactions applies the non-nil fields of upd to every matching row.
func (s *SQLiteStorage) UpdateTransactions(ctx context.Context, filter service.TransactionFilter, upd service.TransactionUpdate) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	where, whereArgs := buildFilter(filter)
	if where == "" {
		return 0, ErrEmptyFilter
	}
	set, setArgs := buildUpdate(upd)
	if set == "" {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET "+set+" WHERE "+where,
		append(setArgs, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("%w: update transactions: %v", common.ErrStoreFailure, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: update transactions: %v", common.ErrStoreFailure, err)
	}
	return int(affected), nil
}

// DeleteTransaction removes one row by id.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: delete transaction: %v", common.ErrStoreFailure, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete transaction: %v", common.ErrStoreFailure, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return nil
}

// DeleteTransactions removes every matching row and returns the count.
func (s *SQLiteStorage) DeleteTransactions(ctx context.Context, filter service.TransactionFilter) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	where, args := buildFilter(filter)
	if where == "" {
		return 0, ErrEmptyFilter
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: delete transactions: %v", common.ErrStoreFailure, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: delete transactions: %v", common.ErrStoreFailure, err)
	}
	return int(affected), nil
}

// scanner abstracts sql.Row and sql.Rows for scanTransaction.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount, direction, paymentMethod string

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Description,
		&amount,
		&direction,
		&txn.Category,
		&paymentMethod,
		&txn.AccountRef,
		&txn.Date,
		&txn.IsRecurringTemplate,
		&txn.RecurringDay,
		&txn.RecurringParentID,
		&txn.IsInstallment,
		&txn.InstallmentNumber,
		&txn.TotalInstallments,
		&txn.InstallmentParentID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := txn.Amount.Scan(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	txn.Direction = model.Direction(direction)
	txn.PaymentMethod = model.PaymentMethod(paymentMethod)
	txn.Date = txn.Date.UTC()
	txn.CreatedAt = txn.CreatedAt.UTC()
	return &txn, nil
}

// buildFilter translates a TransactionFilter into a WHERE clause and args.
// Zero-valued fields are skipped.
func buildFilter(filter service.TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.RecurringParentID != "" {
		clauses = append(clauses, "recurring_parent_id = ?")
		args = append(args, filter.RecurringParentID)
	}
	if filter.InstallmentParentID != "" {
		// An installment group is the anchor parcel plus every parcel
		// referencing it.
		clauses = append(clauses, "(installment_parent_id = ? OR id = ?)")
		args = append(args, filter.InstallmentParentID, filter.InstallmentParentID)
	}
	if filter.TemplatesOnly {
		clauses = append(clauses, "is_recurring_template = 1")
	}
	if filter.ExcludeTemplates {
		clauses = append(clauses, "is_recurring_template = 0")
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.EndDate.UTC())
	}

	return strings.Join(clauses, " AND "), args
}

// buildUpdate translates a TransactionUpdate into a SET clause and args.
// Nil fields are skipped; role flags are not updatable here at all.
func buildUpdate(upd service.TransactionUpdate) (string, []any) {
	var clauses []string
	var args []any

	if upd.Description != nil {
		clauses = append(clauses, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Amount != nil {
		clauses = append(clauses, "amount = ?")
		args = append(args, upd.Amount.String())
	}
	if upd.Direction != nil {
		clauses = append(clauses, "direction = ?")
		args = append(args, string(*upd.Direction))
	}
	if upd.Category != nil {
		clauses = append(clauses, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.PaymentMethod != nil {
		clauses = append(clauses, "payment_method = ?")
		args = append(args, string(*upd.PaymentMethod))
	}
	if upd.AccountRef != nil {
		clauses = append(clauses, "account_ref = ?")
		args = append(args, *upd.AccountRef)
	}
	if upd.Date != nil {
		clauses = append(clauses, "date = ?")
		args = append(args, upd.Date.UTC())
	}
	if upd.RecurringDay != nil {
		clauses = append(clauses, "recurring_day = ?")
		args = append(args, *upd.RecurringDay)
	}

	return strings.Join(clauses, ", "), args
}
