package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/willscaff1/fincontrol/internal/common"
	"github.com/willscaff1/fincontrol/internal/lock"
	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/service"
)

// acquireUpdateLock serializes coordinator operations on one transaction id.
// A losing caller gets an explicit conflict rather than being silently
// skipped: a dropped edit must be visible to whoever requested it.
func (e *TransactionEngine) acquireUpdateLock(userID, id string) (lock.Key, error) {
	key := lock.UpdateKey(userID, id)
	if !e.locks.TryAcquire(key) {
		return lock.Key{}, fmt.Errorf("%w: transaction %s", common.ErrConflict, id)
	}
	return key, nil
}

// UpdateTransaction edits transaction id for the given user. With
// applyToSeries set and a series-linked target, the edit propagates to the
// template and every generated instance; instance dates are never touched by
// a series edit since each one is specific to its own month.
//
// The update cannot change a row's role: flags and parent references are
// structural and absent from the update type entirely.
func (e *TransactionEngine) UpdateTransaction(ctx context.Context, id, userID string, upd service.TransactionUpdate, applyToSeries bool) (*model.Transaction, error) {
	key, err := e.acquireUpdateLock(userID, id)
	if err != nil {
		return nil, err
	}
	defer e.locks.Release(key)

	txn, err := e.storage.GetTransactionByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	// The anchor day is derived from the date, never accepted from input.
	upd.RecurringDay = nil
	if upd.Date != nil {
		noon := atNoon(*upd.Date)
		upd.Date = &noon
	}

	if applyToSeries && txn.IsSeriesLinked() {
		if err := e.updateSeries(ctx, txn, upd); err != nil {
			return nil, err
		}
	} else {
		ownUpd := upd
		if txn.IsRecurringTemplate && ownUpd.Date != nil {
			day := ownUpd.Date.Day()
			ownUpd.RecurringDay = &day
		}
		if err := e.storage.UpdateTransaction(ctx, id, ownUpd); err != nil {
			return nil, err
		}
	}

	return e.storage.GetTransactionByID(ctx, id, userID)
}

// updateSeries applies the edit to the template row and, date excluded, to
// all of its generated instances.
func (e *TransactionEngine) updateSeries(ctx context.Context, txn *model.Transaction, upd service.TransactionUpdate) error {
	templateID := txn.SeriesTemplateID()

	templateUpd := upd
	if templateUpd.Date != nil {
		// An explicit date change re-anchors the whole series.
		day := templateUpd.Date.Day()
		templateUpd.RecurringDay = &day
	}
	if err := e.storage.UpdateTransaction(ctx, templateID, templateUpd); err != nil {
		return err
	}

	instanceUpd := upd
	instanceUpd.Date = nil
	instanceUpd.RecurringDay = nil
	if instanceUpd.IsEmpty() {
		return nil
	}

	updated, err := e.storage.UpdateTransactions(ctx,
		service.TransactionFilter{RecurringParentID: templateID},
		instanceUpd)
	if err != nil {
		return err
	}
	slog.Debug("Propagated series update", "template_id", templateID, "instances", updated)
	return nil
}

// DeleteTransaction removes a single row, whatever its role. Template or
// group links on other rows are untouched.
func (e *TransactionEngine) DeleteTransaction(ctx context.Context, id, userID string) error {
	key, err := e.acquireUpdateLock(userID, id)
	if err != nil {
		return err
	}
	defer e.locks.Release(key)

	if _, err := e.storage.GetTransactionByID(ctx, id, userID); err != nil {
		return err
	}
	return e.storage.DeleteTransaction(ctx, id)
}

// DeleteSeries removes a whole recurring series: the template plus every
// generated instance, resolved from any row of the series. It returns the
// total number of rows removed. The cascade is best-effort: a late store
// failure is surfaced together with the count actually removed.
func (e *TransactionEngine) DeleteSeries(ctx context.Context, id, userID string) (int, error) {
	key, err := e.acquireUpdateLock(userID, id)
	if err != nil {
		return 0, err
	}
	defer e.locks.Release(key)

	txn, err := e.storage.GetTransactionByID(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if !txn.IsSeriesLinked() {
		return 0, fmt.Errorf("%w: transaction %s is not part of a recurring series", common.ErrValidation, id)
	}
	templateID := txn.SeriesTemplateID()

	deleted, err := e.storage.DeleteTransactions(ctx,
		service.TransactionFilter{RecurringParentID: templateID})
	if err != nil {
		return deleted, err
	}

	if err := e.storage.DeleteTransaction(ctx, templateID); err != nil {
		return deleted, err
	}
	return deleted + 1, nil
}

// DeleteInstallmentGroup removes a whole installment group resolved from any
// of its parcels: the anchor plus every parcel referencing it. It returns
// the number of rows removed.
func (e *TransactionEngine) DeleteInstallmentGroup(ctx context.Context, id, userID string) (int, error) {
	key, err := e.acquireUpdateLock(userID, id)
	if err != nil {
		return 0, err
	}
	defer e.locks.Release(key)

	txn, err := e.storage.GetTransactionByID(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if !txn.IsInstallment {
		return 0, fmt.Errorf("%w: transaction %s is not part of an installment group", common.ErrValidation, id)
	}

	return e.storage.DeleteTransactions(ctx,
		service.TransactionFilter{InstallmentParentID: txn.GroupAnchorID()})
}
