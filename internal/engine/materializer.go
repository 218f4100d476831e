package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/willscaff1/fincontrol/internal/calendar"
	"github.com/willscaff1/fincontrol/internal/lock"
	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/service"
)

// EnsureMaterialized guarantees that every active recurring template of the
// user has exactly one generated instance in the given period. It is called
// before any month-scoped read.
//
// The call is an idempotent no-op when another materialization for the same
// (user, period) is already in flight, and when the period lies strictly
// before the current calendar month: past periods are never backfilled
// automatically.
func (e *TransactionEngine) EnsureMaterialized(ctx context.Context, userID string, month, year int) error {
	if err := validatePeriod(month, year); err != nil {
		return err
	}

	key := lock.MaterializationKey(userID, month, year)
	if !e.locks.TryAcquire(key) {
		// Someone else is covering this period right now.
		return nil
	}
	defer e.locks.Release(key)

	if e.isPastPeriod(month, year) {
		return nil
	}

	return e.materializePeriod(ctx, userID, month, year)
}

// BackfillPeriod is the administrative variant of EnsureMaterialized with
// the past-period guard lifted, used to repair historical gaps. It is never
// invoked implicitly.
func (e *TransactionEngine) BackfillPeriod(ctx context.Context, userID string, month, year int) error {
	if err := validatePeriod(month, year); err != nil {
		return err
	}

	key := lock.MaterializationKey(userID, month, year)
	if !e.locks.TryAcquire(key) {
		return nil
	}
	defer e.locks.Release(key)

	return e.materializePeriod(ctx, userID, month, year)
}

// isPastPeriod reports whether the period ends before the current calendar
// month begins.
func (e *TransactionEngine) isPastPeriod(month, year int) bool {
	now := e.now().UTC()
	return year < now.Year() || (year == now.Year() && month < int(now.Month()))
}

// materializePeriod runs one generation pass. The caller must hold the
// period's generation lock.
func (e *TransactionEngine) materializePeriod(ctx context.Context, userID string, month, year int) error {
	templates, err := e.storage.GetTransactions(ctx, service.TransactionFilter{
		UserID:        userID,
		TemplatesOnly: true,
	})
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return nil
	}

	start, end := calendar.MonthBounds(year, month)
	generated := 0

	for i := range templates {
		template := &templates[i]

		// A template created after the target month ends cannot
		// retroactively apply to it.
		if template.Date.After(end) {
			continue
		}

		exists, err := e.instanceExists(ctx, template.ID, start, end)
		if err != nil {
			slog.Error("Failed to check for existing instance",
				"template_id", template.ID, "month", month, "year", year, "error", err)
			continue
		}
		if exists {
			continue
		}

		instance := e.buildInstance(template, month, year)
		if err := e.storage.SaveTransaction(ctx, instance); err != nil {
			// One bad template must not block the others.
			slog.Error("Failed to materialize instance",
				"template_id", template.ID, "month", month, "year", year, "error", err)
			continue
		}
		generated++
	}

	if generated > 0 {
		slog.Info("Materialized recurring instances",
			"user_id", userID, "month", month, "year", year, "generated", generated)
	}
	return nil
}

// instanceExists checks for a generated instance of the template within the
// month bounds.
func (e *TransactionEngine) instanceExists(ctx context.Context, templateID string, start, end time.Time) (bool, error) {
	existing, err := e.storage.GetTransactions(ctx, service.TransactionFilter{
		RecurringParentID: templateID,
		StartDate:         &start,
		EndDate:           &end,
		Limit:             1,
	})
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

// buildInstance copies the template's fields into a new instance dated at
// the template's anchor day clamped to the target month.
func (e *TransactionEngine) buildInstance(template *model.Transaction, month, year int) *model.Transaction {
	return &model.Transaction{
		ID:                uuid.NewString(),
		UserID:            template.UserID,
		Description:       template.Description,
		Amount:            template.Amount,
		Direction:         template.Direction,
		Category:          template.Category,
		PaymentMethod:     template.PaymentMethod,
		AccountRef:        template.AccountRef,
		Date:              calendar.DateAtNoon(year, month, template.RecurringDay),
		RecurringParentID: template.ID,
		CreatedAt:         e.now().UTC(),
	}
}
