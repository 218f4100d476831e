package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/willscaff1/fincontrol/internal/calendar"
	"github.com/willscaff1/fincontrol/internal/common"
	"github.com/willscaff1/fincontrol/internal/model"
)

// CreateInstallments splits a purchase into total dated parcels and persists
// them. The amount is the value of each parcel, not the purchase total: it
// is copied verbatim onto every parcel, never divided. Dates advance one
// month per parcel with day-of-month overflow clamped to shorter months.
//
// The first parcel is the group's anchor; every later parcel references it.
func (e *TransactionEngine) CreateInstallments(ctx context.Context, userID string, fields TransactionFields, date time.Time, total int) ([]model.Transaction, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}
	if total < 2 {
		return nil, fmt.Errorf("%w: an installment purchase needs at least 2 parcels, got %d", common.ErrValidation, total)
	}

	parcels := e.buildParcels(userID, fields, date, total)

	// The anchor's id is only known once it is persisted, so parcel 1..N-1
	// get their parent reference before their own insert.
	if err := e.storage.SaveTransaction(ctx, &parcels[0]); err != nil {
		return nil, err
	}
	anchorID := parcels[0].ID

	for i := 1; i < len(parcels); i++ {
		parcels[i].InstallmentParentID = anchorID
		if err := e.storage.SaveTransaction(ctx, &parcels[i]); err != nil {
			e.cleanupParcels(ctx, parcels[:i])
			return nil, err
		}
	}
	return parcels, nil
}

// buildParcels computes the N parcel rows for a purchase without touching
// the store.
func (e *TransactionEngine) buildParcels(userID string, fields TransactionFields, date time.Time, total int) []model.Transaction {
	base := atNoon(date)
	createdAt := e.now().UTC()

	parcels := make([]model.Transaction, total)
	for i := 0; i < total; i++ {
		parcels[i] = model.Transaction{
			ID:                uuid.NewString(),
			UserID:            userID,
			Description:       fmt.Sprintf("%s (%d/%d)", fields.Description, i+1, total),
			Amount:            fields.Amount,
			Direction:         fields.Direction,
			Category:          fields.Category,
			PaymentMethod:     fields.PaymentMethod,
			AccountRef:        fields.AccountRef,
			Date:              calendar.AddMonths(base, i),
			IsInstallment:     true,
			InstallmentNumber: i + 1,
			TotalInstallments: total,
			CreatedAt:         createdAt,
		}
	}
	return parcels
}

// cleanupParcels removes already-inserted parcels after a mid-series insert
// failure, so a group is never left partially created.
func (e *TransactionEngine) cleanupParcels(ctx context.Context, inserted []model.Transaction) {
	for i := range inserted {
		if err := e.storage.DeleteTransaction(ctx, inserted[i].ID); err != nil {
			slog.Error("Failed to clean up parcel after group insert failure",
				"parcel_id", inserted[i].ID, "error", err)
		}
	}
}
