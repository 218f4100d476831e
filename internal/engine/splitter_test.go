package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willscaff1/fincontrol/internal/common"
	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/service"
)

func TestCreateInstallments_SplitsIntoDatedParcels(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()

	parcels, err := e.CreateInstallments(ctx, "user-1",
		TransactionFields{Description: "Fridge", Amount: dec("250.00"), Direction: model.DirectionExpense, PaymentMethod: model.PaymentCredit},
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 4)
	require.NoError(t, err)
	require.Len(t, parcels, 4)

	for i, parcel := range parcels {
		assert.Equal(t, fmt.Sprintf("Fridge (%d/4)", i+1), parcel.Description)
		assert.Equal(t, i+1, parcel.InstallmentNumber)
		assert.Equal(t, 4, parcel.TotalInstallments)
		assert.True(t, parcel.IsInstallment)
		assert.True(t, parcel.Amount.Equal(dec("250.00")), "per-parcel amount is copied, never divided")
		assert.True(t, parcel.Date.Equal(time.Date(2025, time.Month(i+1), 15, 12, 0, 0, 0, time.UTC)))
	}

	assert.Empty(t, parcels[0].InstallmentParentID, "the anchor has no parent")
	for _, parcel := range parcels[1:] {
		assert.Equal(t, parcels[0].ID, parcel.InstallmentParentID)
	}
}

func TestCreateInstallments_MonthEndNeverRollsOver(t *testing.T) {
	e, _ := setupEngine(t)
	ctx := context.Background()

	parcels, err := e.CreateInstallments(ctx, "user-1",
		TransactionFields{Description: "Sofa", Amount: dec("400.00"), Direction: model.DirectionExpense, PaymentMethod: model.PaymentCredit},
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 6)
	require.NoError(t, err)
	require.Len(t, parcels, 6)

	wantDays := []int{31, 28, 31, 30, 31, 30}
	for i, parcel := range parcels {
		assert.Equal(t, wantDays[i], parcel.Date.Day(), "parcel %d", i+1)
		assert.Equal(t, time.Month(i+1), parcel.Date.Month(), "parcel %d stays in its own month", i+1)
	}
}

func TestCreateInstallments_RejectsBelowTwo(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	for _, total := range []int{1, 0, -3} {
		_, err := e.CreateInstallments(ctx, "user-1",
			TransactionFields{Description: "Phone", Amount: dec("100.00"), Direction: model.DirectionExpense},
			time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), total)
		assert.ErrorIs(t, err, common.ErrValidation, "total=%d", total)
	}

	rows, err := store.GetTransactions(ctx, service.TransactionFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Empty(t, rows, "a rejected purchase writes nothing")
}

func TestCreateInstallments_ParcelsArePersisted(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	parcels, err := e.CreateInstallments(ctx, "user-1",
		TransactionFields{Description: "Laptop", Amount: dec("800.00"), Direction: model.DirectionExpense, PaymentMethod: model.PaymentCredit},
		time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)

	group, err := store.GetTransactions(ctx, service.TransactionFilter{InstallmentParentID: parcels[0].ID})
	require.NoError(t, err)
	assert.Len(t, group, 3, "anchor plus both referencing parcels")
}
