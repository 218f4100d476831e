package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willscaff1/fincontrol/internal/lock"
	"github.com/willscaff1/fincontrol/internal/model"
	"github.com/willscaff1/fincontrol/internal/service"
	"github.com/willscaff1/fincontrol/internal/storage"
	"github.com/willscaff1/fincontrol/internal/testutil"
)

// setupEngine builds an engine over an in-memory store with the clock frozen
// at 2025-01-10, so "the current month" is January 2025 in every test.
func setupEngine(t *testing.T) (*TransactionEngine, *storage.SQLiteStorage) {
	t.Helper()

	store := testutil.SetupTestDB(t)
	e := New(store, lock.NewTable())
	e.now = func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) }
	return e, store
}

func instancesOf(t *testing.T, store *storage.SQLiteStorage, templateID string) []model.Transaction {
	t.Helper()
	instances, err := store.GetTransactions(context.Background(), service.TransactionFilter{RecurringParentID: templateID})
	require.NoError(t, err)
	return instances
}

func TestEnsureMaterialized_GeneratesOneInstance(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, first, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Rent", Amount: dec("1200.00"), Direction: model.DirectionExpense, PaymentMethod: model.PaymentPix},
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 15, template.RecurringDay)
	require.Equal(t, template.ID, first.RecurringParentID)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))

	instances := instancesOf(t, store, template.ID)
	require.Len(t, instances, 2, "january's first instance plus february's")

	feb := instances[1]
	assert.True(t, feb.Date.Equal(time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Rent", feb.Description)
	assert.True(t, feb.Amount.Equal(dec("1200.00")), "instance copies the template amount verbatim")
	assert.False(t, feb.IsRecurringTemplate)
	assert.Equal(t, model.RoleInstance, feb.Role())
}

func TestEnsureMaterialized_Idempotent(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Rent", Amount: dec("1200.00"), Direction: model.DirectionExpense},
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))
	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))
	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))

	assert.Len(t, instancesOf(t, store, template.ID), 2, "repeat calls must not duplicate february")
}

func TestEnsureMaterialized_PastPeriodIsNoop(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Rent", Amount: dec("1200.00"), Direction: model.DirectionExpense},
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 12, 2024))

	assert.Len(t, instancesOf(t, store, template.ID), 1, "past months are never backfilled automatically")
}

func TestEnsureMaterialized_CurrentMonthIsAllowed(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Rent", Amount: dec("1200.00"), Direction: model.DirectionExpense},
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 1, 2025))

	instances := instancesOf(t, store, template.ID)
	require.Len(t, instances, 2)
	assert.True(t, instances[1].Date.Equal(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)))
}

func TestEnsureMaterialized_ClampsAnchorDay(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Card bill", Amount: dec("310.00"), Direction: model.DirectionExpense, PaymentMethod: model.PaymentCredit},
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 31, template.RecurringDay)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))
	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 4, 2025))
	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 3, 2025))

	instances := instancesOf(t, store, template.ID)
	require.Len(t, instances, 4)
	assert.Equal(t, 31, instances[0].Date.Day(), "january")
	assert.Equal(t, 28, instances[1].Date.Day(), "february clamps")
	assert.Equal(t, 31, instances[2].Date.Day(), "march restores the anchor")
	assert.Equal(t, 30, instances[3].Date.Day(), "april clamps")
}

func TestEnsureMaterialized_SkipsTemplatesCreatedLater(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	// Template dated in march cannot apply to february.
	e.now = func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) }
	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Gym", Amount: dec("80.00"), Direction: model.DirectionExpense},
		time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))
	assert.Len(t, instancesOf(t, store, template.ID), 1, "no retroactive february instance")

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 4, 2025))
	assert.Len(t, instancesOf(t, store, template.ID), 2, "april is after the template's start")
}

func TestEnsureMaterialized_CoversAllTemplates(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	var templates []*model.Transaction
	for _, desc := range []string{"Rent", "Internet", "Gym"} {
		template, _, err := e.CreateRecurring(ctx, "user-1",
			TransactionFields{Description: desc, Amount: dec("100.00"), Direction: model.DirectionExpense},
			time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		templates = append(templates, template)
	}

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))

	for _, template := range templates {
		assert.Len(t, instancesOf(t, store, template.ID), 2, "template %s", template.Description)
	}
}

func TestEnsureMaterialized_ScopedToUser(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	mine, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Rent", Amount: dec("1200.00"), Direction: model.DirectionExpense},
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	theirs, _, err := e.CreateRecurring(ctx, "user-2",
		TransactionFields{Description: "Rent", Amount: dec("900.00"), Direction: model.DirectionExpense},
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))

	assert.Len(t, instancesOf(t, store, mine.ID), 2)
	assert.Len(t, instancesOf(t, store, theirs.ID), 1, "other users' templates stay untouched")
}

func TestEnsureMaterialized_ConcurrentRace(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Rent", Amount: dec("1200.00"), Direction: model.DirectionExpense},
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.EnsureMaterialized(ctx, "user-1", 2, 2025)
		}()
	}
	wg.Wait()

	assert.Len(t, instancesOf(t, store, template.ID), 2, "racing callers must produce exactly one february instance")
}

func TestEnsureMaterialized_RespectsPreexistingInstance(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	// Seed a template and a hand-written february instance directly in the
	// store, bypassing the engine.
	template := testutil.NewTransaction("user-1",
		time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC),
		testutil.AsTemplate(), testutil.WithDescription("Rent"), testutil.WithAmount("1200.00"))
	require.NoError(t, store.SaveTransaction(ctx, template))

	seeded := testutil.NewTransaction("user-1",
		time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC),
		testutil.AsInstanceOf(template.ID), testutil.WithDescription("Rent"), testutil.WithAmount("1200.00"))
	require.NoError(t, store.SaveTransaction(ctx, seeded))

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))

	instances := instancesOf(t, store, template.ID)
	require.Len(t, instances, 1, "an existing instance in the month blocks generation")
	assert.Equal(t, seeded.ID, instances[0].ID)
	assert.Equal(t, 3, instances[0].Date.Day(), "the seeded date wins, even off-anchor")
}

func TestBackfillPeriod_IgnoresPastGuard(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Rent", Amount: dec("1200.00"), Direction: model.DirectionExpense},
		time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, e.BackfillPeriod(ctx, "user-1", 11, 2024))
	require.NoError(t, e.BackfillPeriod(ctx, "user-1", 12, 2024))
	require.NoError(t, e.BackfillPeriod(ctx, "user-1", 12, 2024))

	instances := instancesOf(t, store, template.ID)
	require.Len(t, instances, 3, "june start plus november and december, no duplicates")
	assert.True(t, instances[1].Date.Equal(time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)))
	assert.True(t, instances[2].Date.Equal(time.Date(2024, 12, 15, 12, 0, 0, 0, time.UTC)))
}

// Scenario from the product definition: a template created mid-january
// materializes exactly once for february and never for a past month.
func TestEnsureMaterialized_Scenario(t *testing.T) {
	e, store := setupEngine(t)
	ctx := context.Background()

	template, _, err := e.CreateRecurring(ctx, "user-1",
		TransactionFields{Description: "Streaming", Amount: dec("39.90"), Direction: model.DirectionExpense, PaymentMethod: model.PaymentCredit},
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 15, template.RecurringDay)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))
	instances := instancesOf(t, store, template.ID)
	require.Len(t, instances, 2)
	assert.True(t, instances[1].Date.Equal(time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)))

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 2, 2025))
	assert.Len(t, instancesOf(t, store, template.ID), 2)

	require.NoError(t, e.EnsureMaterialized(ctx, "user-1", 12, 2024))
	assert.Len(t, instancesOf(t, store, template.ID), 2)
}

func TestEnsureMaterialized_RejectsInvalidPeriod(t *testing.T) {
	e, _ := setupEngine(t)
	assert.Error(t, e.EnsureMaterialized(context.Background(), "user-1", 13, 2025))
	assert.Error(t, e.EnsureMaterialized(context.Background(), "user-1", 0, 2025))
}
