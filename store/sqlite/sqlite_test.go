package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salvageops/yardstock/inventory"
	"github.com/salvageops/yardstock/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func aug(d int) time.Time {
	return time.Date(2026, time.August, d, 0, 0, 0, 0, time.UTC)
}

func cum(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =============================================================================
// VEHICLES
// =============================================================================

func TestSQLite_VehicleRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inv := aug(1)
	mileage := 88000
	year := 2019
	v := inventory.Vehicle{
		StockNumber:     10500,
		Make:            "Toyota",
		Model:           "Camry",
		Year:            &year,
		Color:           "Blue",
		Mileage:         &mileage,
		Engine:          "2.5L",
		Location:        "A3.12",
		Cost:            cum("1200.50"),
		Inventoried:     &inv,
		Status:          inventory.StatusActive,
		CreatedBatch:    "2026-08-01 09:00:00",
		LastImportBatch: "2026-08-01 09:00:00",
	}
	require.NoError(t, store.PutVehicle(ctx, v))

	got, err := store.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Toyota", got.Make)
	require.NotNil(t, got.Year)
	assert.Equal(t, 2019, *got.Year)
	require.NotNil(t, got.Cost)
	assert.True(t, cum("1200.50").Equal(*got.Cost))
	require.NotNil(t, got.Inventoried)
	assert.True(t, inv.Equal(*got.Inventoried))
	assert.Equal(t, inventory.StatusActive, got.Status)
}

func TestSQLite_VehicleAbsentFieldsSurviveRoundTrip(t *testing.T) {
	// Absent is absent, not zero: nil pointers must come back nil.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutVehicle(ctx, inventory.Vehicle{
		StockNumber:  10500,
		Status:       inventory.StatusActive,
		CreatedBatch: "b1",
	}))

	got, err := store.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Year)
	assert.Nil(t, got.Cost)
	assert.Nil(t, got.Inventoried)
	assert.Nil(t, got.Profit)
	assert.Nil(t, got.AgeDays)
}

func TestSQLite_PutVehicle_UpsertPreservesCreatedBatch(t *testing.T) {
	// The creating batch is provenance; later upserts must not rewrite it.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutVehicle(ctx, inventory.Vehicle{
		StockNumber: 10500, Status: inventory.StatusActive, CreatedBatch: "b1", LastImportBatch: "b1",
	}))
	require.NoError(t, store.PutVehicle(ctx, inventory.Vehicle{
		StockNumber: 10500, Make: "Honda", Status: inventory.StatusActive, CreatedBatch: "b2", LastImportBatch: "b2",
	}))

	got, err := store.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Honda", got.Make)
	assert.Equal(t, "b1", got.CreatedBatch)
	assert.Equal(t, "b2", got.LastImportBatch)
}

func TestSQLite_GetVehicle_UnknownIsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetVehicle(context.Background(), 99999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_VehiclesCreatedBy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for stock, batch := range map[int]string{10500: "b1", 10501: "b1", 10502: "b2"} {
		require.NoError(t, store.PutVehicle(ctx, inventory.Vehicle{
			StockNumber: stock, Status: inventory.StatusActive, CreatedBatch: batch, LastImportBatch: batch,
		}))
	}

	got, err := store.VehiclesCreatedBy(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// =============================================================================
// SALES ENTRIES
// =============================================================================

func TestSQLite_AppendEntry_UniqueIndexMapsToDomainError(t *testing.T) {
	// The (stock_number, effective_date) unique index is the storage
	// enforcement of the one-entry-per-day rule; violations surface as
	// the domain's duplicate error, not a raw driver error.

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, inventory.SalesEntry{
		ID: "a", StockNumber: 10500, EffectiveDate: aug(1), Cumulative: cum("100"), ImportBatch: "b1",
	}))

	err := store.AppendEntry(ctx, inventory.SalesEntry{
		ID: "b", StockNumber: 10500, EffectiveDate: aug(1), Cumulative: cum("150"), ImportBatch: "b2",
	})
	require.Error(t, err)
	assert.True(t, inventory.IsDuplicateEntry(err))
	assert.ErrorIs(t, err, inventory.ErrDuplicateEntry)
}

func TestSQLite_EntriesByVehicle_OrderedAndScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, e := range []inventory.SalesEntry{
		{ID: "c", StockNumber: 10500, EffectiveDate: aug(15), Cumulative: cum("120"), Change: decimal.RequireFromString("-30"), ImportBatch: "b3"},
		{ID: "a", StockNumber: 10500, EffectiveDate: aug(1), Cumulative: cum("100"), Change: decimal.RequireFromString("100"), ImportBatch: "b1"},
		{ID: "x", StockNumber: 10999, EffectiveDate: aug(1), Cumulative: cum("5"), ImportBatch: "b1"},
		{ID: "b", StockNumber: 10500, EffectiveDate: aug(8), Cumulative: cum("150"), Change: decimal.RequireFromString("50"), ImportBatch: "b2"},
	} {
		require.NoError(t, store.AppendEntry(ctx, e))
	}

	entries, err := store.EntriesByVehicle(ctx, 10500)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, "c", entries[2].ID)
	assert.True(t, decimal.RequireFromString("-30").Equal(entries[2].Change))
}

func TestSQLite_UpdateEntryChange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEntry(ctx, inventory.SalesEntry{
		ID: "a", StockNumber: 10500, EffectiveDate: aug(15), Cumulative: cum("120"), Change: decimal.RequireFromString("120"), ImportBatch: "b1",
	}))

	require.NoError(t, store.UpdateEntryChange(ctx, "a", decimal.RequireFromString("-30")))

	entries, err := store.EntriesByVehicle(ctx, 10500)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, decimal.RequireFromString("-30").Equal(entries[0].Change))
	assert.True(t, cum("120").Equal(*entries[0].Cumulative), "only the change may be rewritten")
}

func TestSQLite_DeleteEntriesByBatch_ReturnsCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, e := range []inventory.SalesEntry{
		{ID: "a", StockNumber: 10500, EffectiveDate: aug(1), ImportBatch: "b1"},
		{ID: "b", StockNumber: 10501, EffectiveDate: aug(1), ImportBatch: "b1"},
		{ID: "c", StockNumber: 10500, EffectiveDate: aug(8), ImportBatch: "b2"},
	} {
		require.NoError(t, store.AppendEntry(ctx, e))
	}

	n, err := store.DeleteEntriesByBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := store.EntriesByVehicle(ctx, 10500)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// =============================================================================
// BATCHES
// =============================================================================

func TestSQLite_BatchRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, time.August, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.PutBatch(ctx, inventory.Batch{
		ID:            "2026-08-01 09:30:00",
		EffectiveDate: aug(1),
		Mode:          inventory.ModeFull,
		CreatedAt:     created,
	}))

	got, err := store.GetBatch(ctx, "2026-08-01 09:30:00")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inventory.ModeFull, got.Mode)
	assert.True(t, aug(1).Equal(got.EffectiveDate))

	require.NoError(t, store.DeleteBatch(ctx, "2026-08-01 09:30:00"))
	got, err = store.GetBatch(ctx, "2026-08-01 09:30:00")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListBatches_OrderedByEffectiveDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, d := range []int{15, 1, 8} {
		require.NoError(t, store.PutBatch(ctx, inventory.Batch{
			ID:            aug(d).Format(inventory.BatchIDLayout),
			EffectiveDate: aug(d),
			Mode:          inventory.ModeFull,
			CreatedAt:     aug(d).Add(time.Duration(i) * time.Hour),
		}))
	}

	batches, err := store.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.True(t, aug(1).Equal(batches[0].EffectiveDate))
	assert.True(t, aug(8).Equal(batches[1].EffectiveDate))
	assert.True(t, aug(15).Equal(batches[2].EffectiveDate))
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s inventory.Store) error {
		if err := s.PutVehicle(ctx, inventory.Vehicle{
			StockNumber: 10500, Status: inventory.StatusActive, CreatedBatch: "b1",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s inventory.Store) error {
		if err := s.PutVehicle(ctx, inventory.Vehicle{
			StockNumber: 10500, Status: inventory.StatusActive, CreatedBatch: "b1",
		}); err != nil {
			return err
		}
		return s.AppendEntry(ctx, inventory.SalesEntry{
			ID: "a", StockNumber: 10500, EffectiveDate: aug(1), Cumulative: cum("100"), ImportBatch: "b1",
		})
	})
	require.NoError(t, err)

	got, err := store.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	require.NotNil(t, got)

	entries, err := store.EntriesByVehicle(ctx, 10500)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
