package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salvageops/yardstock/inventory"
	"github.com/salvageops/yardstock/inventory/store"
)

func aug(d int) time.Time {
	return time.Date(2026, time.August, d, 0, 0, 0, 0, time.UTC)
}

func cum(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestMemory_AppendEntry_DuplicateDateRejected(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	err := mem.AppendEntry(ctx, inventory.SalesEntry{
		ID: "a", StockNumber: 10500, EffectiveDate: aug(1), Cumulative: cum("100"),
	})
	require.NoError(t, err)

	err = mem.AppendEntry(ctx, inventory.SalesEntry{
		ID: "b", StockNumber: 10500, EffectiveDate: aug(1), Cumulative: cum("150"),
	})
	require.Error(t, err)
	assert.True(t, inventory.IsDuplicateEntry(err))

	var dup *inventory.DuplicateEntryError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 10500, dup.StockNumber)
}

func TestMemory_EntriesByVehicle_SortedByDate(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	for _, e := range []inventory.SalesEntry{
		{ID: "c", StockNumber: 10500, EffectiveDate: aug(15)},
		{ID: "a", StockNumber: 10500, EffectiveDate: aug(1)},
		{ID: "b", StockNumber: 10500, EffectiveDate: aug(8)},
		{ID: "x", StockNumber: 10999, EffectiveDate: aug(1)},
	} {
		require.NoError(t, mem.AppendEntry(ctx, e))
	}

	entries, err := mem.EntriesByVehicle(ctx, 10500)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, "c", entries[2].ID)
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A store with one vehicle
	// WHEN: A transaction writes another vehicle, then fails
	// THEN: The write is discarded

	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.PutVehicle(ctx, inventory.Vehicle{StockNumber: 10500}))

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(s inventory.Store) error {
		if err := s.PutVehicle(ctx, inventory.Vehicle{StockNumber: 10501}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	v, err := mem.GetVehicle(ctx, 10501)
	require.NoError(t, err)
	assert.Nil(t, v, "failed transaction must leave no trace")

	v, err = mem.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestMemory_WithTx_CommitsOnSuccess(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	err := mem.WithTx(ctx, func(s inventory.Store) error {
		return s.PutVehicle(ctx, inventory.Vehicle{StockNumber: 10500, Make: "Toyota"})
	})
	require.NoError(t, err)

	v, err := mem.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "Toyota", v.Make)
}

func TestMemory_GetVehicle_ReturnsCopy(t *testing.T) {
	// Mutating a returned vehicle must not leak into the store.

	mem := store.NewMemory()
	ctx := context.Background()

	cost := cum("1000")
	require.NoError(t, mem.PutVehicle(ctx, inventory.Vehicle{StockNumber: 10500, Cost: cost}))

	v, err := mem.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	*v.Cost = decimal.RequireFromString("9999")
	v.Make = "Mutated"

	fresh, err := mem.GetVehicle(ctx, 10500)
	require.NoError(t, err)
	assert.Empty(t, fresh.Make)
	assert.True(t, decimal.RequireFromString("1000").Equal(*fresh.Cost))
}

func TestMemory_DeleteEntriesByBatch(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	for _, e := range []inventory.SalesEntry{
		{ID: "a", StockNumber: 10500, EffectiveDate: aug(1), ImportBatch: "b1"},
		{ID: "b", StockNumber: 10501, EffectiveDate: aug(1), ImportBatch: "b1"},
		{ID: "c", StockNumber: 10500, EffectiveDate: aug(8), ImportBatch: "b2"},
	} {
		require.NoError(t, mem.AppendEntry(ctx, e))
	}

	n, err := mem.DeleteEntriesByBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := mem.EntriesByVehicle(ctx, 10500)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].ID)
}
