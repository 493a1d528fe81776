package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salvageops/yardstock/inventory"
)

// =============================================================================
// LISTING FILTER
// =============================================================================

func TestListVehicles_DefaultFilterHidesScrap(t *testing.T) {
	// GIVEN: One active vehicle and one dismantled one
	// WHEN: Listing with the default filter, then with scrap opted in
	// THEN: Scrap is hidden by default and shown on request

	engine, _, clock := newTestEngine(t)
	ctx := context.Background()

	scrapRow := fullRow(10501, "200")
	scrapRow.Dismantled = dayPtr(2026, time.July, 15)

	importOn(t, engine, clock, day(2026, time.August, 1), day(2026, time.August, 1),
		inventory.ModeFull, fullRow(10500, "100"), scrapRow)

	active, err := engine.ListVehicles(ctx, inventory.Filter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 10500, active[0].StockNumber)

	all, err := engine.ListVehicles(ctx, inventory.Filter{IncludeScrap: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListVehicles_MakeModelFilter(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	ctx := context.Background()

	honda := fullRow(10501, "200")
	honda.Make = "Honda"
	honda.Model = "Civic"

	importOn(t, engine, clock, day(2026, time.August, 1), day(2026, time.August, 1),
		inventory.ModeFull, fullRow(10500, "100"), honda)

	got, err := engine.ListVehicles(ctx, inventory.Filter{Make: "Honda"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10501, got[0].StockNumber)

	got, err = engine.ListVehicles(ctx, inventory.Filter{Make: "Honda", Model: "Accord"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListVehicles_ExplicitStatusSet(t *testing.T) {
	engine, mem, clock := newTestEngine(t)
	ctx := context.Background()

	importOn(t, engine, clock, day(2026, time.August, 1), day(2026, time.August, 1),
		inventory.ModeFull, fullRow(10500, "100"), fullRow(10501, "200"))

	// Inactive is a manual override, never produced by import.
	v, err := mem.GetVehicle(ctx, 10501)
	require.NoError(t, err)
	v.Status = inventory.StatusInactive
	require.NoError(t, mem.PutVehicle(ctx, *v))

	got, err := engine.ListVehicles(ctx, inventory.Filter{
		Statuses: []inventory.Status{inventory.StatusInactive},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10501, got[0].StockNumber)
}

func TestListVehicles_OrderedByStockNumber(t *testing.T) {
	engine, _, clock := newTestEngine(t)

	importOn(t, engine, clock, day(2026, time.August, 1), day(2026, time.August, 1),
		inventory.ModeFull, fullRow(10502, "1"), fullRow(10500, "2"), fullRow(10501, "3"))

	got, err := engine.ListVehicles(context.Background(), inventory.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 10500, got[0].StockNumber)
	assert.Equal(t, 10501, got[1].StockNumber)
	assert.Equal(t, 10502, got[2].StockNumber)
}

// =============================================================================
// CHANGE DYNAMICS RENDERING
// =============================================================================

func TestChangeDelta_SignedDisplay(t *testing.T) {
	up := inventory.ChangeDelta{Amount: dec("150"), Direction: inventory.DirectionUp}
	down := inventory.ChangeDelta{Amount: dec("-30"), Direction: inventory.DirectionDown}
	flat := inventory.ChangeDelta{Amount: dec("0"), Direction: inventory.DirectionFlat}

	assert.Equal(t, "+150", up.Signed())
	assert.Equal(t, "-30", down.Signed())
	assert.Equal(t, "0", flat.Signed())
}

func TestChangeHistory_UnknownVehicleIsEmpty(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	history, err := engine.ChangeHistory(context.Background(), 99999)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregate_AbsentValuesExcludedFromCount(t *testing.T) {
	// GIVEN: Three vehicles, one without a cost
	// WHEN: Aggregating profit
	// THEN: Count/min/max/avg consider only the two with values; the
	//       absent one contributes nothing, not a zero

	vehicles := []inventory.Vehicle{
		{StockNumber: 10500, Profit: decPtr("100")},
		{StockNumber: 10501, Profit: decPtr("300")},
		{StockNumber: 10502}, // no cost, no profit
	}

	stats := inventory.Aggregate(vehicles, []inventory.Field{inventory.FieldProfit})
	s := stats[inventory.FieldProfit]

	assert.Equal(t, 2, s.Count)
	require.NotNil(t, s.Min)
	assert.True(t, dec("100").Equal(*s.Min))
	require.NotNil(t, s.Max)
	assert.True(t, dec("300").Equal(*s.Max))
	require.NotNil(t, s.Avg)
	assert.True(t, dec("200").Equal(*s.Avg), "avg divides by present count, not total")
	assert.True(t, dec("400").Equal(s.Sum))
}

func TestAggregate_EmptySubset(t *testing.T) {
	stats := inventory.Aggregate(nil, inventory.AllFields)

	for _, f := range inventory.AllFields {
		s := stats[f]
		assert.Zero(t, s.Count)
		assert.Nil(t, s.Min)
		assert.Nil(t, s.Max)
		assert.Nil(t, s.Avg)
		assert.True(t, s.Sum.IsZero())
	}
}

func TestAggregate_IntFieldsPromoteToDecimal(t *testing.T) {
	age1, age2 := 10, 20
	vehicles := []inventory.Vehicle{
		{StockNumber: 10500, AgeDays: &age1},
		{StockNumber: 10501, AgeDays: &age2},
	}

	stats := inventory.Aggregate(vehicles, []inventory.Field{inventory.FieldAge})
	s := stats[inventory.FieldAge]

	assert.Equal(t, 2, s.Count)
	assert.True(t, dec("15").Equal(*s.Avg))
	assert.True(t, dec("30").Equal(s.Sum))
}

func TestAggregate_NegativeProfitIncluded(t *testing.T) {
	// Losses are real values, not absence.
	vehicles := []inventory.Vehicle{
		{StockNumber: 10500, Profit: decPtr("-250")},
		{StockNumber: 10501, Profit: decPtr("750")},
	}

	stats := inventory.Aggregate(vehicles, []inventory.Field{inventory.FieldProfit})
	s := stats[inventory.FieldProfit]

	assert.Equal(t, 2, s.Count)
	assert.True(t, dec("-250").Equal(*s.Min))
	assert.True(t, dec("500").Equal(s.Sum))
}
