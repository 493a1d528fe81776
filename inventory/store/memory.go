// Package store provides an in-memory inventory.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salvageops/yardstock/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds the whole ledger in maps. WithTx works on a deep copy and
// swaps it in on success, so a failed unit of work leaves nothing behind.
type Memory struct {
	mu       sync.RWMutex
	vehicles map[int]inventory.Vehicle
	entries  map[string]inventory.SalesEntry // by entry ID
	batches  map[string]inventory.Batch
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		vehicles: make(map[int]inventory.Vehicle),
		entries:  make(map[string]inventory.SalesEntry),
		batches:  make(map[string]inventory.Batch),
	}
}

// WithTx runs fn against an isolated copy of the store and commits the
// copy over the live state only when fn succeeds.
func (m *Memory) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	shadow := &Memory{
		vehicles: make(map[int]inventory.Vehicle, len(m.vehicles)),
		entries:  make(map[string]inventory.SalesEntry, len(m.entries)),
		batches:  make(map[string]inventory.Batch, len(m.batches)),
	}
	for k, v := range m.vehicles {
		shadow.vehicles[k] = cloneVehicle(v)
	}
	for k, e := range m.entries {
		shadow.entries[k] = cloneEntry(e)
	}
	for k, b := range m.batches {
		shadow.batches[k] = b
	}

	if err := fn(shadow); err != nil {
		return err
	}

	m.vehicles = shadow.vehicles
	m.entries = shadow.entries
	m.batches = shadow.batches
	return nil
}

// =============================================================================
// VEHICLES
// =============================================================================

func (m *Memory) GetVehicle(_ context.Context, stockNumber int) (*inventory.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vehicles[stockNumber]
	if !ok {
		return nil, nil
	}
	c := cloneVehicle(v)
	return &c, nil
}

func (m *Memory) PutVehicle(_ context.Context, v inventory.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vehicles[v.StockNumber] = cloneVehicle(v)
	return nil
}

func (m *Memory) DeleteVehicle(_ context.Context, stockNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.vehicles, stockNumber)
	return nil
}

func (m *Memory) ListVehicles(_ context.Context) ([]inventory.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, cloneVehicle(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockNumber < out[j].StockNumber })
	return out, nil
}

func (m *Memory) VehiclesCreatedBy(_ context.Context, batchID string) ([]inventory.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []inventory.Vehicle
	for _, v := range m.vehicles {
		if v.CreatedBatch == batchID {
			out = append(out, cloneVehicle(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockNumber < out[j].StockNumber })
	return out, nil
}

// =============================================================================
// SALES ENTRIES
// =============================================================================

func (m *Memory) AppendEntry(_ context.Context, e inventory.SalesEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.entries {
		if existing.StockNumber == e.StockNumber &&
			inventory.SameDay(existing.EffectiveDate, e.EffectiveDate) {
			return &inventory.DuplicateEntryError{
				StockNumber:   e.StockNumber,
				EffectiveDate: e.EffectiveDate,
			}
		}
	}
	m.entries[e.ID] = cloneEntry(e)
	return nil
}

func (m *Memory) UpdateEntryChange(_ context.Context, id string, change decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	e.Change = change
	m.entries[id] = e
	return nil
}

func (m *Memory) EntriesByVehicle(_ context.Context, stockNumber int) ([]inventory.SalesEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []inventory.SalesEntry
	for _, e := range m.entries {
		if e.StockNumber == stockNumber {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.Before(out[j].EffectiveDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteEntriesByBatch(_ context.Context, batchID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, e := range m.entries {
		if e.ImportBatch == batchID {
			delete(m.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// =============================================================================
// BATCHES
// =============================================================================

func (m *Memory) PutBatch(_ context.Context, b inventory.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches[b.ID] = b
	return nil
}

func (m *Memory) GetBatch(_ context.Context, id string) (*inventory.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) ListBatches(_ context.Context) ([]inventory.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.Before(out[j].EffectiveDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteBatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.batches, id)
	return nil
}

// =============================================================================
// CLONE HELPERS
// =============================================================================

func cloneVehicle(v inventory.Vehicle) inventory.Vehicle {
	c := v
	c.Year = cloneInt(v.Year)
	c.Mileage = cloneInt(v.Mileage)
	c.Cost = cloneDec(v.Cost)
	c.Inventoried = cloneTime(v.Inventoried)
	c.Breakeven = cloneTime(v.Breakeven)
	c.Dismantled = cloneTime(v.Dismantled)
	c.Purchased = cloneTime(v.Purchased)
	c.AgeDays = cloneInt(v.AgeDays)
	c.PaybackDays = cloneInt(v.PaybackDays)
	c.Profit = cloneDec(v.Profit)
	c.ReturnMultiple = cloneDec(v.ReturnMultiple)
	c.AgeComputedOn = cloneTime(v.AgeComputedOn)
	return c
}

func cloneEntry(e inventory.SalesEntry) inventory.SalesEntry {
	c := e
	c.Cumulative = cloneDec(e.Cumulative)
	return c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDec(p *decimal.Decimal) *decimal.Decimal {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
