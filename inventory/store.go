/*
store.go - Persistence interfaces for the inventory ledger

PURPOSE:
  Defines the storage contract the engine depends on. Two implementations
  ship with the repo:
  - store/sqlite:           durable SQLite store (production)
  - inventory/store.Memory: in-memory store (tests, dev)

CONTRACT NOTES:
  - GetVehicle and GetBatch return (nil, nil) on a miss.
  - AppendEntry must fail with ErrDuplicateEntry when an entry for the
    same (stock number, effective date) already exists.
  - EntriesByVehicle returns entries ordered by effective date, then ID.
  - WithTx runs fn against a transactional view; if fn returns an error
    every write made inside it must be discarded. Import and rollback are
    each one WithTx unit, which is what makes batches all-or-nothing.
*/
package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the flat persistence surface for vehicles, sales entries, and
// import batches.
type Store interface {
	// Vehicles.
	GetVehicle(ctx context.Context, stockNumber int) (*Vehicle, error)
	PutVehicle(ctx context.Context, v Vehicle) error
	DeleteVehicle(ctx context.Context, stockNumber int) error
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	VehiclesCreatedBy(ctx context.Context, batchID string) ([]Vehicle, error)

	// Sales entries (append-only outside of rollback).
	AppendEntry(ctx context.Context, e SalesEntry) error
	UpdateEntryChange(ctx context.Context, id string, change decimal.Decimal) error
	EntriesByVehicle(ctx context.Context, stockNumber int) ([]SalesEntry, error)
	DeleteEntriesByBatch(ctx context.Context, batchID string) (int, error)

	// Import batches.
	PutBatch(ctx context.Context, b Batch) error
	GetBatch(ctx context.Context, id string) (*Batch, error)
	ListBatches(ctx context.Context) ([]Batch, error)
	DeleteBatch(ctx context.Context, id string) error
}

// TxStore is a Store that can scope work to a single atomic transaction.
type TxStore interface {
	Store

	// WithTx executes fn inside one transaction. The Store handed to fn
	// sees the transaction's own writes; a non-nil error from fn rolls
	// everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
