/*
reconcile.go - Snapshot import engine

PURPOSE:
  Takes a batch of parsed snapshot rows plus one effective date and
  reconciles them against the ledger:

  1. Rows below the stock-number floor are skipped (source exports carry
     non-inventory stock numbers).
  2. Vehicles are created on first sighting or merged under the
     blank-skip rule (merge.go).
  3. Full-mode batches append one sales entry per vehicle for the batch
     date, idempotently: an existing (stock, date) entry is left alone.
     The change amount is derived from the chronological predecessor, and
     a later-dated successor already in the series gets its change
     re-derived so out-of-order arrival converges to the same series.
  4. Profit and return multiple are recomputed for every vehicle the
     batch touched (full mode only).

  The whole batch runs in one storage transaction: a persistence failure
  aborts it atomically and the caller sees zero counts.

BATCH IDENTITY:
  The batch ID is a timestamp token taken from the engine clock at import
  time. It tags every vehicle and entry the batch touches, which is what
  rollback.go keys on. When a second import lands inside the same
  wall-clock second its token is stepped forward until free, so every
  batch record keeps its own rollback provenance.
*/
package inventory

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultStockFloor is the minimum stock number considered real
// inventory. Source spreadsheets include legacy and placeholder numbers
// below it.
const DefaultStockFloor = 10400

// Engine reconciles snapshot imports against a ledger store and serves
// the read-side queries. It holds no mutable state of its own; all writes
// go through one WithTx unit per operation.
type Engine struct {
	store  TxStore
	floor  int
	clock  func() time.Time
	logger *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFloor overrides the stock-number floor.
func WithFloor(floor int) Option {
	return func(e *Engine) { e.floor = floor }
}

// WithClock overrides the time source (tests, replays).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine over the given store.
func NewEngine(store TxStore, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		floor:  DefaultStockFloor,
		clock:  time.Now,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ImportSnapshot reconciles one parsed snapshot against the ledger and
// returns what changed. The effective date applies to the whole batch.
// Any persistence failure rolls the entire batch back.
func (e *Engine) ImportSnapshot(ctx context.Context, rows []Row, effectiveDate time.Time, mode Mode) (ImportResult, error) {
	batchID := e.clock().UTC().Format(BatchIDLayout)
	effectiveDate = DateOnly(effectiveDate)

	var res ImportResult
	err := e.store.WithTx(ctx, func(s Store) error {
		// A prior import in the same second already owns this token. Step
		// forward until free rather than merging two batch records.
		for {
			existing, err := s.GetBatch(ctx, batchID)
			if err != nil {
				return err
			}
			if existing == nil {
				break
			}
			at, err := time.Parse(BatchIDLayout, batchID)
			if err != nil {
				return err
			}
			batchID = at.Add(time.Second).Format(BatchIDLayout)
		}
		res.BatchID = batchID

		// Vehicles the batch touched, in row order, for the recompute pass.
		touched := make([]int, 0, len(rows))
		seen := make(map[int]bool)

		for _, row := range rows {
			if row.StockNumber < e.floor {
				e.logger.Debug("skipping row below stock floor",
					"stock", row.StockNumber, "floor", e.floor)
				res.RowsSkipped++
				continue
			}

			v, err := s.GetVehicle(ctx, row.StockNumber)
			if err != nil {
				return err
			}
			if v == nil {
				nv := NewVehicleFromRow(row, mode, batchID)
				v = &nv
				res.VehiclesAdded++
			} else {
				MergeRow(v, row, mode)
				v.LastImportBatch = batchID
				res.VehiclesUpdated++
			}
			if err := s.PutVehicle(ctx, *v); err != nil {
				return err
			}
			if mode == ModeFull && !seen[row.StockNumber] {
				seen[row.StockNumber] = true
				touched = append(touched, row.StockNumber)
			}
		}

		if mode == ModeFull {
			for _, row := range rows {
				if row.StockNumber < e.floor || row.Sales == nil {
					continue
				}
				added, err := e.appendEntry(ctx, s, row, effectiveDate, batchID)
				if err != nil {
					return err
				}
				if added {
					res.SalesEntriesAdded++
				}
			}

			// Entries are durable inside the transaction; recompute the
			// financials for everything the batch touched.
			for _, stockNumber := range touched {
				if err := e.recomputeVehicle(ctx, s, stockNumber); err != nil {
					return err
				}
			}
		}

		return s.PutBatch(ctx, Batch{
			ID:            batchID,
			EffectiveDate: effectiveDate,
			Mode:          mode,
			CreatedAt:     e.clock().UTC(),
		})
	})
	if err != nil {
		e.logger.Error("import aborted", "batch", batchID, "error", err)
		return ImportResult{}, fmt.Errorf("%w: import %s: %v", ErrBatchFailed, batchID, err)
	}

	e.logger.Info("import complete", "batch", batchID, "mode", mode,
		"added", res.VehiclesAdded, "updated", res.VehiclesUpdated,
		"entries", res.SalesEntriesAdded, "skipped", res.RowsSkipped)
	return res, nil
}

// appendEntry adds the row's cumulative figure to the vehicle's series
// for the batch date. Returns false when an entry for that exact
// (vehicle, date) pair already exists.
func (e *Engine) appendEntry(ctx context.Context, s Store, row Row, effectiveDate time.Time, batchID string) (bool, error) {
	entries, err := s.EntriesByVehicle(ctx, row.StockNumber)
	if err != nil {
		return false, err
	}

	var prev, next *SalesEntry
	for i := range entries {
		en := &entries[i]
		if SameDay(en.EffectiveDate, effectiveDate) {
			// Idempotent re-import: existing entry wins, nothing changes.
			e.logger.Debug("sales entry exists, skipping",
				"stock", row.StockNumber, "date", effectiveDate.Format(DateLayout))
			return false, nil
		}
		if en.EffectiveDate.Before(effectiveDate) {
			if en.Cumulative != nil && (prev == nil || after(en, prev)) {
				prev = en
			}
		} else if next == nil || en.EffectiveDate.Before(next.EffectiveDate) {
			next = en
		}
	}

	entry := SalesEntry{
		ID:            uuid.NewString(),
		StockNumber:   row.StockNumber,
		EffectiveDate: effectiveDate,
		Cumulative:    row.Sales,
		ImportBatch:   batchID,
	}
	if prev != nil {
		entry.Change = ChangeAmount(row.Sales, prev.Cumulative)
	} else {
		// No predecessor: the delta is the figure itself.
		entry.Change = ChangeAmount(row.Sales, nil)
	}

	if err := s.AppendEntry(ctx, entry); err != nil {
		if IsDuplicateEntry(err) {
			// Raced with the unique index rather than our scan; same outcome.
			return false, nil
		}
		return false, err
	}

	// A later-dated entry now has a new chronological predecessor; its
	// change is re-derived so insertion order never shows in the series.
	if next != nil && row.Sales != nil {
		change := ChangeAmount(next.Cumulative, row.Sales)
		if !change.Equal(next.Change) {
			if err := s.UpdateEntryChange(ctx, next.ID, change); err != nil {
				return false, err
			}
		}
	}

	return true, nil
}

// recomputeVehicle reloads one vehicle and rewrites its derived
// financials from the current series.
func (e *Engine) recomputeVehicle(ctx context.Context, s Store, stockNumber int) error {
	v, err := s.GetVehicle(ctx, stockNumber)
	if err != nil || v == nil {
		return err
	}
	entries, err := s.EntriesByVehicle(ctx, stockNumber)
	if err != nil {
		return err
	}
	RecomputeFinancials(v, entries)
	return s.PutVehicle(ctx, *v)
}
