/*
rollback.go - Batch deletion and recompute sweeps

PURPOSE:
  Undoes one import batch: removes every sales entry it created, removes
  vehicles it created that have no surviving sales history, and, when the
  batch held the ledger's most recent sales entries, recomputes every
  remaining vehicle's financials from the surviving series.

  "Most recent" is decided against the sales series, not the batch
  records. A later-dated batch that wrote no entries (a partial import)
  cannot make a vehicle's profit authoritative, so it must not shield
  the survivors from the recompute sweep either.

DELETION SEMANTIC:
  A vehicle is deleted only when BOTH hold:
    - it was created by the batch being rolled back (CreatedBatch tag)
    - no sales entries remain for it after the batch's entries are gone
  A vehicle that an earlier batch created and this batch merely updated
  keeps whatever merged state it has. Field-level undo of merges is not
  attempted; the recompute sweep restores the derived fields.

  Rolling back an unknown batch ID is a no-op with zero counts.
*/
package inventory

import (
	"context"
	"fmt"
	"time"
)

// RollbackBatch removes everything the batch created and recomputes
// derived fields when the batch held the latest sales entries. Atomic: a
// failure leaves the ledger untouched.
func (e *Engine) RollbackBatch(ctx context.Context, batchID string) (RollbackResult, error) {
	var res RollbackResult
	err := e.store.WithTx(ctx, func(s Store) error {
		b, err := s.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			e.logger.Info("rollback of unknown batch, nothing to do", "batch", batchID)
			return nil
		}

		wasLatest, err := batchHoldsLatestSales(ctx, s, batchID)
		if err != nil {
			return err
		}

		deleted, err := s.DeleteEntriesByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		res.SalesEntriesDeleted = deleted

		created, err := s.VehiclesCreatedBy(ctx, batchID)
		if err != nil {
			return err
		}
		for _, v := range created {
			remaining, err := s.EntriesByVehicle(ctx, v.StockNumber)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				continue // another batch holds data for it
			}
			if err := s.DeleteVehicle(ctx, v.StockNumber); err != nil {
				return err
			}
			res.VehiclesDeleted++
		}

		if err := s.DeleteBatch(ctx, batchID); err != nil {
			return err
		}

		if wasLatest {
			if err := recomputeSweep(ctx, s); err != nil {
				return err
			}
			res.Recomputed = true
		}
		return nil
	})
	if err != nil {
		e.logger.Error("rollback aborted", "batch", batchID, "error", err)
		return RollbackResult{}, fmt.Errorf("%w: rollback %s: %v", ErrBatchFailed, batchID, err)
	}

	e.logger.Info("rollback complete", "batch", batchID,
		"vehicles_deleted", res.VehiclesDeleted,
		"entries_deleted", res.SalesEntriesDeleted,
		"recomputed", res.Recomputed)
	return res, nil
}

// ListBatches returns all recorded import batches ordered by effective
// date, then ID.
func (e *Engine) ListBatches(ctx context.Context) ([]Batch, error) {
	return e.store.ListBatches(ctx)
}

// RecomputeAll rewrites profit, return multiple, and payback for every
// vehicle from its current sales history, in one transaction.
func (e *Engine) RecomputeAll(ctx context.Context) error {
	return e.store.WithTx(ctx, func(s Store) error {
		return recomputeSweep(ctx, s)
	})
}

// RefreshAges recomputes age for every vehicle at most once per day,
// guarded by the per-vehicle computation stamp.
func (e *Engine) RefreshAges(ctx context.Context) error {
	today := DateOnly(e.clock().UTC())
	return e.store.WithTx(ctx, func(s Store) error {
		vehicles, err := s.ListVehicles(ctx)
		if err != nil {
			return err
		}
		refreshed := 0
		for i := range vehicles {
			v := &vehicles[i]
			if v.AgeComputedOn != nil && SameDay(*v.AgeComputedOn, today) {
				continue
			}
			RecomputeAge(v, today)
			if err := s.PutVehicle(ctx, *v); err != nil {
				return err
			}
			refreshed++
		}
		if refreshed > 0 {
			e.logger.Info("ages refreshed", "vehicles", refreshed)
		}
		return nil
	})
}

// batchHoldsLatestSales reports whether the batch contributed the most
// recent entry in the sales series. A batch that wrote no entries never
// holds the latest sales; deleting it changes no financials.
func batchHoldsLatestSales(ctx context.Context, s Store, batchID string) (bool, error) {
	vehicles, err := s.ListVehicles(ctx)
	if err != nil {
		return false, err
	}
	var own, other *time.Time
	for _, v := range vehicles {
		entries, err := s.EntriesByVehicle(ctx, v.StockNumber)
		if err != nil {
			return false, err
		}
		for _, en := range entries {
			d := en.EffectiveDate
			if en.ImportBatch == batchID {
				if own == nil || d.After(*own) {
					own = &d
				}
			} else if other == nil || d.After(*other) {
				other = &d
			}
		}
	}
	return own != nil && (other == nil || !own.Before(*other)), nil
}

func recomputeSweep(ctx context.Context, s Store) error {
	vehicles, err := s.ListVehicles(ctx)
	if err != nil {
		return err
	}
	for i := range vehicles {
		v := &vehicles[i]
		entries, err := s.EntriesByVehicle(ctx, v.StockNumber)
		if err != nil {
			return err
		}
		RecomputeFinancials(v, entries)
		if err := s.PutVehicle(ctx, *v); err != nil {
			return err
		}
	}
	return nil
}
