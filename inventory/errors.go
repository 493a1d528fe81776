/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All engine-level errors in one place. Storage implementations translate
  driver-level failures (unique constraint hits in particular) into these
  sentinels so the engine can branch with errors.Is.

ERROR CATEGORIES:
  1. Duplicate entry  - (stock number, date) collision; expected on re-import
  2. Batch failures   - the whole import/rollback unit aborted
  3. Storage failures - the store could not complete an operation

Lookup misses (unknown vehicle, unknown batch) are NOT errors: reads
return nil / empty results and rollback of an unknown batch returns zero
counts.
*/
package inventory

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateEntry is returned by stores when a sales entry for the
	// same (stock number, effective date) pair already exists. The
	// reconciler treats it as a silent skip.
	ErrDuplicateEntry = errors.New("duplicate sales entry for stock number and date")

	// ErrBatchFailed wraps any persistence failure that aborted an import
	// or rollback. The batch is rolled back in full; no counts survive.
	ErrBatchFailed = errors.New("batch operation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DuplicateEntryError carries the colliding key. Stores may return this
// instead of the bare sentinel when they know the key.
type DuplicateEntryError struct {
	StockNumber   int
	EffectiveDate time.Time
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("sales entry already exists for stock %d on %s",
		e.StockNumber, e.EffectiveDate.Format(DateLayout))
}

func (e *DuplicateEntryError) Unwrap() error { return ErrDuplicateEntry }

// IsDuplicateEntry reports whether err is a (stock, date) collision.
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}
