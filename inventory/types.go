/*
Package inventory provides the core stock ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking a
  salvage-yard inventory: vehicles acquired whole, sold off in pieces over
  time, and eventually scrapped. It reconciles periodic spreadsheet
  snapshots against persisted records, maintains a per-vehicle cumulative
  sales time series, and derives the financial metrics the business runs
  on (profit, return multiple, payback period, holding age).

KEY CONCEPTS IN THIS FILE (types.go):
  - Vehicle:    One physical unit, keyed by its immutable stock number
  - SalesEntry: One point in a vehicle's cumulative-sales time series
  - Batch:      One import operation, tagging every record it touches
  - Row:        A parsed snapshot row handed to the reconciler

DESIGN PRINCIPLES:
  1. Absence is explicit: optional fields are pointers, never sentinel
     zeros. An unknown profit is nil, not 0.
  2. Precision: money uses decimal.Decimal, never float64.
  3. Derived fields (age, payback, profit, multiple) are recomputed from
     current state by pure functions; imports never set them directly.
  4. SalesEntry rows are append-only per vehicle; the only mutation is
     change re-derivation when an earlier-dated entry arrives late.

SEE ALSO:
  - metrics.go:   Pure derivation functions
  - merge.go:     Blank-skip field merge rules
  - reconcile.go: Snapshot import engine
  - rollback.go:  Batch deletion and recompute sweep
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IMPORT MODE AND STATUS
// =============================================================================

// Mode selects which snapshot schema an import carries.
type Mode string

const (
	// ModeFull is the complete yard export: descriptive attributes,
	// lifecycle dates, cost, and the cumulative sales figure.
	ModeFull Mode = "full"

	// ModePartial is the condition-survey export: stock number plus
	// color, mileage, and engine only. Never touches financial data.
	ModePartial Mode = "partial"
)

// Status is a vehicle's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive" // manual override, never set by import
	StatusScrap    Status = "scrap"    // derived from a dismantled date
)

// BatchIDLayout is the timestamp token format used for batch identifiers.
const BatchIDLayout = "2006-01-02 15:04:05"

// DateLayout is the storage format for date-only values.
const DateLayout = "2006-01-02"

// =============================================================================
// VEHICLE
// =============================================================================

// Vehicle is one physical unit in stock. StockNumber is unique and
// immutable once created; derived fields are only ever written by the
// recompute paths.
type Vehicle struct {
	StockNumber int

	// Descriptive attributes.
	Make     string
	Model    string
	Year     *int
	Color    string
	Mileage  *int // digits-only, normalized on import
	Engine   string
	Location string
	Cost     *decimal.Decimal

	// Lifecycle dates (date-only).
	Inventoried *time.Time
	Breakeven   *time.Time
	Dismantled  *time.Time
	Purchased   *time.Time

	// Derived fields. Never set from import rows.
	AgeDays        *int
	PaybackDays    *int
	Profit         *decimal.Decimal
	ReturnMultiple *decimal.Decimal
	AgeComputedOn  *time.Time

	Status Status

	// Provenance.
	CreatedBatch    string // batch that first created this vehicle
	LastImportBatch string // batch that last touched it
}

// =============================================================================
// SALES ENTRY
// =============================================================================

// SalesEntry is one point in a vehicle's cumulative-sales time series.
// At most one entry exists per (StockNumber, EffectiveDate); the storage
// layer enforces this.
type SalesEntry struct {
	ID            string
	StockNumber   int
	EffectiveDate time.Time
	Cumulative    *decimal.Decimal // total sales as of EffectiveDate; absent in degraded rows
	Change        decimal.Decimal  // delta from the chronological predecessor
	ImportBatch   string
}

// =============================================================================
// IMPORT BATCH
// =============================================================================

// Batch records one import operation. The ID doubles as the provenance
// tag on every vehicle and sales entry the import touched.
type Batch struct {
	ID            string
	EffectiveDate time.Time
	Mode          Mode
	CreatedAt     time.Time
}

// =============================================================================
// SNAPSHOT ROW
// =============================================================================

// Row is a parsed snapshot row as handed to the reconciler. Partial-mode
// rows carry only StockNumber, Color, Mileage, and Engine; all other
// fields are zero.
type Row struct {
	StockNumber int

	Make     string
	Model    string
	Year     *int
	Color    string
	Mileage  string // raw; the reconciler strips non-digits
	Engine   string
	Location string
	Cost     *decimal.Decimal

	Inventoried *time.Time
	Breakeven   *time.Time
	Dismantled  *time.Time
	Purchased   *time.Time

	Sales *decimal.Decimal // cumulative sales as of the batch date
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// ImportResult reports what a snapshot import changed.
type ImportResult struct {
	BatchID           string
	VehiclesAdded     int
	VehiclesUpdated   int
	SalesEntriesAdded int
	RowsSkipped       int // below the stock-number floor
}

// RollbackResult reports what a batch rollback removed.
type RollbackResult struct {
	VehiclesDeleted     int
	SalesEntriesDeleted int
	Recomputed          bool // true when the deleted batch was the latest
}

// =============================================================================
// DATE HELPERS
// =============================================================================

// DateOnly truncates t to midnight UTC. All effective dates and lifecycle
// dates are stored at day granularity.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two times fall on the same UTC day.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
