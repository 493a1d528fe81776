/*
merge.go - Blank-skip field merge rules

PURPOSE:
  Source spreadsheets are incomplete: a column left blank in one export
  must never erase a value captured by an earlier one. Every field merge
  goes through one of the small functions here so the rule is uniform and
  testable without storage.

RULES:
  - A field is overwritten only when the incoming value is non-empty.
  - Partial mode merges color/mileage/engine only.
  - Status is re-derived from the dismantled date on every full-mode
    merge; a manual "inactive" override survives unless the vehicle is
    dismantled.
  - Mileage is normalized to digits only before comparison ("123,456 mi"
    becomes 123456).
*/
package inventory

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CleanMileage strips every non-digit character from a raw odometer value
// and returns the remaining number, or nil when no digits survive.
func CleanMileage(raw string) *int {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return nil
	}
	return &n
}

// NewVehicleFromRow creates a vehicle from its first sighting. In partial
// mode only color/mileage/engine are populated; everything else stays
// unset until a full import fills it in.
func NewVehicleFromRow(row Row, mode Mode, batchID string) Vehicle {
	v := Vehicle{
		StockNumber:     row.StockNumber,
		Color:           row.Color,
		Mileage:         CleanMileage(row.Mileage),
		Engine:          row.Engine,
		Status:          StatusActive,
		CreatedBatch:    batchID,
		LastImportBatch: batchID,
	}
	if mode == ModeFull {
		v.Make = row.Make
		v.Model = row.Model
		v.Year = row.Year
		v.Location = row.Location
		v.Cost = row.Cost
		v.Inventoried = row.Inventoried
		v.Breakeven = row.Breakeven
		v.Dismantled = row.Dismantled
		v.Purchased = row.Purchased
		v.Status = DeriveStatus(v.Dismantled, v.Status)
	}
	return v
}

// MergeRow applies a snapshot row onto an existing vehicle under the
// blank-skip rule. Derived fields are untouched; the caller recomputes
// them after the batch is durably written.
func MergeRow(v *Vehicle, row Row, mode Mode) {
	mergeString(&v.Color, row.Color)
	mergeIntPtr(&v.Mileage, CleanMileage(row.Mileage))
	mergeString(&v.Engine, row.Engine)

	if mode != ModeFull {
		return
	}

	mergeString(&v.Make, row.Make)
	mergeString(&v.Model, row.Model)
	mergeIntPtr(&v.Year, row.Year)
	mergeString(&v.Location, row.Location)
	mergeDecPtr(&v.Cost, row.Cost)
	mergeDatePtr(&v.Inventoried, row.Inventoried)
	mergeDatePtr(&v.Breakeven, row.Breakeven)
	mergeDatePtr(&v.Dismantled, row.Dismantled)
	mergeDatePtr(&v.Purchased, row.Purchased)
	v.Status = DeriveStatus(v.Dismantled, v.Status)
}

// DeriveStatus maps a dismantled date to scrap. Without one, a manual
// inactive override is preserved and anything else is active.
func DeriveStatus(dismantled *time.Time, current Status) Status {
	if dismantled != nil {
		return StatusScrap
	}
	if current == StatusInactive {
		return StatusInactive
	}
	return StatusActive
}

func mergeString(dst *string, src string) {
	if strings.TrimSpace(src) != "" {
		*dst = src
	}
}

func mergeIntPtr(dst **int, src *int) {
	if src != nil {
		*dst = src
	}
}

func mergeDecPtr(dst **decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = src
	}
}

func mergeDatePtr(dst **time.Time, src *time.Time) {
	if src != nil {
		*dst = src
	}
}
