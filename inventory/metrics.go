/*
metrics.go - Pure derivation functions for vehicle financials

PURPOSE:
  Every derived field on a Vehicle (age, payback, profit, return multiple)
  is a pure function of the vehicle's stored fields and its sales history.
  Nothing here touches storage; callers persist the results.

ABSENCE RULES:
  Each function returns nil when its inputs are insufficient:
  - AgeDays:        nil without an inventoried date
  - PaybackDays:    nil unless both breakeven and inventoried are set
  - Profit:         nil without a cost or without any sales history
  - ReturnMultiple: nil under the same conditions, and nil (not infinite)
                    when cost is zero

  Nil must propagate: aggregation excludes absent values from averages and
  treats them as zero in sums (see query.go).
*/
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgeDays returns whole days elapsed since the inventoried date, or nil
// if the vehicle has no inventoried date.
func AgeDays(inventoried *time.Time, today time.Time) *int {
	if inventoried == nil {
		return nil
	}
	days := int(DateOnly(today).Sub(DateOnly(*inventoried)).Hours() / 24)
	return &days
}

// PaybackDays returns days between inventoried and breakeven, or nil if
// either date is absent. Negative values are possible when the source
// dates are inconsistent; they are preserved, not clamped.
func PaybackDays(breakeven, inventoried *time.Time) *int {
	if breakeven == nil || inventoried == nil {
		return nil
	}
	days := int(DateOnly(*breakeven).Sub(DateOnly(*inventoried)).Hours() / 24)
	return &days
}

// Profit returns latest cumulative sales minus cost, or nil when cost or
// the cumulative figure is absent.
func Profit(cost, latestCumulative *decimal.Decimal) *decimal.Decimal {
	if cost == nil || latestCumulative == nil {
		return nil
	}
	p := latestCumulative.Sub(*cost)
	return &p
}

// ReturnMultiple returns cumulative/cost rounded to two decimal places.
// A zero cost yields nil, not a division error.
func ReturnMultiple(cost, latestCumulative *decimal.Decimal) *decimal.Decimal {
	if cost == nil || latestCumulative == nil || cost.IsZero() {
		return nil
	}
	m := latestCumulative.Div(*cost).Round(2)
	return &m
}

// LatestEntry returns the entry with the maximum effective date, breaking
// date ties by highest ID so repeated calls pick the same entry. Returns
// nil for an empty history.
func LatestEntry(entries []SalesEntry) *SalesEntry {
	var latest *SalesEntry
	for i := range entries {
		e := &entries[i]
		if latest == nil ||
			e.EffectiveDate.After(latest.EffectiveDate) ||
			(e.EffectiveDate.Equal(latest.EffectiveDate) && e.ID > latest.ID) {
			latest = e
		}
	}
	return latest
}

// LatestCumulative returns the cumulative amount of the latest entry that
// carries one. Entries with an absent cumulative figure are transparent:
// they never mask an older real value.
func LatestCumulative(entries []SalesEntry) *decimal.Decimal {
	var latest *SalesEntry
	for i := range entries {
		e := &entries[i]
		if e.Cumulative == nil {
			continue
		}
		if latest == nil || after(e, latest) {
			latest = e
		}
	}
	if latest == nil {
		return nil
	}
	return latest.Cumulative
}

func after(a, b *SalesEntry) bool {
	if !a.EffectiveDate.Equal(b.EffectiveDate) {
		return a.EffectiveDate.After(b.EffectiveDate)
	}
	return a.ID > b.ID
}

// ChangeAmount derives an entry's delta from its chronological
// predecessor's cumulative amount. With no predecessor the cumulative
// figure itself is the change; with no cumulative figure the change is
// zero.
func ChangeAmount(cumulative, previousCumulative *decimal.Decimal) decimal.Decimal {
	if cumulative == nil {
		return decimal.Zero
	}
	if previousCumulative == nil {
		return *cumulative
	}
	return cumulative.Sub(*previousCumulative)
}

// RecomputeFinancials rewrites the vehicle's profit, return multiple, and
// payback from its current fields and sales history.
func RecomputeFinancials(v *Vehicle, entries []SalesEntry) {
	latest := LatestCumulative(entries)
	v.Profit = Profit(v.Cost, latest)
	v.ReturnMultiple = ReturnMultiple(v.Cost, latest)
	v.PaybackDays = PaybackDays(v.Breakeven, v.Inventoried)
}

// RecomputeAge rewrites the vehicle's age and stamps the computation day.
func RecomputeAge(v *Vehicle, today time.Time) {
	v.AgeDays = AgeDays(v.Inventoried, today)
	d := DateOnly(today)
	v.AgeComputedOn = &d
}
