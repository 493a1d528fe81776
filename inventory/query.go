/*
query.go - Read-only views over the ledger

PURPOSE:
  Filtered vehicle listings, per-vehicle change dynamics (signed deltas,
  most recent first), and aggregate statistics over a caller-supplied
  subset. No write access.

ABSENCE IN AGGREGATES:
  An absent value contributes zero to Sum and is excluded from Count,
  Avg, Min, and Max. A fleet where no vehicle has a known profit reports
  Sum=0 and Avg/Min/Max absent.
*/
package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LISTINGS
// =============================================================================

// Filter narrows a vehicle listing. Zero values match everything; the
// default status set is {active}, with scrap opted in, mirroring how the
// yard reads its board.
type Filter struct {
	Make         string
	Model        string
	Statuses     []Status // explicit status set; overrides IncludeScrap
	IncludeScrap bool
}

func (f Filter) matches(v Vehicle) bool {
	if f.Make != "" && v.Make != f.Make {
		return false
	}
	if f.Model != "" && v.Model != f.Model {
		return false
	}
	statuses := f.Statuses
	if len(statuses) == 0 {
		statuses = []Status{StatusActive}
		if f.IncludeScrap {
			statuses = append(statuses, StatusScrap)
		}
	}
	for _, st := range statuses {
		if v.Status == st {
			return true
		}
	}
	return false
}

// ListVehicles returns vehicles matching the filter, ordered by stock
// number.
func (e *Engine) ListVehicles(ctx context.Context, f Filter) ([]Vehicle, error) {
	all, err := e.store.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Vehicle, 0, len(all))
	for _, v := range all {
		if f.matches(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockNumber < out[j].StockNumber })
	return out, nil
}

// GetVehicle returns one vehicle, or nil when the stock number is
// unknown.
func (e *Engine) GetVehicle(ctx context.Context, stockNumber int) (*Vehicle, error) {
	return e.store.GetVehicle(ctx, stockNumber)
}

// =============================================================================
// CHANGE DYNAMICS
// =============================================================================

// Direction marks which way a sales delta moved.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// ChangeDelta is one signed step in a vehicle's sales history.
type ChangeDelta struct {
	Date      string
	Amount    decimal.Decimal
	Direction Direction
}

// Signed renders the delta the way the board displays it: "+150", "-30",
// or "0".
func (c ChangeDelta) Signed() string {
	switch c.Direction {
	case DirectionUp:
		return "+" + c.Amount.String()
	case DirectionDown:
		return c.Amount.String() // decimal keeps the minus sign
	default:
		return "0"
	}
}

// ChangeHistory returns the vehicle's sales deltas most recent first. An
// unknown stock number yields an empty history.
func (e *Engine) ChangeHistory(ctx context.Context, stockNumber int) ([]ChangeDelta, error) {
	entries, err := e.store.EntriesByVehicle(ctx, stockNumber)
	if err != nil {
		return nil, err
	}
	// EntriesByVehicle is oldest-first; walk backwards.
	out := make([]ChangeDelta, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		en := entries[i]
		d := ChangeDelta{
			Date:      en.EffectiveDate.Format(DateLayout),
			Amount:    en.Change,
			Direction: DirectionFlat,
		}
		if en.Change.IsPositive() {
			d.Direction = DirectionUp
		} else if en.Change.IsNegative() {
			d.Direction = DirectionDown
		}
		out = append(out, d)
	}
	return out, nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Field names a vehicle metric aggregation can run over.
type Field string

const (
	FieldAge      Field = "age"
	FieldPayback  Field = "payback"
	FieldProfit   Field = "profit"
	FieldMultiple Field = "multiple"
	FieldCost     Field = "cost"
)

// AllFields is the full aggregation set in display order.
var AllFields = []Field{FieldAge, FieldPayback, FieldProfit, FieldMultiple, FieldCost}

// Stats summarizes one field over a vehicle subset. Count is the number
// of vehicles with a present value; Min/Max/Avg are nil when Count is
// zero. Sum always has a value (absent contributes zero).
type Stats struct {
	Count int
	Min   *decimal.Decimal
	Max   *decimal.Decimal
	Avg   *decimal.Decimal
	Sum   decimal.Decimal
}

// Aggregate computes per-field statistics over the given subset. Pure:
// callers filter first (typically via ListVehicles) and pass the result.
func Aggregate(vehicles []Vehicle, fields []Field) map[Field]Stats {
	out := make(map[Field]Stats, len(fields))
	for _, f := range fields {
		st := Stats{Sum: decimal.Zero}
		for i := range vehicles {
			val := fieldValue(&vehicles[i], f)
			if val == nil {
				continue
			}
			st.Count++
			st.Sum = st.Sum.Add(*val)
			if st.Min == nil || val.LessThan(*st.Min) {
				v := *val
				st.Min = &v
			}
			if st.Max == nil || val.GreaterThan(*st.Max) {
				v := *val
				st.Max = &v
			}
		}
		if st.Count > 0 {
			avg := st.Sum.Div(decimal.NewFromInt(int64(st.Count))).Round(2)
			st.Avg = &avg
		}
		out[f] = st
	}
	return out
}

func fieldValue(v *Vehicle, f Field) *decimal.Decimal {
	switch f {
	case FieldAge:
		return intDec(v.AgeDays)
	case FieldPayback:
		return intDec(v.PaybackDays)
	case FieldProfit:
		return v.Profit
	case FieldMultiple:
		return v.ReturnMultiple
	case FieldCost:
		return v.Cost
	}
	return nil
}

func intDec(n *int) *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := decimal.NewFromInt(int64(*n))
	return &d
}
