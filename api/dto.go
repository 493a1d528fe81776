/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP surface. These decouple the internal
  domain model from the external contract: absent domain values render
  as JSON null, dates as "2006-01-02" strings, money as decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/salvageops/yardstock/inventory"
)

// VehicleDTO represents a vehicle in API responses.
type VehicleDTO struct {
	StockNumber int     `json:"stock_number"`
	Make        string  `json:"make,omitempty"`
	Model       string  `json:"model,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Color       string  `json:"color,omitempty"`
	Mileage     *int    `json:"mileage,omitempty"`
	Engine      string  `json:"engine,omitempty"`
	Location    string  `json:"location,omitempty"`
	Cost        *string `json:"cost"`

	Inventoried *string `json:"inventoried,omitempty"`
	Breakeven   *string `json:"breakeven,omitempty"`
	Dismantled  *string `json:"dismantled,omitempty"`
	Purchased   *string `json:"purchased,omitempty"`

	AgeDays        *int    `json:"age_days"`
	PaybackDays    *int    `json:"payback_days"`
	Profit         *string `json:"profit"`
	ReturnMultiple *string `json:"return_multiple"`

	Status          string `json:"status"`
	LastImportBatch string `json:"last_import_batch,omitempty"`
}

func toVehicleDTO(v inventory.Vehicle) VehicleDTO {
	return VehicleDTO{
		StockNumber:     v.StockNumber,
		Make:            v.Make,
		Model:           v.Model,
		Year:            v.Year,
		Color:           v.Color,
		Mileage:         v.Mileage,
		Engine:          v.Engine,
		Location:        v.Location,
		Cost:            decString(v.Cost),
		Inventoried:     dateString(v.Inventoried),
		Breakeven:       dateString(v.Breakeven),
		Dismantled:      dateString(v.Dismantled),
		Purchased:       dateString(v.Purchased),
		AgeDays:         v.AgeDays,
		PaybackDays:     v.PaybackDays,
		Profit:          decString(v.Profit),
		ReturnMultiple:  decString(v.ReturnMultiple),
		Status:          string(v.Status),
		LastImportBatch: v.LastImportBatch,
	}
}

// BatchDTO represents an import batch.
type BatchDTO struct {
	ID            string `json:"id"`
	EffectiveDate string `json:"effective_date"`
	Mode          string `json:"mode"`
	CreatedAt     string `json:"created_at"`
}

func toBatchDTO(b inventory.Batch) BatchDTO {
	return BatchDTO{
		ID:            b.ID,
		EffectiveDate: b.EffectiveDate.Format(inventory.DateLayout),
		Mode:          string(b.Mode),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
}

// ImportResponse reports import counts.
type ImportResponse struct {
	BatchID           string `json:"batch_id"`
	VehiclesAdded     int    `json:"vehicles_added"`
	VehiclesUpdated   int    `json:"vehicles_updated"`
	SalesEntriesAdded int    `json:"sales_entries_added"`
	RowsSkipped       int    `json:"rows_skipped"`
}

// RollbackResponse reports rollback counts.
type RollbackResponse struct {
	VehiclesDeleted     int  `json:"vehicles_deleted"`
	SalesEntriesDeleted int  `json:"sales_entries_deleted"`
	Recomputed          bool `json:"recomputed"`
}

// ChangeDTO is one signed sales delta, most recent first in the list.
type ChangeDTO struct {
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Direction string `json:"direction"`
	Display   string `json:"display"`
}

// StatsDTO summarizes one aggregated field.
type StatsDTO struct {
	Count int     `json:"count"`
	Min   *string `json:"min"`
	Max   *string `json:"max"`
	Avg   *string `json:"avg"`
	Sum   string  `json:"sum"`
}

func toStatsDTO(s inventory.Stats) StatsDTO {
	return StatsDTO{
		Count: s.Count,
		Min:   decString(s.Min),
		Max:   decString(s.Max),
		Avg:   decString(s.Avg),
		Sum:   s.Sum.String(),
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func decString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(inventory.DateLayout)
	return &s
}
