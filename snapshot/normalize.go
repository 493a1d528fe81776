/*
normalize.go - Cell value normalization

Spreadsheet exports are loose about types: money arrives as "$1,250.00"
or a bare number, dates as several layouts or raw Excel serials, years
as "2012" or "2012.0". Everything here converts best-effort and reports
failure so the caller can degrade the field instead of the row.
*/
package snapshot

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salvageops/yardstock/inventory"
)

// dateLayouts are tried in order. The yard exports have shipped all of
// these over the years.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/2006",
	"01/02/2006",
	"2-Jan-06",
	time.RFC3339,
}

// excelEpoch is day zero of Excel's 1900 date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func (p *Parser) date(raw string, lineNo int, field string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d := inventory.DateOnly(t)
			return &d
		}
	}
	// Excel serial date (days since 1899-12-30).
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 && serial < 200000 {
		d := inventory.DateOnly(excelEpoch.Add(time.Duration(serial * 24 * float64(time.Hour))))
		return &d
	}
	p.logger.Debug("unparseable date, dropping field", "row", lineNo, "field", field, "value", raw)
	return nil
}

func (p *Parser) money(raw string, lineNo int, field string) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		p.logger.Debug("unparseable amount, dropping field", "row", lineNo, "field", field, "value", raw)
		return nil
	}
	return &d
}

func parseStockNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	// Numeric cells sometimes surface as floats ("10412.0").
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) {
		return int(f), true
	}
	return 0, false
}

func parseYear(raw string) (int, bool) {
	n, ok := parseStockNumber(raw)
	if !ok || n < 1900 || n > 2100 {
		return 0, false
	}
	return n, true
}
