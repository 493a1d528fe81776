/*
Package snapshot parses yard-management spreadsheet exports into
reconciler rows.

PURPOSE:
  The yard system exports two spreadsheet schemas:

  full:    one row per vehicle with descriptive attributes, lifecycle
           dates, cost, location coordinates (bin/xcoord), and the
           cumulative sales figure. Headers: vstockno, manufacturer,
           modelname, modelyear, Color, Odo Reading, Engine, bin,
           xcoord, cost, inventoried, breakevendate, dismantled,
           purchasedate, sales.

  partial: the condition survey - Stock #, Color, Odo Reading, Engine.

  The format is detected from the header row, not the filename. Both
  .xlsx (excelize) and legacy .xls (extrame/xls) files are supported.

DEGRADATION:
  A cell that fails to parse degrades that field to absent and logs the
  row; it never aborts the row. A row without a parseable stock number
  is dropped and logged. Only an unreadable workbook or an unknown
  header set is an error.
*/
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/salvageops/yardstock/inventory"
)

// ErrUnknownFormat is returned when the header row matches neither
// snapshot schema.
var ErrUnknownFormat = errors.New("unrecognized snapshot format")

// Result is a parsed snapshot: the rows plus the schema they came from.
type Result struct {
	Rows []inventory.Row
	Mode inventory.Mode
}

// Parser turns spreadsheet bytes into reconciler rows.
type Parser struct {
	logger *log.Logger
}

// New creates a parser with the given logger.
func New(logger *log.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads a spreadsheet (.xlsx or .xls, chosen by filename
// extension) and maps it to rows. The returned mode tells the caller
// which schema the file carried.
func (p *Parser) Parse(filename string, data []byte) (Result, error) {
	var (
		cells [][]string
		err   error
	)
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		cells, err = readXLSX(data)
	case strings.HasSuffix(strings.ToLower(filename), ".xls"):
		cells, err = readXLS(data)
	default:
		return Result{}, fmt.Errorf("%w: unsupported file type %q", ErrUnknownFormat, filename)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read workbook %q: %w", filename, err)
	}
	if len(cells) == 0 {
		return Result{}, fmt.Errorf("%w: %q is empty", ErrUnknownFormat, filename)
	}

	header := headerIndex(cells[0])
	mode, stockCol, err := detectMode(header)
	if err != nil {
		return Result{}, fmt.Errorf("%q: %w", filename, err)
	}

	result := Result{Mode: mode}
	for i, row := range cells[1:] {
		stock, ok := parseStockNumber(cell(row, stockCol))
		if !ok {
			p.logger.Debug("dropping row without stock number", "row", i+2)
			continue
		}
		result.Rows = append(result.Rows, p.mapRow(row, header, mode, stock, i+2))
	}

	p.logger.Info("snapshot parsed", "file", filename, "mode", mode, "rows", len(result.Rows))
	return result, nil
}

// Column names, lowercased. The full export spells "purchasedate" both
// ways depending on the yard system version.
const (
	colStockFull    = "vstockno"
	colStockPartial = "stock #"
	colMake         = "manufacturer"
	colModel        = "modelname"
	colYear         = "modelyear"
	colColor        = "color"
	colMileage      = "odo reading"
	colEngine       = "engine"
	colBin          = "bin"
	colXCoord       = "xcoord"
	colCost         = "cost"
	colInventoried  = "inventoried"
	colBreakeven    = "breakevendate"
	colDismantled   = "dismantled"
	colPurchased    = "purchasedate"
	colPurchasedAlt = "purchesdate"
	colSales        = "sales"
)

func detectMode(header map[string]int) (inventory.Mode, int, error) {
	if idx, ok := header[colStockFull]; ok {
		return inventory.ModeFull, idx, nil
	}
	if idx, ok := header[colStockPartial]; ok {
		return inventory.ModePartial, idx, nil
	}
	return "", 0, ErrUnknownFormat
}

func (p *Parser) mapRow(row []string, header map[string]int, mode inventory.Mode, stock, lineNo int) inventory.Row {
	get := func(name string) string {
		idx, ok := header[name]
		if !ok {
			return ""
		}
		return cell(row, idx)
	}

	r := inventory.Row{
		StockNumber: stock,
		Color:       strings.TrimSpace(get(colColor)),
		Mileage:     get(colMileage),
		Engine:      strings.TrimSpace(get(colEngine)),
	}
	if mode != inventory.ModeFull {
		return r
	}

	r.Make = strings.TrimSpace(get(colMake))
	r.Model = strings.TrimSpace(get(colModel))
	r.Location = composeLocation(get(colBin), get(colXCoord))

	if raw := get(colYear); raw != "" {
		if year, ok := parseYear(raw); ok {
			r.Year = &year
		} else {
			p.logger.Debug("unparseable model year, dropping field", "row", lineNo, "value", raw)
		}
	}
	r.Cost = p.money(get(colCost), lineNo, "cost")
	r.Sales = p.money(get(colSales), lineNo, "sales")
	r.Inventoried = p.date(get(colInventoried), lineNo, "inventoried")
	r.Breakeven = p.date(get(colBreakeven), lineNo, "breakevendate")
	r.Dismantled = p.date(get(colDismantled), lineNo, "dismantled")
	r.Purchased = p.date(get(colPurchased), lineNo, "purchasedate")
	if r.Purchased == nil {
		r.Purchased = p.date(get(colPurchasedAlt), lineNo, "purchesdate")
	}
	return r
}

// composeLocation joins the bin and x-coordinate the way the yard labels
// shelf positions: "B12.4". Either side alone stands on its own.
func composeLocation(bin, xcoord string) string {
	bin = strings.TrimSpace(bin)
	xcoord = strings.TrimSpace(xcoord)
	if bin != "" && xcoord != "" {
		return bin + "." + xcoord
	}
	if bin != "" {
		return bin
	}
	return xcoord
}

// headerIndex maps lowercased, trimmed header names to column indexes.
func headerIndex(headerRow []string) map[string]int {
	out := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, exists := out[name]; !exists {
			out[name] = i
		}
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// =============================================================================
// WORKBOOK READERS
// =============================================================================

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	rows := workbook.ReadAllCells(50000)
	return rows, nil
}
