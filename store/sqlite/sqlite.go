/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements inventory.Store and inventory.TxStore using SQLite. The same
  patterns apply to PostgreSQL in a larger deployment - only minor SQL
  dialect differences.

KEY TABLES:
  vehicles:       One row per physical unit, keyed by stock number
  sales_entries:  Per-vehicle cumulative-sales time series
  import_batches: One row per import operation (provenance + rollback)

UNIQUENESS:
  idx_entries_stock_date enforces at most one sales entry per
  (stock_number, effective_date). Violations surface as
  inventory.ErrDuplicateEntry so the reconciler can skip idempotently.

TRANSACTIONS:
  WithTx wraps a unit of work in one BEGIN/COMMIT. The Store handed to
  the callback routes every statement through the open *sql.Tx, so reads
  inside the unit see its own writes and a callback error rolls the whole
  unit back. Import and rollback each run as one such unit.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery
  This matches the single-writer batch model: concurrent readers see
  either all of a batch or none of it.

VALUE ENCODING:
  Dates are stored as TEXT "2006-01-02"; decimals as TEXT via
  decimal.Decimal.String(); absent values as NULL.

USAGE:
  st, err := sqlite.New("./data/yardstock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()
  engine := inventory.NewEngine(st)
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/salvageops/yardstock/inventory"
)

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A ":memory:" database exists per connection; a second pool
	// connection would see an empty schema. One writer is plenty here.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Vehicles (one row per physical unit)
	CREATE TABLE IF NOT EXISTS vehicles (
		stock_number INTEGER PRIMARY KEY,
		make TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		year INTEGER,
		color TEXT NOT NULL DEFAULT '',
		mileage INTEGER,
		engine TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		cost TEXT,
		inventoried_on TEXT,
		breakeven_on TEXT,
		dismantled_on TEXT,
		purchased_on TEXT,
		age_days INTEGER,
		payback_days INTEGER,
		profit TEXT,
		return_multiple TEXT,
		age_computed_on TEXT,
		status TEXT NOT NULL,
		created_batch TEXT NOT NULL,
		last_import_batch TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vehicles_status ON vehicles(status);
	CREATE INDEX IF NOT EXISTS idx_vehicles_make_model ON vehicles(make, model);
	CREATE INDEX IF NOT EXISTS idx_vehicles_created_batch ON vehicles(created_batch);

	-- Sales entries (append-only time series per vehicle)
	CREATE TABLE IF NOT EXISTS sales_entries (
		id TEXT PRIMARY KEY,
		stock_number INTEGER NOT NULL,
		effective_date TEXT NOT NULL,
		cumulative_amount TEXT,
		change_amount TEXT NOT NULL,
		import_batch TEXT NOT NULL
	);

	-- CRITICAL: at most one entry per vehicle per date. The reconciler
	-- relies on this for idempotent re-imports.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_stock_date
		ON sales_entries(stock_number, effective_date);

	CREATE INDEX IF NOT EXISTS idx_entries_batch ON sales_entries(import_batch);
	CREATE INDEX IF NOT EXISTS idx_entries_stock_order
		ON sales_entries(stock_number, effective_date DESC);

	-- Import batches (provenance, ordering, rollback)
	CREATE TABLE IF NOT EXISTS import_batches (
		id TEXT PRIMARY KEY,
		effective_date TEXT NOT NULL,
		mode TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_effective_date
		ON import_batches(effective_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx so every statement
// helper can run directly or inside a WithTx unit.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS (inventory.TxStore)
// =============================================================================

// WithTx executes fn within one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every call through the open transaction. No locking:
// WithTx already holds the store's write lock.
type txStore struct {
	q *sql.Tx
}

func (ts *txStore) GetVehicle(ctx context.Context, stockNumber int) (*inventory.Vehicle, error) {
	return getVehicle(ctx, ts.q, stockNumber)
}

func (ts *txStore) PutVehicle(ctx context.Context, v inventory.Vehicle) error {
	return putVehicle(ctx, ts.q, v)
}

func (ts *txStore) DeleteVehicle(ctx context.Context, stockNumber int) error {
	return deleteVehicle(ctx, ts.q, stockNumber)
}

func (ts *txStore) ListVehicles(ctx context.Context) ([]inventory.Vehicle, error) {
	return listVehicles(ctx, ts.q)
}

func (ts *txStore) VehiclesCreatedBy(ctx context.Context, batchID string) ([]inventory.Vehicle, error) {
	return vehiclesCreatedBy(ctx, ts.q, batchID)
}

func (ts *txStore) AppendEntry(ctx context.Context, e inventory.SalesEntry) error {
	return appendEntry(ctx, ts.q, e)
}

func (ts *txStore) UpdateEntryChange(ctx context.Context, id string, change decimal.Decimal) error {
	return updateEntryChange(ctx, ts.q, id, change)
}

func (ts *txStore) EntriesByVehicle(ctx context.Context, stockNumber int) ([]inventory.SalesEntry, error) {
	return entriesByVehicle(ctx, ts.q, stockNumber)
}

func (ts *txStore) DeleteEntriesByBatch(ctx context.Context, batchID string) (int, error) {
	return deleteEntriesByBatch(ctx, ts.q, batchID)
}

func (ts *txStore) PutBatch(ctx context.Context, b inventory.Batch) error {
	return putBatch(ctx, ts.q, b)
}

func (ts *txStore) GetBatch(ctx context.Context, id string) (*inventory.Batch, error) {
	return getBatch(ctx, ts.q, id)
}

func (ts *txStore) ListBatches(ctx context.Context) ([]inventory.Batch, error) {
	return listBatches(ctx, ts.q)
}

func (ts *txStore) DeleteBatch(ctx context.Context, id string) error {
	return deleteBatch(ctx, ts.q, id)
}

// =============================================================================
// VEHICLE STORE (inventory.Store)
// =============================================================================

func (s *Store) GetVehicle(ctx context.Context, stockNumber int) (*inventory.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getVehicle(ctx, s.db, stockNumber)
}

func (s *Store) PutVehicle(ctx context.Context, v inventory.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putVehicle(ctx, s.db, v)
}

func (s *Store) DeleteVehicle(ctx context.Context, stockNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteVehicle(ctx, s.db, stockNumber)
}

func (s *Store) ListVehicles(ctx context.Context) ([]inventory.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listVehicles(ctx, s.db)
}

func (s *Store) VehiclesCreatedBy(ctx context.Context, batchID string) ([]inventory.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vehiclesCreatedBy(ctx, s.db, batchID)
}

const vehicleColumns = `stock_number, make, model, year, color, mileage, engine, location,
	cost, inventoried_on, breakeven_on, dismantled_on, purchased_on,
	age_days, payback_days, profit, return_multiple, age_computed_on,
	status, created_batch, last_import_batch`

func getVehicle(ctx context.Context, q queryer, stockNumber int) (*inventory.Vehicle, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE stock_number = ?`, stockNumber)

	v, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func putVehicle(ctx context.Context, q queryer, v inventory.Vehicle) error {
	query := `
		INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_number) DO UPDATE SET
			make = excluded.make,
			model = excluded.model,
			year = excluded.year,
			color = excluded.color,
			mileage = excluded.mileage,
			engine = excluded.engine,
			location = excluded.location,
			cost = excluded.cost,
			inventoried_on = excluded.inventoried_on,
			breakeven_on = excluded.breakeven_on,
			dismantled_on = excluded.dismantled_on,
			purchased_on = excluded.purchased_on,
			age_days = excluded.age_days,
			payback_days = excluded.payback_days,
			profit = excluded.profit,
			return_multiple = excluded.return_multiple,
			age_computed_on = excluded.age_computed_on,
			status = excluded.status,
			last_import_batch = excluded.last_import_batch
	`

	_, err := q.ExecContext(ctx, query,
		v.StockNumber, v.Make, v.Model, nullInt(v.Year), v.Color, nullInt(v.Mileage),
		v.Engine, v.Location, nullDec(v.Cost),
		nullDate(v.Inventoried), nullDate(v.Breakeven), nullDate(v.Dismantled), nullDate(v.Purchased),
		nullInt(v.AgeDays), nullInt(v.PaybackDays), nullDec(v.Profit), nullDec(v.ReturnMultiple),
		nullDate(v.AgeComputedOn), string(v.Status), v.CreatedBatch, v.LastImportBatch,
	)
	if err != nil {
		return fmt.Errorf("failed to save vehicle %d: %w", v.StockNumber, err)
	}
	return nil
}

func deleteVehicle(ctx context.Context, q queryer, stockNumber int) error {
	_, err := q.ExecContext(ctx, "DELETE FROM vehicles WHERE stock_number = ?", stockNumber)
	return err
}

func listVehicles(ctx context.Context, q queryer) ([]inventory.Vehicle, error) {
	return queryVehicles(ctx, q,
		`SELECT `+vehicleColumns+` FROM vehicles ORDER BY stock_number`)
}

func vehiclesCreatedBy(ctx context.Context, q queryer, batchID string) ([]inventory.Vehicle, error) {
	return queryVehicles(ctx, q,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE created_batch = ? ORDER BY stock_number`,
		batchID)
}

func queryVehicles(ctx context.Context, q queryer, query string, args ...any) ([]inventory.Vehicle, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []inventory.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVehicle(sc scanner) (*inventory.Vehicle, error) {
	var (
		v                                                    inventory.Vehicle
		year, mileage, ageDays, paybackDays                  sql.NullInt64
		cost, profit, multiple                               sql.NullString
		inventoried, breakeven, dismantled, purchased, ageOn sql.NullString
		status                                               string
	)

	err := sc.Scan(
		&v.StockNumber, &v.Make, &v.Model, &year, &v.Color, &mileage,
		&v.Engine, &v.Location, &cost,
		&inventoried, &breakeven, &dismantled, &purchased,
		&ageDays, &paybackDays, &profit, &multiple, &ageOn,
		&status, &v.CreatedBatch, &v.LastImportBatch,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vehicle: %w", err)
	}

	v.Year = intPtr(year)
	v.Mileage = intPtr(mileage)
	v.AgeDays = intPtr(ageDays)
	v.PaybackDays = intPtr(paybackDays)
	v.Cost = decPtr(cost)
	v.Profit = decPtr(profit)
	v.ReturnMultiple = decPtr(multiple)
	v.Inventoried = datePtr(inventoried)
	v.Breakeven = datePtr(breakeven)
	v.Dismantled = datePtr(dismantled)
	v.Purchased = datePtr(purchased)
	v.AgeComputedOn = datePtr(ageOn)
	v.Status = inventory.Status(status)
	return &v, nil
}

// =============================================================================
// SALES ENTRY STORE
// =============================================================================

func (s *Store) AppendEntry(ctx context.Context, e inventory.SalesEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func (s *Store) UpdateEntryChange(ctx context.Context, id string, change decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateEntryChange(ctx, s.db, id, change)
}

func (s *Store) EntriesByVehicle(ctx context.Context, stockNumber int) ([]inventory.SalesEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesByVehicle(ctx, s.db, stockNumber)
}

func (s *Store) DeleteEntriesByBatch(ctx context.Context, batchID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteEntriesByBatch(ctx, s.db, batchID)
}

func appendEntry(ctx context.Context, q queryer, e inventory.SalesEntry) error {
	query := `
		INSERT INTO sales_entries
		(id, stock_number, effective_date, cumulative_amount, change_amount, import_batch)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		e.ID, e.StockNumber, e.EffectiveDate.Format(inventory.DateLayout),
		nullDec(e.Cumulative), e.Change.String(), e.ImportBatch,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &inventory.DuplicateEntryError{
				StockNumber:   e.StockNumber,
				EffectiveDate: e.EffectiveDate,
			}
		}
		return fmt.Errorf("failed to append sales entry: %w", err)
	}
	return nil
}

func updateEntryChange(ctx context.Context, q queryer, id string, change decimal.Decimal) error {
	_, err := q.ExecContext(ctx,
		"UPDATE sales_entries SET change_amount = ? WHERE id = ?", change.String(), id)
	return err
}

func entriesByVehicle(ctx context.Context, q queryer, stockNumber int) ([]inventory.SalesEntry, error) {
	query := `
		SELECT id, stock_number, effective_date, cumulative_amount, change_amount, import_batch
		FROM sales_entries
		WHERE stock_number = ?
		ORDER BY effective_date ASC, id ASC
	`

	rows, err := q.QueryContext(ctx, query, stockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales entries: %w", err)
	}
	defer rows.Close()

	var entries []inventory.SalesEntry
	for rows.Next() {
		var (
			e          inventory.SalesEntry
			date       string
			cumulative sql.NullString
			change     string
		)
		if err := rows.Scan(&e.ID, &e.StockNumber, &date, &cumulative, &change, &e.ImportBatch); err != nil {
			return nil, fmt.Errorf("failed to scan sales entry: %w", err)
		}
		e.EffectiveDate, _ = time.Parse(inventory.DateLayout, date)
		e.Cumulative = decPtr(cumulative)
		e.Change = mustDec(change)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func deleteEntriesByBatch(ctx context.Context, q queryer, batchID string) (int, error) {
	result, err := q.ExecContext(ctx,
		"DELETE FROM sales_entries WHERE import_batch = ?", batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sales entries: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// =============================================================================
// IMPORT BATCH STORE
// =============================================================================

func (s *Store) PutBatch(ctx context.Context, b inventory.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putBatch(ctx, s.db, b)
}

func (s *Store) GetBatch(ctx context.Context, id string) (*inventory.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBatch(ctx, s.db, id)
}

func (s *Store) ListBatches(ctx context.Context) ([]inventory.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBatches(ctx, s.db)
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteBatch(ctx, s.db, id)
}

func putBatch(ctx context.Context, q queryer, b inventory.Batch) error {
	query := `
		INSERT INTO import_batches (id, effective_date, mode, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			effective_date = excluded.effective_date,
			mode = excluded.mode
	`

	_, err := q.ExecContext(ctx, query,
		b.ID, b.EffectiveDate.Format(inventory.DateLayout),
		string(b.Mode), b.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func getBatch(ctx context.Context, q queryer, id string) (*inventory.Batch, error) {
	var (
		b                   inventory.Batch
		date, mode, created string
	)
	err := q.QueryRowContext(ctx,
		"SELECT id, effective_date, mode, created_at FROM import_batches WHERE id = ?", id,
	).Scan(&b.ID, &date, &mode, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	b.EffectiveDate, _ = time.Parse(inventory.DateLayout, date)
	b.Mode = inventory.Mode(mode)
	b.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &b, nil
}

func listBatches(ctx context.Context, q queryer) ([]inventory.Batch, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, effective_date, mode, created_at FROM import_batches ORDER BY effective_date ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []inventory.Batch
	for rows.Next() {
		var (
			b                   inventory.Batch
			date, mode, created string
		)
		if err := rows.Scan(&b.ID, &date, &mode, &created); err != nil {
			return nil, err
		}
		b.EffectiveDate, _ = time.Parse(inventory.DateLayout, date)
		b.Mode = inventory.Mode(mode)
		b.CreatedAt, _ = time.Parse(time.RFC3339, created)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func deleteBatch(ctx context.Context, q queryer, id string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM import_batches WHERE id = ?", id)
	return err
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullDec(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return p.String()
}

func nullDate(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.Format(inventory.DateLayout)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func decPtr(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d := mustDec(s.String)
	return &d
}

func datePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(inventory.DateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
