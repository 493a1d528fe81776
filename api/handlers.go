/*
handlers.go - HTTP API handlers for the yard inventory system

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Imports:
    POST   /api/imports                Upload and reconcile a snapshot
    GET    /api/imports                List import batches
    DELETE /api/imports/{id}           Roll back a batch

  Vehicles:
    GET    /api/vehicles               List vehicles (filterable)
    GET    /api/vehicles/{stock}       Get one vehicle
    GET    /api/vehicles/{stock}/changes Sales change history

  Stats:
    GET    /api/stats                  Aggregate metrics over the listing

  Admin:
    POST   /api/admin/recompute        Recompute all derived metrics
    POST   /api/admin/refresh-ages     Refresh age_days (once per day)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: reconciliation, rollback, queries
  - Parser: spreadsheet decoding

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, parser)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unreadable spreadsheets
  - 404: Unknown vehicle or batch
  - 500: Internal errors

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/salvageops/yardstock/inventory"
	"github.com/salvageops/yardstock/snapshot"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// maxUploadBytes caps snapshot uploads. The yard's exports are a few
// hundred kilobytes; 32 MB leaves generous headroom.
const maxUploadBytes = 32 << 20

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *inventory.Engine
	Parser *snapshot.Parser
	Logger *log.Logger
}

// NewHandler creates a new handler around the engine and parser.
func NewHandler(engine *inventory.Engine, parser *snapshot.Parser, logger *log.Logger) *Handler {
	return &Handler{Engine: engine, Parser: parser, Logger: logger}
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// CreateImport accepts a multipart upload with a spreadsheet and an
// effective date, reconciles it, and returns the counts. The snapshot
// mode is detected from the sheet's header row; an explicit mode field
// overrides the detection.
// POST /api/imports  (multipart fields: file, date=YYYY-MM-DD, mode=full|partial)
func (h *Handler) CreateImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart request", err)
		return
	}

	dateStr := r.FormValue("date")
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "Missing date field (use YYYY-MM-DD)", nil)
		return
	}
	effectiveDate, err := time.Parse(inventory.DateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	parsed, err := h.Parser.Parse(header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable snapshot", err)
		return
	}

	mode := parsed.Mode
	if raw := r.FormValue("mode"); raw != "" {
		switch inventory.Mode(raw) {
		case inventory.ModeFull, inventory.ModePartial:
			mode = inventory.Mode(raw)
		default:
			writeError(w, http.StatusBadRequest, "Invalid mode (use full or partial)", nil)
			return
		}
	}

	res, err := h.Engine.ImportSnapshot(r.Context(), parsed.Rows, effectiveDate, mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Import failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, ImportResponse{
		BatchID:           res.BatchID,
		VehiclesAdded:     res.VehiclesAdded,
		VehiclesUpdated:   res.VehiclesUpdated,
		SalesEntriesAdded: res.SalesEntriesAdded,
		RowsSkipped:       res.RowsSkipped,
	})
}

// ListImports returns all import batches, oldest first.
// GET /api/imports
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Engine.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list imports", err)
		return
	}

	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = toBatchDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteImport rolls back one batch. Batch IDs contain spaces, so the
// path segment arrives percent-encoded.
// DELETE /api/imports/{id}
func (h *Handler) DeleteImport(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch id", err)
		return
	}

	res, err := h.Engine.RollbackBatch(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Rollback failed", err)
		return
	}

	h.Logger.Info("batch rolled back", "batch", id,
		"vehicles_deleted", res.VehiclesDeleted,
		"entries_deleted", res.SalesEntriesDeleted)

	writeJSON(w, http.StatusOK, RollbackResponse{
		VehiclesDeleted:     res.VehiclesDeleted,
		SalesEntriesDeleted: res.SalesEntriesDeleted,
		Recomputed:          res.Recomputed,
	})
}

// =============================================================================
// VEHICLE HANDLERS
// =============================================================================

// ListVehicles returns vehicles matching the query filter.
// GET /api/vehicles?make=&model=&status=&include_scrap=
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	vehicles, err := h.Engine.ListVehicles(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list vehicles", err)
		return
	}

	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetVehicle returns one vehicle by stock number.
// GET /api/vehicles/{stock}
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	stock, err := strconv.Atoi(chi.URLParam(r, "stock"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stock number", err)
		return
	}

	v, err := h.Engine.GetVehicle(r.Context(), stock)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get vehicle", err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, "Vehicle not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleDTO(*v))
}

// GetChanges returns the vehicle's sales change history, most recent
// first.
// GET /api/vehicles/{stock}/changes
func (h *Handler) GetChanges(w http.ResponseWriter, r *http.Request) {
	stock, err := strconv.Atoi(chi.URLParam(r, "stock"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stock number", err)
		return
	}

	deltas, err := h.Engine.ChangeHistory(r.Context(), stock)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get change history", err)
		return
	}

	dtos := make([]ChangeDTO, len(deltas))
	for i, d := range deltas {
		dtos[i] = ChangeDTO{
			Date:      d.Date,
			Amount:    d.Amount.String(),
			Direction: string(d.Direction),
			Display:   d.Signed(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STATS HANDLER
// =============================================================================

// GetStats aggregates metrics over the filtered vehicle listing.
// GET /api/stats?fields=age,profit&make=&model=&status=
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f, err := filterFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	fields := inventory.AllFields
	if raw := q.Get("fields"); raw != "" {
		fields = nil
		for _, name := range strings.Split(raw, ",") {
			fields = append(fields, inventory.Field(strings.TrimSpace(name)))
		}
	}

	vehicles, err := h.Engine.ListVehicles(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list vehicles", err)
		return
	}

	stats := inventory.Aggregate(vehicles, fields)
	out := make(map[string]StatsDTO, len(stats))
	for field, s := range stats {
		out[string(field)] = toStatsDTO(s)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Recompute recalculates every vehicle's derived metrics.
// POST /api/admin/recompute
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.RecomputeAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Recompute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RefreshAges bumps age_days for vehicles not yet refreshed today.
// POST /api/admin/refresh-ages
func (h *Handler) RefreshAges(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.RefreshAges(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Age refresh failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func filterFromQuery(q url.Values) (inventory.Filter, error) {
	f := inventory.Filter{
		Make:  q.Get("make"),
		Model: q.Get("model"),
	}
	for _, raw := range q["status"] {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			f.Statuses = append(f.Statuses, inventory.Status(name))
		}
	}
	if raw := q.Get("include_scrap"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, err
		}
		f.IncludeScrap = v
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
