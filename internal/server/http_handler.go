package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rpattn/gridsync/internal/auth"
	"github.com/rpattn/gridsync/internal/domain"
	"github.com/rpattn/gridsync/internal/grid"

	"github.com/google/uuid"
)

// maxImportBytes bounds uploaded file size (same ceiling for CSV and XLSX).
const maxImportBytes = 16 << 20

type Handler struct {
	manager *SessionManager
}

// NewHTTPHandler exposes the grid surface under /tenants/{id}/....
func NewHTTPHandler(manager *SessionManager) http.Handler {
	return &Handler{manager: manager}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path)
	if len(segments) < 3 || segments[0] != "tenants" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	tenantID, err := uuid.Parse(segments[1])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid tenant id: %v", err), http.StatusBadRequest)
		return
	}
	if err := auth.EnforceTenantScope(r.Context(), tenantID); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	if segments[2] == "products" && len(segments) == 5 && segments[4] == "audit" {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleAudit(w, r, tenantID, segments[3])
		return
	}
	if segments[2] != "grid" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	actor := auth.ActorFromContext(r.Context())
	if header := strings.TrimSpace(r.Header.Get("X-Actor")); header != "" {
		actor = header
	}
	session, err := h.manager.Session(r.Context(), tenantID, actor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	action := strings.Join(segments[3:], "/")
	switch {
	case r.Method == http.MethodGet && action == "":
		h.handleState(w, session)
	case r.Method == http.MethodPost && action == "edits":
		h.handleEdit(w, r, session)
	case r.Method == http.MethodPost && action == "rows":
		h.handleAddRow(w, session)
	case r.Method == http.MethodDelete && action == "rows":
		h.handleDeleteSelected(w, r, session)
	case r.Method == http.MethodPost && action == "bulk":
		h.handleBulk(w, r, session)
	case r.Method == http.MethodPost && action == "selection":
		h.handleSelection(w, r, session)
	case r.Method == http.MethodPost && action == "search":
		h.handleSearch(w, r, session)
	case r.Method == http.MethodPost && action == "sort":
		h.handleSort(w, r, session)
	case r.Method == http.MethodPost && action == "undo":
		h.handleUndo(w, session)
	case r.Method == http.MethodPost && action == "redo":
		h.handleRedo(w, session)
	case r.Method == http.MethodPost && action == "import":
		h.handleImport(w, r, session)
	case r.Method == http.MethodPost && action == "import/save":
		h.handleSaveImported(w, r, session)
	case r.Method == http.MethodGet && action == "export":
		h.handleExport(w, r, session)
	case r.Method == http.MethodPost && action == "assist":
		h.handleAssist(w, r, session)
	case r.Method == http.MethodGet && action == "validations":
		h.handleValidations(w, session)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type gridStatePayload struct {
	Records          []domain.Product     `json:"records"`
	Selection        []uuid.UUID          `json:"selection"`
	Search           string               `json:"search,omitempty"`
	SortField        string               `json:"sortField,omitempty"`
	SortDirection    domain.SortDirection `json:"sortDirection"`
	CanUndo          bool                 `json:"canUndo"`
	CanRedo          bool                 `json:"canRedo"`
	AssistEnabled    bool                 `json:"assistEnabled"`
	ProvisionalCount int                  `json:"provisionalCount"`
}

func statePayload(session *grid.Session) gridStatePayload {
	sortField, sortDir := session.SortState()
	return gridStatePayload{
		Records:          session.Projection(),
		Selection:        session.Selection(),
		Search:           session.Search(),
		SortField:        sortField,
		SortDirection:    sortDir,
		CanUndo:          session.CanUndo(),
		CanRedo:          session.CanRedo(),
		AssistEnabled:    session.AssistEnabled(),
		ProvisionalCount: session.ProvisionalCount(),
	}
}

func (h *Handler) handleState(w http.ResponseWriter, session *grid.Session) {
	writeJSON(w, http.StatusOK, statePayload(session))
}

type editPayload struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	defer r.Body.Close()
	var payload editPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(payload.ID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid record id: %v", err), http.StatusBadRequest)
		return
	}
	if err := session.EditCell(id, payload.Field, payload.Value); err != nil {
		if errors.Is(err, grid.ErrRecordNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, statePayload(session))
}

func (h *Handler) handleAddRow(w http.ResponseWriter, session *grid.Session) {
	record, err := session.AddRow()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleDeleteSelected(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	removed, err := session.DeleteSelected(r.Context())
	if err != nil {
		// Partial failures still removed the confirmed rows; report both.
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"removed": removed,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

type bulkPayload struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	defer r.Body.Close()
	var payload bulkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	updated, err := session.BulkSetField(payload.Field, payload.Value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

type selectionPayload struct {
	IDs []string `json:"ids"`
}

func (h *Handler) handleSelection(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	defer r.Body.Close()
	var payload selectionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	ids := make([]uuid.UUID, 0, len(payload.IDs))
	for _, raw := range payload.IDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid record id %q: %v", raw, err), http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	session.SetSelection(ids)
	writeJSON(w, http.StatusOK, map[string]int{"selected": len(ids)})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	defer r.Body.Close()
	var payload struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	session.SetSearch(payload.Query)
	writeJSON(w, http.StatusOK, statePayload(session))
}

func (h *Handler) handleSort(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	defer r.Body.Close()
	var payload struct {
		Field string `json:"field"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := session.SortBy(payload.Field); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, statePayload(session))
}

func (h *Handler) handleUndo(w http.ResponseWriter, session *grid.Session) {
	if _, ok := session.Undo(); !ok {
		http.Error(w, "nothing to undo", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, statePayload(session))
}

func (h *Handler) handleRedo(w http.ResponseWriter, session *grid.Session) {
	if _, ok := session.Redo(); !ok {
		http.Error(w, "nothing to redo", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, statePayload(session))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		http.Error(w, fmt.Sprintf("invalid multipart form: %v", err), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	imported, err := session.ImportFile(header.Filename, file)
	if err != nil {
		if errors.Is(err, grid.ErrUnsupportedFormat) {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"imported":    imported,
		"provisional": session.ProvisionalCount(),
	})
}

func (h *Handler) handleSaveImported(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	saved, err := session.SaveImported(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": saved})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	stamp := time.Now().Format("2006-01-02")
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"products-%s.csv\"", stamp))
		if err := session.ExportCSV(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"products-%s.xlsx\"", stamp))
		if err := session.ExportXLSX(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	default:
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
	}
}

func (h *Handler) handleAssist(w http.ResponseWriter, r *http.Request, session *grid.Session) {
	defer r.Body.Close()
	var payload struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	session.ToggleAssist(payload.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"assistEnabled": session.AssistEnabled()})
}

func (h *Handler) handleValidations(w http.ResponseWriter, session *grid.Session) {
	results := session.Validations()
	payload := make(map[string][]domain.FieldValidation, len(results))
	for id, validations := range results {
		payload[id.String()] = validations
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID, rawProductID string) {
	productID, err := uuid.Parse(rawProductID)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid product id: %v", err), http.StatusBadRequest)
		return
	}
	actor := auth.ActorFromContext(r.Context())
	session, err := h.manager.Session(r.Context(), tenantID, actor)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	entries, err := session.AuditLog(r.Context(), productID)
	if err != nil {
		http.Error(w, fmt.Sprintf("list audit entries: %v", err), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
