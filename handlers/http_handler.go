// Package handlers provides the JSON request layer of the medications catalog.
// Handlers decode loosely typed input, validate it at the boundary and
// translate catalog results into responses; they hold no catalog logic.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rxcatalog/medications-catalog/entities"
	"github.com/rxcatalog/medications-catalog/interfaces"
	"github.com/rxcatalog/medications-catalog/logging"
	"github.com/rxcatalog/medications-catalog/validation"
)

// User facing messages
const (
	MsgEnterMedicationName = "Please enter a medication name"
	MsgNoMedicationsFound  = "No medications found. Please try a different search term."
	MsgLookupFailed        = "Error fetching medication data. Please try again."
	MsgInvalidSearch       = "Invalid search term"
	MsgInvalidBody         = "Invalid request body"
	MsgListFailed          = "Error loading saved medications"
	MsgDeleted             = "Medication deleted successfully"
	MsgNotFound            = "Medication not found"
	MsgDeleteFailed        = "Error deleting medication"
	MsgInvalidID           = "Invalid medication id"
)

var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	catalog   interfaces.Catalog
	validator interfaces.DataValidator
	health    interfaces.HealthChecker
	startedAt time.Time
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(catalog interfaces.Catalog, validator interfaces.DataValidator, health interfaces.HealthChecker) *HTTPHandlerImpl {
	if validator == nil {
		validator = validation.NewDataValidator()
	}
	return &HTTPHandlerImpl{
		catalog:   catalog,
		validator: validator,
		health:    health,
		startedAt: time.Now(),
	}
}

// SearchResponse is the body of POST /search
type SearchResponse struct {
	Success     bool                       `json:"success"`
	Medications []entities.CandidateRecord `json:"medications"`
	Message     string                     `json:"message,omitempty"`
}

// BatchResponse is the body of POST /save_multiple
type BatchResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	SavedCount   int      `json:"savedCount"`
	SkippedCount int      `json:"skippedCount"`
	Errors       []string `json:"errors"`
}

// SavedResponse is the body of GET /saved
type SavedResponse struct {
	Records    []entities.MedicationRecord `json:"records"`
	Pagination entities.Pagination         `json:"pagination"`
	Search     string                      `json:"search"`
	Error      string                      `json:"error,omitempty"`
}

// MessageResponse is the body of save and delete endpoints
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// HealthResponse keeps a stable field order for /health
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Uptime        string         `json:"uptime"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// RespondWithJSON writes payload as JSON with the given status
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// Search looks up medicationName and returns the savable formulations
func (h *HTTPHandlerImpl) Search(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MedicationName string `json:"medicationName"`
	}
	if err := decodeBody(r, &body, func(form formValues) {
		body.MedicationName = form.Get("medicationName")
	}); err != nil {
		h.RespondWithJSON(w, http.StatusBadRequest, SearchResponse{Medications: emptyCandidates(), Message: MsgInvalidBody})
		return
	}

	term := strings.TrimSpace(body.MedicationName)
	if term == "" {
		h.RespondWithJSON(w, http.StatusBadRequest, SearchResponse{Medications: emptyCandidates(), Message: MsgEnterMedicationName})
		return
	}
	if err := h.validator.ValidateInput(term); err != nil {
		logging.Warn("Unusual user input", "medicationName", term, "error", err)
		h.RespondWithJSON(w, http.StatusBadRequest, SearchResponse{Medications: emptyCandidates(), Message: MsgInvalidSearch})
		return
	}

	candidates, err := h.catalog.Search(r.Context(), term)
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, entities.ErrValidation) {
			code = http.StatusBadRequest
		}
		h.RespondWithJSON(w, code, SearchResponse{Medications: emptyCandidates(), Message: MsgLookupFailed})
		return
	}

	if len(candidates) == 0 {
		h.RespondWithJSON(w, http.StatusOK, SearchResponse{Medications: emptyCandidates(), Message: MsgNoMedicationsFound})
		return
	}

	h.RespondWithJSON(w, http.StatusOK, SearchResponse{Success: true, Medications: candidates})
}

// Save persists one candidate
func (h *HTTPHandlerImpl) Save(w http.ResponseWriter, r *http.Request) {
	var (
		raw       json.RawMessage
		candidate entities.CandidateRecord
	)
	if err := decodeBody(r, &raw, func(form formValues) {
		candidate = entities.CandidateRecord{
			Rxcui:   form.Get("rxcui"),
			Name:    form.Get("name"),
			Synonym: form.Get("synonym"),
		}
	}); err != nil {
		h.RespondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: MsgInvalidBody})
		return
	}
	if len(raw) > 0 {
		candidate = coerceCandidate(raw)
	}

	result := h.catalog.Save(r.Context(), candidate)

	code := http.StatusInternalServerError
	switch result.Outcome {
	case entities.OutcomeSaved:
		code = http.StatusCreated
	case entities.OutcomeDuplicate:
		code = http.StatusConflict
	case entities.OutcomeInvalid:
		code = http.StatusBadRequest
	}

	h.RespondWithJSON(w, code, MessageResponse{
		Success: result.Success,
		Message: result.Message,
		ID:      result.ID,
	})
}

// SaveMultiple persists a batch with best-effort semantics. A batch that
// saved or skipped anything is a success even when some items failed.
func (h *HTTPHandlerImpl) SaveMultiple(w http.ResponseWriter, r *http.Request) {
	// Entries are decoded one by one so a malformed entry cannot sink its siblings
	var body struct {
		Medications []json.RawMessage `json:"medications"`
	}
	var formErr error
	if err := decodeBody(r, &body, func(form formValues) {
		// Forms carry the list as a JSON encoded field
		if raw := form.Get("medications"); raw != "" {
			formErr = json.Unmarshal([]byte(raw), &body.Medications)
		}
	}); err != nil || formErr != nil {
		h.RespondWithJSON(w, http.StatusBadRequest, BatchResponse{Message: MsgInvalidBody, Errors: []string{}})
		return
	}

	if len(body.Medications) == 0 {
		h.RespondWithJSON(w, http.StatusBadRequest, BatchResponse{Message: "No medications provided", Errors: []string{}})
		return
	}

	candidates := make([]entities.CandidateRecord, 0, len(body.Medications))
	for _, raw := range body.Medications {
		candidates = append(candidates, coerceCandidate(raw))
	}

	outcome := h.catalog.SaveMultiple(r.Context(), candidates)

	message := "Operation completed successfully"
	if !outcome.Success {
		message = "No medications were saved. " + strings.Join(outcome.Errors, ", ")
	}

	h.RespondWithJSON(w, http.StatusOK, BatchResponse{
		Success:      outcome.Success,
		Message:      message,
		SavedCount:   outcome.SavedCount,
		SkippedCount: outcome.SkippedCount,
		Errors:       outcome.Errors,
	})
}

// ListSaved serves one page of stored records
func (h *HTTPHandlerImpl) ListSaved(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := entities.ListQuery{
		Search: strings.TrimSpace(q.Get("search")),
		Page:   validation.ParsePage(q.Get("page")),
		Limit:  validation.ParseLimit(q.Get("limit")),
	}

	page := h.catalog.List(r.Context(), query)

	response := SavedResponse{
		Records:    page.Records,
		Pagination: page.Pagination,
		Search:     query.Search,
	}
	if response.Records == nil {
		response.Records = []entities.MedicationRecord{}
	}

	if page.Failed {
		response.Error = MsgListFailed
		h.RespondWithJSON(w, http.StatusInternalServerError, response)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, response)
}

// Delete removes a record by id
func (h *HTTPHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := h.validator.ValidateID(idParam)
	if err != nil {
		logging.Warn("Unusual user input", "id", idParam)
		h.RespondWithJSON(w, http.StatusBadRequest, MessageResponse{Message: MsgInvalidID})
		return
	}

	result, err := h.catalog.Delete(r.Context(), id)
	switch {
	case err != nil:
		h.RespondWithJSON(w, http.StatusInternalServerError, MessageResponse{Message: MsgDeleteFailed})
	case !result.Removed:
		h.RespondWithJSON(w, http.StatusNotFound, MessageResponse{Message: MsgNotFound})
	default:
		h.RespondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: MsgDeleted})
	}
}

// HealthCheck reports store health plus process information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, code := "healthy", map[string]any{}, http.StatusOK
	if h.health != nil {
		status, data, code = h.health.HealthCheck(r.Context())
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := time.Since(h.startedAt)

	h.RespondWithJSON(w, code, HealthResponse{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Uptime:        formatUptimeHuman(uptime),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	})
}

// formatUptimeHuman renders d as "1d 2h 3m 4s", dropping leading zero units
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// coerceCandidate reads one loosely typed entry. Fields that are neither
// strings nor numbers read as empty and fail validation downstream.
func coerceCandidate(raw json.RawMessage) entities.CandidateRecord {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return entities.CandidateRecord{}
	}
	return entities.CandidateRecord{
		Rxcui:   looseString(fields["rxcui"]),
		Name:    looseString(fields["name"]),
		Synonym: looseString(fields["synonym"]),
	}
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func emptyCandidates() []entities.CandidateRecord {
	return []entities.CandidateRecord{}
}

type formValues interface {
	Get(key string) string
}

// decodeBody fills dst from a JSON body, or calls fromForm for urlencoded
// and multipart bodies. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any, fromForm func(formValues)) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return err
		}
		fromForm(r.PostForm)
		return nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return err
		}
		fromForm(r.PostForm)
		return nil
	}

	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
