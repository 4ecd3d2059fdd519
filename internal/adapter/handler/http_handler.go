package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rl1809/barcode-registry/internal/core/domain"
	"github.com/rl1809/barcode-registry/internal/core/service"
	"github.com/rl1809/barcode-registry/internal/logger"
)

type HTTPHandler struct {
	registry BarcodeRegistry
	log      *logger.Logger
}

type BarcodeHTTPRequest struct {
	RequestID        string   `json:"request_id"`
	Value            string   `json:"value"`
	Quantity         *float64 `json:"quantity"`
	LinkedEntityID   string   `json:"linked_entity_id"`
	LinkedEntityKind string   `json:"linked_entity_kind"`
	OrganizationID   string   `json:"organization_id"`
	Global           bool     `json:"global"`
}

type LinkedEntityHTTPResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	PartnerKey string `json:"partner_key,omitempty"`
}

type BarcodeHTTPResponse struct {
	ID               string                    `json:"id"`
	Value            string                    `json:"value"`
	Quantity         int                       `json:"quantity"`
	LinkedEntityID   string                    `json:"linked_entity_id"`
	LinkedEntityKind string                    `json:"linked_entity_kind"`
	OrganizationID   string                    `json:"organization_id,omitempty"`
	Global           bool                      `json:"global"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
	LinkedEntity     *LinkedEntityHTTPResponse `json:"linked_entity,omitempty"`
}

type ErrorHTTPResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func NewHTTPHandler(registry BarcodeRegistry, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{registry: registry, log: log.With("handler", "http")}
}

// Register mounts every route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /api/barcodes", h.List)
	mux.HandleFunc("POST /api/barcodes", h.Create)
	mux.HandleFunc("GET /api/barcodes/lookup", h.Lookup)
	mux.HandleFunc("GET /api/barcodes/{id}", h.Get)
	mux.HandleFunc("PUT /api/barcodes/{id}", h.Update)
	mux.HandleFunc("DELETE /api/barcodes/{id}", h.Delete)
	mux.HandleFunc("GET /api/organizations/{id}/barcodes.csv", h.ExportCSV)
}

func (r BarcodeHTTPRequest) toDomain() domain.BarcodeRegistration {
	reg := domain.BarcodeRegistration{
		Value:            r.Value,
		LinkedEntityID:   r.LinkedEntityID,
		LinkedEntityKind: domain.EntityKind(r.LinkedEntityKind),
		OrganizationID:   r.OrganizationID,
		Global:           r.Global,
	}
	// an unusable quantity stays 0 and is reported by the validator
	if r.Quantity != nil {
		if q, err := domain.QuantityFromNumber(*r.Quantity); err == nil {
			reg.Quantity = q
		}
	}
	return reg
}

func toHTTPResponse(reg domain.BarcodeRegistration) BarcodeHTTPResponse {
	resp := BarcodeHTTPResponse{
		ID:               reg.ID,
		Value:            reg.Value,
		Quantity:         reg.Quantity,
		LinkedEntityID:   reg.LinkedEntityID,
		LinkedEntityKind: string(reg.LinkedEntityKind),
		OrganizationID:   reg.OrganizationID,
		Global:           reg.Global,
		CreatedAt:        reg.CreatedAt,
		UpdatedAt:        reg.UpdatedAt,
	}
	if reg.Linked != nil {
		resp.LinkedEntity = &LinkedEntityHTTPResponse{
			ID:         reg.Linked.ID,
			Kind:       string(reg.Linked.Kind),
			Name:       reg.Linked.Name,
			PartnerKey: reg.Linked.PartnerKey,
		}
	}
	return resp
}

func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BarcodeHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	reg, err := h.registry.Create(r.Context(), req.RequestID, req.toDomain())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHTTPResponse(*reg))
}

func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req BarcodeHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	candidate := req.toDomain()
	candidate.ID = r.PathValue("id")
	reg, err := h.registry.Update(r.Context(), candidate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHTTPResponse(*reg))
}

func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHTTPResponse(*reg))
}

func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List scopes to organization_id plus globals when given, then applies the
// remaining query parameters as filters.
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := make(map[string]string, len(query))
	for key := range query {
		params[key] = query.Get(key)
	}

	opts := domain.FilterOptions(params)
	if orgID := query.Get("organization_id"); orgID != "" {
		opts = append(opts, domain.OrganizationWithGlobals(orgID))
	}

	regs, err := h.registry.List(r.Context(), domain.NewScope(opts...))
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := make([]BarcodeHTTPResponse, 0, len(regs))
	for _, reg := range regs {
		resp = append(resp, toHTTPResponse(reg))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	if value == "" {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "missing value"})
		return
	}

	reg, err := h.registry.Lookup(r.Context(), r.URL.Query().Get("organization_id"), value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg.Summary())
}

func (h *HTTPHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")
	table, err := h.registry.Export(r.Context(), orgID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="barcodes-%s.csv"`, orgID))
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table); err != nil {
		h.log.Error("csv export write failed", "organization_id", orgID, "error", err)
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status, resp := httpError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, resp)
}

func httpError(err error) (int, ErrorHTTPResponse) {
	var verrs domain.ValidationErrors
	var derr *domain.Error

	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, ErrorHTTPResponse{Message: "duplicate request"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorHTTPResponse{Message: "not found"}
	case errors.Is(err, domain.ErrDanglingReference):
		return http.StatusNotFound, ErrorHTTPResponse{Message: err.Error()}
	case errors.As(err, &verrs):
		status := http.StatusUnprocessableEntity
		if len(verrs) == 1 && errors.Is(verrs[0], domain.ErrDuplicateValue) {
			status = http.StatusConflict
		}
		return status, ErrorHTTPResponse{Message: "validation failed", Errors: verrs.Fields()}
	case errors.As(err, &derr):
		status := http.StatusUnprocessableEntity
		if derr.Kind == domain.KindDuplicateValue {
			status = http.StatusConflict
		}
		return status, ErrorHTTPResponse{Message: "validation failed", Errors: map[string][]string{derr.Field: {derr.Message}}}
	default:
		return http.StatusInternalServerError, ErrorHTTPResponse{Message: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
