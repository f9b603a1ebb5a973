package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/asset-pipeline/internal/delivery/http/request"
	"github.com/user/asset-pipeline/internal/delivery/http/response"
	"github.com/user/asset-pipeline/internal/entity"
	"github.com/user/asset-pipeline/internal/repository"
	"github.com/user/asset-pipeline/internal/usecase"
)

type Handler struct {
	catalog usecase.CatalogManager
}

func NewHandler(catalog usecase.CatalogManager) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) HandleSubmitDomain(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		h.writeJSONError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	d, err := h.catalog.SubmitDomain(r.Context(), req.UserID, req.Domain)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidDomain) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to submit domain", "domain", req.Domain, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, domainResponse(d))
}

func (h *Handler) HandleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteDomain(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Domain not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete domain", "domain_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetDomainStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	status, err := h.catalog.GetDomainStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Domain not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get domain status", "domain_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	counts := make(map[string]int, len(status.URLCounts))
	for s, n := range status.URLCounts {
		counts[string(s)] = n
	}
	h.writeJSON(w, http.StatusOK, response.DomainStatusResponse{
		Domain:    domainResponse(status.Domain),
		URLCounts: counts,
	})
}

func (h *Handler) HandleSeedURL(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req request.SeedURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.catalog.SeedURL(r.Context(), id, req.URL)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.writeJSONError(w, "Domain not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrInvalidURL):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrConflict):
		h.writeJSONError(w, "URL already registered for this domain", http.StatusConflict)
	case err != nil:
		slog.Error("Failed to seed URL", "domain_id", id, "url", req.URL, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	default:
		h.writeJSON(w, http.StatusCreated, urlResponse(u))
	}
}

func (h *Handler) HandleGetURLStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	u, err := h.catalog.GetURLStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "URL not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get URL status", "url_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, urlResponse(u))
}

func (h *Handler) HandleGetAssetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	status, err := h.catalog.GetAssetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Asset not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get asset status", "asset_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.AssetStatusResponse{
		ID:            status.Asset.ID,
		URLID:         status.Asset.URLID,
		AssetURL:      status.Asset.AssetURL,
		AssetType:     string(status.Asset.Type),
		Status:        string(status.Asset.Status),
		StorageKey:    status.Asset.StorageKey,
		RetryCount:    status.Asset.RetryCount,
		FailureReason: status.Asset.FailureReason,
		CreatedAt:     status.Asset.CreatedAt,
		UpdatedAt:     status.Asset.UpdatedAt,
	}
	if status.OCRResult != nil {
		resp.OCRResult = &response.OCRResultResponse{
			Content:    status.OCRResult.Content,
			Confidence: status.OCRResult.Confidence,
			CreatedAt:  status.OCRResult.CreatedAt,
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleTriggerSweep(w http.ResponseWriter, r *http.Request) {
	var req request.TriggerSweepRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	sweepID := h.catalog.TriggerSweep(req.DomainID)
	h.writeJSON(w, http.StatusAccepted, response.TriggerSweepResponse{
		Status:  "accepted",
		SweepID: sweepID,
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeJSONError(w, "Invalid id in path", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func domainResponse(d *entity.Domain) response.DomainResponse {
	return response.DomainResponse{
		ID:        d.ID,
		UserID:    d.UserID,
		Domain:    d.Domain,
		CreatedAt: d.CreatedAt,
	}
}

func urlResponse(u *entity.PageURL) response.URLResponse {
	return response.URLResponse{
		ID:            u.ID,
		DomainID:      u.DomainID,
		URL:           u.Address,
		Status:        string(u.Status),
		RetryCount:    u.RetryCount,
		FailureReason: u.FailureReason,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
