package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/quota"
	"ms-invites/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Quota  *quota.Service
	Logger *logger.Logger
}

func NewHandler(svc *quota.Service, log *logger.Logger) *Handler {
	return &Handler{Quota: svc, Logger: log}
}

// RegisterSeller handles POST /api/sellers.
func (h *Handler) RegisterSeller(w http.ResponseWriter, r *http.Request) {
	var seller models.Seller
	if err := json.NewDecoder(r.Body).Decode(&seller); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	created, err := h.Quota.RegisterSeller(r.Context(), &seller)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RegisterSeller: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Could not register seller", err.Error()))
		return
	}

	h.Logger.Info("QUOTA", fmt.Sprintf("Seller %s (%s) registered", created.ID, created.Name))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Seller registered", created))
}

// AssignQuota handles PUT /api/sellers/{sellerId}/quota: the explicit
// administrative reassignment, the only path that mutates a quota ceiling.
func (h *Handler) AssignQuota(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerId")

	var req struct {
		EventID  string `json:"event_id"`
		Kind     string `json:"kind"`
		MaxCodes int    `json:"max_codes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid kind", err.Error()))
		return
	}

	if err := h.Quota.AssignQuota(r.Context(), req.EventID, sellerID, kind, req.MaxCodes); err != nil {
		h.Logger.Error("API", fmt.Sprintf("AssignQuota: %v", err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Could not assign quota", err.Error()))
		return
	}

	h.Logger.Info("QUOTA", fmt.Sprintf("Seller %s quota for %s/%s set to %d", sellerID, req.EventID, kind, req.MaxCodes))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Quota assigned", nil))
}

// Remaining handles GET /api/sellers/{sellerId}/quota?event_id=..&kind=..
func (h *Handler) Remaining(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerId")
	eventID := r.URL.Query().Get("event_id")
	kind, err := models.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid kind", err.Error()))
		return
	}

	remaining, err := h.Quota.Remaining(r.Context(), eventID, sellerID, kind)
	if err != nil {
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Could not read quota", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Remaining quota", map[string]int{"remaining": remaining}))
}
