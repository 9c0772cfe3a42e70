package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-invites/internal/allocator"
	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/utils"
)

type Handler struct {
	Allocator *allocator.Service
	Logger    *logger.Logger
}

func NewHandler(alloc *allocator.Service, log *logger.Logger) *Handler {
	return &Handler{Allocator: alloc, Logger: log}
}

// Sale handles POST /api/sale: mint codes for a sale request and return the
// {code, price_due} pairs.
func (h *Handler) Sale(w http.ResponseWriter, r *http.Request) {
	var req models.SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Sale: failed to decode request body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	h.Logger.LogAllocation(req.EventID, req.Kind,
		fmt.Sprintf("sale request: seller=%s tier=%s quantity=%d", req.SellerID, req.Tier, req.Quantity))

	resp, _, err := h.Allocator.Allocate(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Sale: allocation failed: %v", err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Allocation failed", err.Error()))
		return
	}

	h.Logger.LogAllocation(req.EventID, req.Kind, fmt.Sprintf("allocated %d codes", len(resp.Codes)))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Codes allocated", resp))
}
