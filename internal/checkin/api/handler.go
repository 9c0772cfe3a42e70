package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-invites/internal/checkin"
	"ms-invites/internal/logger"
	"ms-invites/internal/utils"
)

type Handler struct {
	Checkin *checkin.Service
	Logger  *logger.Logger
}

func NewHandler(svc *checkin.Service, log *logger.Logger) *Handler {
	return &Handler{Checkin: svc, Logger: log}
}

// Scan handles POST /api/checkin: {event_id, code} → admission snapshot or a
// rejection reason. Duplicate scans come back as 409, which the gate UI shows
// as "already admitted", not as a failure.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID string `json:"event_id"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Scan: failed to decode body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	result, err := h.Checkin.Checkin(r.Context(), req.EventID, req.Code)
	if err != nil {
		h.Logger.LogCheckin(req.Code, fmt.Sprintf("rejected: %v", err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Check-in rejected", err.Error()))
		return
	}

	h.Logger.LogCheckin(req.Code, fmt.Sprintf("admitted %s (%s)", result.BuyerName, result.Tier))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Check-in complete", result))
}

// Recent handles GET /api/checkin/recent?event_id=...&limit=20 for the gate
// UI's recent-admissions list.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("event_id is required", ""))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.Checkin.Recent(r.Context(), eventID, limit)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Recent: %v", err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Could not list recent check-ins", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Recent check-ins", results))
}
