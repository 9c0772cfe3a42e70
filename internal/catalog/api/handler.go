package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-invites/internal/catalog"
	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/payment"
	"ms-invites/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Catalog    *catalog.Service
	Calculator *payment.Calculator
	Logger     *logger.Logger
}

func NewHandler(cat *catalog.Service, calc *payment.Calculator, log *logger.Logger) *Handler {
	return &Handler{Catalog: cat, Calculator: calc, Logger: log}
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	created, err := h.Catalog.CreateEvent(r.Context(), &event)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Could not create event", err.Error()))
		return
	}

	h.Logger.Info("CATALOG", fmt.Sprintf("Event %s (%s) created", created.ID, created.Name))
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", created))
}

// GetEvent handles GET /api/events/{eventId}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	event, err := h.Catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Event not found", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event", event))
}

// ListEvents handles GET /api/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Catalog.ListEvents(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not list events", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events", events))
}

// Quote handles GET /api/quote?event_id=..&tier=..&quantity=..&method=..: a
// fee preview for the checkout screen, computed the same way confirmation
// will verify it.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	method := r.URL.Query().Get("method")
	tier, err := models.ParseTier(r.URL.Query().Get("tier"))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid tier", err.Error()))
		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity < 1 {
		quantity = 1
	}

	event, err := h.Catalog.GetEvent(r.Context(), eventID)
	if err != nil {
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Event not found", err.Error()))
		return
	}

	breakdown, err := h.Calculator.ComputeTotal(event.TierPrice(tier), quantity, method)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Could not compute quote", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Quote", breakdown))
}
