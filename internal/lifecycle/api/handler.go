package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-invites/internal/lifecycle"
	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Lifecycle *lifecycle.Service
	Logger    *logger.Logger
}

func NewHandler(lc *lifecycle.Service, log *logger.Logger) *Handler {
	return &Handler{Lifecycle: lc, Logger: log}
}

// GetInvite handles GET /api/events/{eventId}/invites/{code}.
func (h *Handler) GetInvite(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	code := chi.URLParam(r, "code")

	invite, err := h.Lifecycle.GetInvite(r.Context(), eventID, code)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetInvite: %v", err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Invite not found", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Invite", invite))
}

// Send handles POST /api/events/{eventId}/invites/{code}/send: marks the
// invite sent and emits the delivery request.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	code := chi.URLParam(r, "code")

	invite, err := h.Lifecycle.MarkSent(r.Context(), eventID, code)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Send: %v", err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Could not mark invite sent", err.Error()))
		return
	}

	h.Logger.LogInvite(code, "delivery requested")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Delivery requested", invite))
}

// ConfirmPayment handles POST /api/payment/confirm, the HTTP flavor of the
// inbound payment-confirmation contract (the Kafka consumer feeds the same
// service method).
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var conf models.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmPayment: failed to decode body: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	confirmationID := utils.GenerateConfirmationID()
	h.Logger.LogInvite(fmt.Sprintf("%v", conf.Codes),
		fmt.Sprintf("payment confirmation %s: method=%s amount=%.2f", confirmationID, conf.PaymentMethod, conf.ConfirmedAmount))

	invites, err := h.Lifecycle.ConfirmPayment(r.Context(), conf)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmPayment %s: %v", confirmationID, err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Payment confirmation rejected", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Payment confirmed", invites))
}

// Cancel handles POST /api/events/{eventId}/invites/{code}/cancel. The body's
// quota_refund flag picks revoked (slot returned) over cancelled (slot
// burned).
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	code := chi.URLParam(r, "code")

	var req struct {
		QuotaRefund bool `json:"quota_refund"`
	}
	if r.Body != nil {
		// An empty body means a plain cancellation.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	invite, err := h.Lifecycle.Cancel(r.Context(), eventID, code, req.QuotaRefund)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Cancel: %v", err))
		utils.WriteJSON(w, utils.StatusForError(err), utils.ErrorResponse("Could not cancel invite", err.Error()))
		return
	}

	h.Logger.LogInvite(code, fmt.Sprintf("retired as %s", invite.State))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Invite retired", invite))
}
