package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/metrics"
	"STUDYHUB_BACK-END/internal/payments"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

// maxWebhookBytes caps webhook bodies
const maxWebhookBytes = 1 << 20

// PaymentsHandler serves gateway confirmation and webhooks
type PaymentsHandler struct {
	payments      *service.Payments
	webhookSecret string
	now           func() time.Time
}

// NewPaymentsHandler creates a new PaymentsHandler instance
func NewPaymentsHandler(payments *service.Payments, portOneWebhookSecret string) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, webhookSecret: portOneWebhookSecret, now: time.Now}
}

// ConfirmToss confirms a Toss payment after the checkout redirect
// @Summary Confirm a Toss payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.TossConfirmRequest true "Toss redirect parameters"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 400 {object} dto.ErrorResponse "Amount mismatch"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 402 {object} dto.ErrorResponse "Payment failed"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/payments/toss/confirm [post]
func (h *PaymentsHandler) ConfirmToss(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.TossConfirmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.payments.ConfirmToss(r.Context(), claims.UserID, req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// CompletePortOne verifies a PortOne payment after the checkout
// @Summary Complete a PortOne payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PortOneCompleteRequest true "PortOne payment id (the order id)"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 400 {object} dto.ErrorResponse "Amount mismatch"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 402 {object} dto.ErrorResponse "Payment failed"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/payments/portone/complete [post]
func (h *PaymentsHandler) CompletePortOne(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.PortOneCompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.payments.CompletePortOne(r.Context(), claims.UserID, req.PaymentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// PortOneWebhook receives Standard Webhooks signed deliveries from PortOne
// @Summary PortOne webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookAckResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse "Invalid signature"
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/webhooks/portone [post]
func (h *PaymentsHandler) PortOneWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := readWebhookBody(w, r)
	if !ok {
		return
	}

	if err := payments.VerifyStandardWebhook(h.webhookSecret, r.Header, body, h.now()); err != nil {
		metrics.RecordWebhook("portone", "unverified")
		log.WithError(err).Warn("portone webhook rejected")
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "invalid webhook signature")
		return
	}

	if err := h.payments.HandlePortOneWebhook(r.Context(), r.Header.Get(payments.HeaderWebhookID), body); err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.WebhookAckResponse{Received: true})
}

// TossWebhook receives Toss payment status changes
// @Summary Toss webhook
// @Description Authenticity is established by re-fetching the payment from Toss
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} dto.WebhookAckResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse "Payment could not be verified"
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/webhooks/toss [post]
func (h *PaymentsHandler) TossWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := readWebhookBody(w, r)
	if !ok {
		return
	}

	if err := h.payments.HandleTossWebhook(r.Context(), body); err != nil {
		if errors.Is(err, service.ErrWebhookUnverified) {
			log.WithError(err).Warn("toss webhook rejected")
		}
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.WebhookAckResponse{Received: true})
}

func readWebhookBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", "could not read body")
		return nil, false
	}
	return body, true
}
