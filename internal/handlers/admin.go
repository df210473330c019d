package handlers

import (
	"net/http"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

// AdminHandler serves the operator console: manual purchase review,
// payout decisions and marketplace stats. Routes are mounted behind
// RequireRole(admin).
type AdminHandler struct {
	purchases *service.Purchases
	payouts   *service.Payouts
	market    repository.MarketStore
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(purchases *service.Purchases, payouts *service.Payouts, market repository.MarketStore) *AdminHandler {
	return &AdminHandler{purchases: purchases, payouts: payouts, market: market}
}

// ListPurchases lists purchases across the marketplace
// @Summary List purchases (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "purchase status, e.g. pending_confirm"
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.PurchaseListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/admin/purchases [get]
func (h *AdminHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	filter, ok := purchaseFilter(w, r)
	if !ok {
		return
	}
	writePurchaseList(w, r, h.market, filter)
}

// ConfirmPurchase completes a bank transfer purchase after checking the deposit
// @Summary Confirm a purchase (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Purchase ID"
// @Param request body dto.AdminNoteRequest false "Optional note"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /api/admin/purchases/{id}/confirm [post]
func (h *AdminHandler) ConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req dto.AdminNoteRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	p, err := h.purchases.Confirm(r.Context(), id, claims.UserID, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// RejectPurchase rejects a pending purchase
// @Summary Reject a purchase (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Purchase ID"
// @Param request body dto.AdminReasonRequest true "Reason shown to the buyer"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /api/admin/purchases/{id}/reject [post]
func (h *AdminHandler) RejectPurchase(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AdminReasonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.purchases.Reject(r.Context(), id, &claims.UserID, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// RefundPurchase refunds a completed purchase and claws back the creator share
// @Summary Refund a purchase (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Purchase ID"
// @Param request body dto.AdminNoteRequest false "Note"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /api/admin/purchases/{id}/refund [post]
func (h *AdminHandler) RefundPurchase(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AdminNoteRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	p, err := h.purchases.Refund(r.Context(), id, &claims.UserID, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// ListPayouts lists payout requests with unmasked bank accounts
// @Summary List payouts (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending|approved|rejected"
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.PayoutListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/admin/payouts [get]
func (h *AdminHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.PayoutPending, models.PayoutApproved, models.PayoutRejected:
	default:
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid status", "status must be pending, approved or rejected")
		return
	}

	items, total, err := h.market.ListPayouts(r.Context(), repository.PayoutFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.PayoutListResponse{
		Payouts:    payoutResponses(items, true),
		Pagination: dto.Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// ApprovePayout marks a payout as transferred
// @Summary Approve a payout (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payout ID"
// @Param request body dto.AdminNoteRequest false "Note"
// @Success 200 {object} dto.PayoutResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Payout already decided"
// @Router /api/admin/payouts/{id}/approve [post]
func (h *AdminHandler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AdminNoteRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	p, err := h.payouts.Approve(r.Context(), id, claims.UserID, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPayoutResponse(p, true))
}

// RejectPayout rejects a payout and returns the amount to the available balance
// @Summary Reject a payout (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payout ID"
// @Param request body dto.AdminReasonRequest true "Reason shown to the creator"
// @Success 200 {object} dto.PayoutResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Payout already decided"
// @Router /api/admin/payouts/{id}/reject [post]
func (h *AdminHandler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AdminReasonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.payouts.Reject(r.Context(), id, claims.UserID, req.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPayoutResponse(p, true))
}

// Stats returns marketplace totals
// @Summary Marketplace stats (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AdminStatsResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.market.MarketStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.AdminStatsResponse{
		PurchasesByStatus:  s.PurchasesByStatus,
		GrossRevenue:       s.GrossRevenue,
		PlatformFees:       s.PlatformFees,
		PendingPayoutTotal: s.PendingPayoutTotal,
		UserCount:          s.UserCount,
		CreatorCount:       s.CreatorCount,
		ContentCount:       s.ContentCount,
	})
}
