package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

var purchaseStatuses = map[string]bool{
	models.PurchasePendingPayment: true,
	models.PurchasePendingConfirm: true,
	models.PurchaseCompleted:      true,
	models.PurchaseRejected:       true,
	models.PurchaseRefunded:       true,
}

// PurchasesHandler serves the buyer side of the purchase lifecycle
type PurchasesHandler struct {
	purchases  *service.Purchases
	market     repository.MarketStore
	p2pAccount config.BankAccount
}

// NewPurchasesHandler creates a new PurchasesHandler instance
func NewPurchasesHandler(purchases *service.Purchases, market repository.MarketStore, p2pAccount config.BankAccount) *PurchasesHandler {
	return &PurchasesHandler{purchases: purchases, market: market, p2pAccount: p2pAccount}
}

// Create opens a purchase
// @Summary Purchase a content
// @Description Free contents complete immediately. Bank transfers (p2p) return the platform account.
// @Tags purchases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PurchaseCreateRequest true "Purchase"
// @Success 201 {object} dto.PurchaseCreateResponse
// @Failure 400 {object} dto.ErrorResponse "Own content or missing depositor name"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Content not found"
// @Failure 409 {object} dto.ErrorResponse "Already purchased or in progress"
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/purchases [post]
func (h *PurchasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.PurchaseCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", "content_id must be a valid UUID")
		return
	}

	p, err := h.purchases.Create(r.Context(), service.CreatePurchaseInput{
		BuyerID:       claims.UserID,
		ContentID:     contentID,
		Method:        req.PaymentMethod,
		DepositorName: req.DepositorName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := dto.PurchaseCreateResponse{Purchase: dto.NewPurchaseResponse(p)}
	if p.PaymentMethod == models.MethodP2P {
		resp.BankAccount = dto.NewBankAccountInfo(h.p2pAccount)
	}
	utils.WriteJSONResponse(w, http.StatusCreated, resp)
}

// Deposit reports that a bank transfer was sent
// @Summary Report a bank transfer
// @Tags purchases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Purchase ID"
// @Param request body dto.DepositRequest false "Depositor name"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /api/purchases/{id}/deposit [post]
func (h *PurchasesHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dto.DepositRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	p, err := h.purchases.ReportDeposit(r.Context(), claims.UserID, id, req.DepositorName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// Cancel abandons an unpaid purchase
// @Summary Cancel a purchase
// @Tags purchases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Purchase ID"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Invalid status transition"
// @Router /api/purchases/{id}/cancel [post]
func (h *PurchasesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.purchases.Cancel(r.Context(), claims.UserID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// List returns the caller's purchases
// @Summary List my purchases
// @Tags purchases
// @Produce json
// @Security BearerAuth
// @Param status query string false "purchase status"
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.PurchaseListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/purchases [get]
func (h *PurchasesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter, ok := purchaseFilter(w, r)
	if !ok {
		return
	}
	filter.BuyerID = &claims.UserID
	writePurchaseList(w, r, h.market, filter)
}

// Get returns one purchase visible to the caller
// @Summary Get a purchase
// @Tags purchases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Purchase ID"
// @Success 200 {object} dto.PurchaseResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/purchases/{id} [get]
func (h *PurchasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.purchases.Get(r.Context(), claims.UserID, claims.IsAdmin(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPurchaseResponse(p))
}

// purchaseFilter reads ?status&limit&offset
func purchaseFilter(w http.ResponseWriter, r *http.Request) (repository.PurchaseFilter, bool) {
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return repository.PurchaseFilter{}, false
	}
	filter := repository.PurchaseFilter{Limit: limit, Offset: offset}
	if status := r.URL.Query().Get("status"); status != "" {
		if !purchaseStatuses[status] {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid status", "unknown purchase status")
			return repository.PurchaseFilter{}, false
		}
		filter.Statuses = []string{status}
	}
	return filter, true
}

func writePurchaseList(w http.ResponseWriter, r *http.Request, market repository.MarketStore, filter repository.PurchaseFilter) {
	items, total, err := market.ListPurchases(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.PurchaseListResponse{
		Purchases:  dto.NewPurchaseResponses(items),
		Pagination: dto.Pagination{Total: total, Limit: filter.Limit, Offset: filter.Offset},
	})
}
