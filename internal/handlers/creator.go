package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

// CreatorHandler serves the creator dashboard: settings, balance, sales and payouts
type CreatorHandler struct {
	profiles  repository.ProfileStore
	creators  repository.CreatorStore
	market    repository.MarketStore
	payouts   *service.Payouts
	jwt       *config.JWTConfig
	minPayout int64
}

// NewCreatorHandler creates a new CreatorHandler instance
func NewCreatorHandler(
	profiles repository.ProfileStore,
	creators repository.CreatorStore,
	market repository.MarketStore,
	payouts *service.Payouts,
	jwt *config.JWTConfig,
	minPayout int64,
) *CreatorHandler {
	return &CreatorHandler{
		profiles:  profiles,
		creators:  creators,
		market:    market,
		payouts:   payouts,
		jwt:       jwt,
		minPayout: minPayout,
	}
}

// GetSettings returns the caller's creator settings
// @Summary Get creator settings
// @Tags creator
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CreatorSettingsResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Not a creator yet"
// @Router /api/creator/settings [get]
func (h *CreatorHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	settings, err := h.creators.GetCreatorSettings(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewCreatorSettingsResponse(settings))
}

// UpdateSettings creates or replaces the caller's creator settings.
// The first save promotes a plain user to creator and returns a fresh token.
// @Summary Save creator settings
// @Tags creator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatorSettingsRequest true "Creator settings"
// @Success 200 {object} dto.CreatorSettingsUpdateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/creator/settings [put]
func (h *CreatorHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CreatorSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	settings, err := h.creators.UpsertCreatorSettings(r.Context(), &models.CreatorSettings{
		UserID:           claims.UserID,
		DisplayName:      strings.TrimSpace(req.DisplayName),
		Intro:            req.Intro,
		QuestionPrice:    req.QuestionPrice,
		AcceptsQuestions: req.AcceptsQuestions,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := dto.CreatorSettingsUpdateResponse{
		Settings: dto.NewCreatorSettingsResponse(settings),
		Role:     profile.Role,
	}
	if profile.Role == models.RoleUser {
		if err := h.profiles.SetRole(r.Context(), profile.ID, models.RoleCreator); err != nil {
			writeServiceError(w, r, err)
			return
		}
		token, err := middleware.GenerateToken(profile.ID, models.RoleCreator, claims.Email, h.jwt)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp.Role = models.RoleCreator
		resp.Token = &token
		log.WithField("user_id", profile.ID).Info("user promoted to creator")
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// Balance returns the caller's balance
// @Summary Get creator balance
// @Tags creator
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.BalanceResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/creator/balance [get]
func (h *CreatorHandler) Balance(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	balance, err := h.payouts.Balance(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewBalanceResponse(balance, h.minPayout))
}

// Sales lists completed and refunded purchases of the caller's contents
// @Summary List my sales
// @Tags creator
// @Produce json
// @Security BearerAuth
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.PurchaseListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/creator/sales [get]
func (h *CreatorHandler) Sales(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return
	}

	items, total, err := h.market.ListPurchases(r.Context(), repository.PurchaseFilter{
		CreatorID: &claims.UserID,
		Statuses:  []string{models.PurchaseCompleted, models.PurchaseRefunded},
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.PurchaseListResponse{
		Purchases:  dto.NewPurchaseResponses(items),
		Pagination: dto.Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// RequestPayout asks to withdraw part of the available balance
// @Summary Request a payout
// @Tags creator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PayoutCreateRequest true "Amount in KRW"
// @Success 201 {object} dto.PayoutResponse
// @Failure 400 {object} dto.ErrorResponse "Below minimum, no bank account or insufficient balance"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Not a creator"
// @Failure 409 {object} dto.ErrorResponse "A payout is already pending"
// @Router /api/creator/payout [post]
func (h *CreatorHandler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.PayoutCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payout, err := h.payouts.Request(r.Context(), claims.UserID, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, dto.NewPayoutResponse(payout, false))
}

// ListPayouts returns the caller's payout history
// @Summary List my payouts
// @Tags creator
// @Produce json
// @Security BearerAuth
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.PayoutListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/creator/payouts [get]
func (h *CreatorHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return
	}

	items, total, err := h.market.ListPayouts(r.Context(), repository.PayoutFilter{
		CreatorID: &claims.UserID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.PayoutListResponse{
		Payouts:    payoutResponses(items, false),
		Pagination: dto.Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

func payoutResponses(items []models.PayoutRequest, unmasked bool) []dto.PayoutResponse {
	out := make([]dto.PayoutResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewPayoutResponse(&items[i], unmasked))
	}
	return out
}

// PaymentAccountHandler manages the caller's payout bank account
type PaymentAccountHandler struct {
	creators repository.CreatorStore
}

// NewPaymentAccountHandler creates a new PaymentAccountHandler instance
func NewPaymentAccountHandler(creators repository.CreatorStore) *PaymentAccountHandler {
	return &PaymentAccountHandler{creators: creators}
}

// Get returns the caller's bank account with a masked number
// @Summary Get my payment account
// @Tags creator
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.PaymentAccountResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/payment-account [get]
func (h *PaymentAccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	account, err := h.creators.GetPaymentAccount(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteErrorResponse(w, http.StatusNotFound, "Not Found", "No payment account registered")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPaymentAccountResponse(account))
}

// Put creates or replaces the caller's bank account
// @Summary Save my payment account
// @Tags creator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PaymentAccountRequest true "Bank account"
// @Success 200 {object} dto.PaymentAccountResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/payment-account [put]
func (h *PaymentAccountHandler) Put(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.PaymentAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.creators.UpsertPaymentAccount(r.Context(), &models.PaymentAccount{
		UserID:        claims.UserID,
		BankName:      strings.TrimSpace(req.BankName),
		AccountNumber: req.AccountNumber,
		AccountHolder: strings.TrimSpace(req.AccountHolder),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPaymentAccountResponse(account))
}
