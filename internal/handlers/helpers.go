package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/payments"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/utils"
)

// writeServiceError maps service and repository errors to HTTP responses.
// Anything unrecognised is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, service.ErrForbidden):
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, service.ErrAlreadyPurchased),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrPayoutInProgress),
		errors.Is(err, repository.ErrConflict):
		utils.WriteErrorResponse(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, service.ErrOwnContent),
		errors.Is(err, service.ErrDepositorRequired),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrBelowMinimumPayout),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrBankAccountRequired),
		errors.Is(err, service.ErrInvalidNotification),
		errors.Is(err, payments.ErrMalformedWebhook):
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, service.ErrPaymentFailed):
		utils.WriteErrorResponse(w, http.StatusPaymentRequired, "Payment Failed", err.Error())
	case errors.Is(err, service.ErrWebhookUnverified):
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong")
	}
}

// currentUser returns the authenticated claims or writes a 401
func currentUser(w http.ResponseWriter, r *http.Request) (*middleware.JWTClaims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return nil, false
	}
	return claims, true
}

// pathUUID parses a chi URL parameter as a UUID or writes a 400
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid id", name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes and validates a JSON body or writes a 400
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.DecodeJSON(w, r, dst); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints whose body may be omitted.
// dst is left untouched when the body is empty.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return true
	}
	err := utils.DecodeJSON(w, r, dst)
	if err == nil || errors.Is(err, utils.ErrEmptyBody) {
		return true
	}
	utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
	return false
}

// pagination reads limit/offset or writes a 400
func pagination(w http.ResponseWriter, r *http.Request, def, max int) (int, int, bool) {
	limit, offset, err := utils.Pagination(r, def, max)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid pagination", err.Error())
		return 0, 0, false
	}
	return limit, offset, true
}
