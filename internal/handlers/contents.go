package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
	"STUDYHUB_BACK-END/internal/storage"
	"STUDYHUB_BACK-END/internal/utils"
)

// ContentsHandler serves the content catalogue and downloads
type ContentsHandler struct {
	contents      repository.ContentStore
	market        repository.MarketStore
	subscriptions repository.SubscriptionStore
	purchases     *service.Purchases
	notifier      *service.Notifier
	signer        storage.Signer
}

// NewContentsHandler creates a new ContentsHandler instance
func NewContentsHandler(
	contents repository.ContentStore,
	market repository.MarketStore,
	subscriptions repository.SubscriptionStore,
	purchases *service.Purchases,
	notifier *service.Notifier,
	signer storage.Signer,
) *ContentsHandler {
	return &ContentsHandler{
		contents:      contents,
		market:        market,
		subscriptions: subscriptions,
		purchases:     purchases,
		notifier:      notifier,
		signer:        signer,
	}
}

// List returns published contents
// @Summary List contents
// @Tags contents
// @Produce json
// @Param type query string false "material | video | qna"
// @Param creator_id query string false "creator UUID"
// @Param subject query string false "subject"
// @Param q query string false "title/description search"
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.ContentListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/contents [get]
func (h *ContentsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return
	}
	q := r.URL.Query()

	filter := models.ContentFilter{
		Type:          strings.TrimSpace(q.Get("type")),
		Subject:       strings.TrimSpace(q.Get("subject")),
		Query:         q.Get("q"),
		PublishedOnly: true,
		Limit:         limit,
		Offset:        offset,
	}
	switch filter.Type {
	case "", models.ContentMaterial, models.ContentVideo, models.ContentQnA:
	default:
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid type", "type must be one of [material video qna]")
		return
	}
	if s := q.Get("creator_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid creator_id", "creator_id must be a valid UUID")
			return
		}
		filter.CreatorID = &id
	}

	items, total, err := h.contents.ListContents(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]dto.ContentResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewContentResponse(&items[i], false))
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.ContentListResponse{
		Contents:   out,
		Pagination: dto.Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// Get returns one content. Unpublished contents are visible to the owner and admins only.
// @Summary Get a content
// @Tags contents
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} dto.ContentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/contents/{id} [get]
func (h *ContentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var (
		userID  uuid.UUID
		isAdmin bool
	)
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID, isAdmin = claims.UserID, claims.IsAdmin()
	}

	content, err := h.contents.GetContent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !content.IsPublished && !isAdmin && content.CreatorID != userID {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not Found", "content not found")
		return
	}

	if err := h.contents.IncrementViewCount(r.Context(), id); err != nil {
		log.WithField("content_id", id).WithError(err).Warn("increment view count")
	} else {
		content.ViewCount++
	}

	hasAccess, err := h.purchases.HasAccess(r.Context(), userID, isAdmin, content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := dto.NewContentResponse(content, hasAccess && userID != uuid.Nil)
	if userID != uuid.Nil && content.CreatorID != userID {
		p, err := h.market.FindActivePurchase(r.Context(), id, userID)
		switch {
		case err == nil:
			resp.Purchased = p.Status == models.PurchaseCompleted
		case !errors.Is(err, repository.ErrNotFound):
			writeServiceError(w, r, err)
			return
		}
	}
	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// Create publishes a new content
// @Summary Create a content
// @Tags contents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ContentRequest true "Content"
// @Success 201 {object} dto.ContentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/contents [post]
func (h *ContentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req dto.ContentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	content := &models.Content{CreatorID: claims.UserID}
	applyContentRequest(content, &req)
	if err := h.contents.CreateContent(r.Context(), content); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"content_id": content.ID, "creator_id": claims.UserID}).Info("content created")
	if content.IsPublished {
		h.notifySubscribers(r, content)
	}
	utils.WriteJSONResponse(w, http.StatusCreated, dto.NewContentResponse(content, true))
}

// Update replaces a content's editable fields
// @Summary Update a content
// @Tags contents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param request body dto.ContentRequest true "Content"
// @Success 200 {object} dto.ContentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/contents/{id} [put]
func (h *ContentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	content, claims, ok := h.ownedContent(w, r)
	if !ok {
		return
	}
	var req dto.ContentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	wasPublished := content.IsPublished
	applyContentRequest(content, &req)
	if err := h.contents.UpdateContent(r.Context(), content); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"content_id": content.ID, "user_id": claims.UserID}).Info("content updated")
	if content.IsPublished && !wasPublished {
		h.notifySubscribers(r, content)
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewContentResponse(content, true))
}

// Delete removes a content, or unpublishes it when it has purchases
// @Summary Delete a content
// @Tags contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} dto.ContentDeleteResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/contents/{id} [delete]
func (h *ContentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	content, claims, ok := h.ownedContent(w, r)
	if !ok {
		return
	}

	n, err := h.contents.CountPurchases(r.Context(), content.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	fields := log.Fields{"content_id": content.ID, "user_id": claims.UserID}
	if n > 0 {
		// buyers keep access, so the row stays
		content.IsPublished = false
		if err := h.contents.UpdateContent(r.Context(), content); err != nil {
			writeServiceError(w, r, err)
			return
		}
		log.WithFields(fields).Info("content unpublished")
		utils.WriteJSONResponse(w, http.StatusOK, dto.ContentDeleteResponse{
			Message:     "Content has purchases and was unpublished instead",
			Unpublished: true,
		})
		return
	}

	if err := h.contents.DeleteContent(r.Context(), content.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.WithFields(fields).Info("content deleted")
	utils.WriteJSONResponse(w, http.StatusOK, dto.ContentDeleteResponse{Message: "Content deleted"})
}

// Access returns a time-limited URL for the content file
// @Summary Get a download URL
// @Tags contents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Success 200 {object} dto.ContentAccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Not purchased"
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/contents/{id}/access [get]
func (h *ContentsHandler) Access(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	content, err := h.contents.GetContent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	hasAccess, err := h.purchases.HasAccess(r.Context(), claims.UserID, claims.IsAdmin(), content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !hasAccess {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", "Purchase this content to access it")
		return
	}
	if content.FilePath == nil || *content.FilePath == "" {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Not Found", "content has no file")
		return
	}

	url, ttl, err := h.signer.SignedURL(r.Context(), *content.FilePath)
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("sign content url: %w", err))
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.ContentAccessResponse{
		URL:       url,
		ExpiresIn: int(ttl.Seconds()),
	})
}

// Library lists the caller's completed purchases
// @Summary My library
// @Tags contents
// @Produce json
// @Security BearerAuth
// @Param limit query int false "default 20 (max 100)"
// @Param offset query int false "default 0"
// @Success 200 {object} dto.LibraryResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/me/library [get]
func (h *ContentsHandler) Library(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset, ok := pagination(w, r, 20, 100)
	if !ok {
		return
	}

	items, total, err := h.market.ListPurchases(r.Context(), repository.PurchaseFilter{
		BuyerID:  &claims.UserID,
		Statuses: []string{models.PurchaseCompleted},
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]dto.LibraryItem, 0, len(items))
	for _, p := range items {
		purchasedAt := p.CreatedAt
		if p.ConfirmedAt != nil {
			purchasedAt = *p.ConfirmedAt
		}
		out = append(out, dto.LibraryItem{
			PurchaseID:   p.ID.String(),
			ContentID:    p.ContentID.String(),
			ContentTitle: p.ContentTitle,
			Amount:       p.Amount,
			PurchasedAt:  purchasedAt.UTC().Format(time.RFC3339),
		})
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.LibraryResponse{
		Items:      out,
		Pagination: dto.Pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// ownedContent loads the {id} content and checks the caller owns it or is admin
func (h *ContentsHandler) ownedContent(w http.ResponseWriter, r *http.Request) (*models.Content, *middleware.JWTClaims, bool) {
	claims, ok := currentUser(w, r)
	if !ok {
		return nil, nil, false
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return nil, nil, false
	}
	content, err := h.contents.GetContent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, nil, false
	}
	if content.CreatorID != claims.UserID && !claims.IsAdmin() {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", "Only the owner can modify this content")
		return nil, nil, false
	}
	return content, claims, true
}

func (h *ContentsHandler) notifySubscribers(r *http.Request, c *models.Content) {
	ids, err := h.subscriptions.ListSubscriberIDs(r.Context(), c.CreatorID)
	if err != nil {
		log.WithField("creator_id", c.CreatorID).WithError(err).Warn("list subscribers")
		return
	}
	if len(ids) == 0 {
		return
	}
	h.notifier.NotifyMany(r.Context(), ids, service.Message{
		Type:      service.NotifyNewContent,
		Title:     "New content from a creator you follow",
		Message:   c.Title,
		Data:      map[string]any{"content_id": c.ID.String()},
		ActionURL: "/contents/" + c.ID.String(),
	})
}

func applyContentRequest(c *models.Content, req *dto.ContentRequest) {
	c.Type = req.Type
	c.Title = strings.TrimSpace(req.Title)
	c.Description = req.Description
	c.Price = req.Price
	c.FilePath = req.FilePath
	c.ThumbnailURL = req.ThumbnailURL
	c.Subject = req.Subject
	c.IsPublished = req.IsPublished
}
