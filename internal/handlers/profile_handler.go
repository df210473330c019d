package handlers

import (
	"errors"
	"net/http"
	"strings"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/utils"
)

type ProfileHandler struct {
	profiles repository.ProfileStore
	creators repository.CreatorStore
}

func NewProfileHandler(profiles repository.ProfileStore, creators repository.CreatorStore) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, creators: creators}
}

// Get godoc
// @Summary      Get my profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  dto.UserResponse
// @Failure      401      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Router       /api/profile [get]
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	profile, err := h.profiles.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewUserResponse(profile))
}

// Update godoc
// @Summary      Update my profile
// @Description  Omitted fields stay unchanged
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      dto.UpdateProfileRequest  true  "Profile payload"
// @Success      200      {object}  dto.UserResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      401      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Router       /api/profile [put]
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Nickname != nil {
		trimmed := strings.TrimSpace(*req.Nickname)
		if trimmed == "" {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", "nickname cannot be blank")
			return
		}
		req.Nickname = &trimmed
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), claims.UserID, req.Nickname, req.AvatarURL, req.Bio)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewUserResponse(profile))
}

// GetPublic godoc
// @Summary      Get a public profile
// @Description  Includes creator settings for creators
// @Tags         profile
// @Produce      json
// @Param        id   path      string  true  "Profile ID"
// @Success      200  {object}  dto.PublicProfileResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/profiles/{id} [get]
func (h *ProfileHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var settings *models.CreatorSettings
	if profile.IsCreator() {
		settings, err = h.creators.GetCreatorSettings(r.Context(), id)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			writeServiceError(w, r, err)
			return
		}
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewPublicProfileResponse(profile, settings))
}
