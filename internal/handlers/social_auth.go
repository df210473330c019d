package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/oauth"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/utils"
)

// SocialAuthHandler handles the Kakao, Naver and Google login flows
type SocialAuthHandler struct {
	registry    *oauth.Registry
	states      oauth.StateStore
	profiles    repository.ProfileStore
	jwt         *config.JWTConfig
	frontendURL string
}

// NewSocialAuthHandler creates a new SocialAuthHandler instance
func NewSocialAuthHandler(
	registry *oauth.Registry,
	states oauth.StateStore,
	profiles repository.ProfileStore,
	jwt *config.JWTConfig,
	frontendURL string,
) *SocialAuthHandler {
	return &SocialAuthHandler{
		registry:    registry,
		states:      states,
		profiles:    profiles,
		jwt:         jwt,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Providers lists the configured providers
// @Summary List social login providers
// @Tags authentication
// @Produce json
// @Success 200 {object} dto.OAuthProvidersResponse
// @Router /api/auth/providers [get]
func (h *SocialAuthHandler) Providers(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, dto.OAuthProvidersResponse{Providers: h.registry.Names()})
}

// Login initiates a provider's OAuth login
// @Summary Social OAuth login
// @Description Returns the provider authorization URL and a one-time state
// @Tags authentication
// @Produce json
// @Param provider path string true "kakao | naver | google"
// @Success 200 {object} dto.OAuthLoginResponse "Authorization URL"
// @Failure 404 {object} dto.ErrorResponse "Provider not configured"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/{provider}/login [get]
func (h *SocialAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Unknown provider", "Login provider is not available")
		return
	}

	// Generate state parameter for CSRF protection
	state := oauth.NewState()
	if err := h.states.Save(r.Context(), state, provider.Name(), oauth.StateTTL); err != nil {
		writeServiceError(w, r, fmt.Errorf("save oauth state: %w", err))
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.OAuthLoginResponse{
		Provider: provider.Name(),
		AuthURL:  provider.AuthCodeURL(state),
		State:    state,
	})
}

// Callback handles the provider redirect
// @Summary Social OAuth callback
// @Description Exchange the authorization code, upsert the profile and redirect to the frontend with a token
// @Tags authentication
// @Param provider path string true "kakao | naver | google"
// @Param code query string true "Authorization code"
// @Param state query string true "State returned by the login endpoint"
// @Success 302 "Redirect to FRONTEND_URL/auth/callback"
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid state"
// @Failure 401 {object} dto.ErrorResponse "Invalid authorization code"
// @Failure 404 {object} dto.ErrorResponse "Provider not configured"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/{provider}/callback [get]
func (h *SocialAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Get(chi.URLParam(r, "provider"))
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Unknown provider", "Login provider is not available")
		return
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Login cancelled", errCode)
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing parameters", "code and state are required")
		return
	}

	owner, err := h.states.Consume(r.Context(), state)
	if err != nil {
		if errors.Is(err, oauth.ErrStateNotFound) {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid state", "State is unknown or expired")
			return
		}
		writeServiceError(w, r, fmt.Errorf("consume oauth state: %w", err))
		return
	}
	if owner != provider.Name() {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid state", "State was issued for another provider")
		return
	}

	info, err := provider.Exchange(r.Context(), code)
	if err != nil {
		log.WithField("provider", provider.Name()).WithError(err).Warn("oauth exchange failed")
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid authorization code", "Could not sign in with "+provider.Name())
		return
	}

	profile, err := h.profiles.UpsertOAuthProfile(r.Context(), profileFromUserInfo(info))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			utils.WriteErrorResponse(w, http.StatusConflict, "Email already registered", "Sign in with your email and password instead")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	email := ""
	if profile.Email != nil {
		email = *profile.Email
	}
	token, err := middleware.GenerateToken(profile.ID, profile.Role, email, h.jwt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"user_id": profile.ID, "provider": provider.Name()}).Info("social login")

	redirect := url.Values{}
	redirect.Set("token", token)
	redirect.Set("provider", provider.Name())
	http.Redirect(w, r, h.frontendURL+"/auth/callback?"+redirect.Encode(), http.StatusFound)
}

func profileFromUserInfo(info *oauth.UserInfo) *models.Profile {
	p := &models.Profile{
		Nickname:   strings.TrimSpace(info.Nickname),
		Role:       models.RoleUser,
		Provider:   info.Provider,
		ProviderID: &info.ID,
	}
	if p.Nickname == "" {
		p.Nickname = info.Provider + " user"
	}
	if info.Email != "" {
		email := strings.ToLower(info.Email)
		p.Email = &email
	}
	if info.AvatarURL != "" {
		avatar := info.AvatarURL
		p.AvatarURL = &avatar
	}
	return p
}
