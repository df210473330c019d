package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/utils"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	profiles repository.ProfileStore
	jwt      *config.JWTConfig
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(profiles repository.ProfileStore, jwt *config.JWTConfig) *AuthHandler {
	return &AuthHandler{profiles: profiles, jwt: jwt}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new account with email, password and nickname
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration data"
// @Success 201 {object} dto.AuthResponse "User created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "User already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user already exists
	if _, err := h.profiles.GetProfileByEmail(r.Context(), email); err == nil {
		utils.WriteErrorResponse(w, http.StatusConflict, "User already exists", "Email already registered")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		writeServiceError(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	hash := string(hashedPassword)

	profile := &models.Profile{
		Email:        &email,
		PasswordHash: &hash,
		Nickname:     strings.TrimSpace(req.Nickname),
		Role:         models.RoleUser,
		Provider:     models.ProviderEmail,
	}
	if err := h.profiles.CreateProfile(r.Context(), profile); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			utils.WriteErrorResponse(w, http.StatusConflict, "User already exists", "Email already registered")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	token, err := middleware.GenerateToken(profile.ID, profile.Role, email, h.jwt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithField("user_id", profile.ID).Info("user registered")
	utils.WriteJSONResponse(w, http.StatusCreated, dto.AuthResponse{
		User:  dto.NewUserResponse(profile),
		Token: token,
	})
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile, err := h.profiles.GetProfileByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	// social accounts have no password
	if profile.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*profile.PasswordHash), []byte(req.Password)) != nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid credentials", "Email or password is incorrect")
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

	utils.WriteJSONResponse(w, http.StatusOK, dto.AuthResponse{
		User:  dto.NewUserResponse(profile),
		Token: token,
	})
}

// Me returns the current user's account
// @Summary Get current user
// @Description Get the authenticated user's account information
// @Tags authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserResponse "User retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
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
