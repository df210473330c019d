package handlers

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/utils"
)

// verificationCodeTTL is how long an emailed reset code stays valid
const verificationCodeTTL = 3 * time.Minute

// CodeMailer delivers password reset codes
type CodeMailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// ForgotPasswordHandler handles forgot password functionality
type ForgotPasswordHandler struct {
	profiles      repository.ProfileStore
	verifications repository.VerificationStore
	mailer        CodeMailer
	jwt           *config.JWTConfig
	now           func() time.Time
}

// NewForgotPasswordHandler creates a new ForgotPasswordHandler instance. mailer may be nil.
func NewForgotPasswordHandler(
	profiles repository.ProfileStore,
	verifications repository.VerificationStore,
	mailer CodeMailer,
	jwt *config.JWTConfig,
) *ForgotPasswordHandler {
	return &ForgotPasswordHandler{
		profiles:      profiles,
		verifications: verifications,
		mailer:        mailer,
		jwt:           jwt,
		now:           time.Now,
	}
}

// ForgotPassword sends verification code to user's email
// @Summary Request password reset
// @Description Send 6-digit verification code to user's email for password reset
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Email address"
// @Success 200 {object} dto.ForgotPasswordResponse "Verification code sent successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 429 {object} dto.ErrorResponse "Code already sent"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/forgot-password [post]
func (h *ForgotPasswordHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	profile, err := h.profiles.GetProfileByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteErrorResponse(w, http.StatusNotFound, "User not found", "No account found with this email")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	// Check if there's a recent unused code
	existing, err := h.verifications.LatestActiveVerification(r.Context(), profile.ID)
	if err == nil {
		if remaining := existing.ExpiresAt.Sub(h.now()); remaining > 0 {
			utils.WriteErrorResponse(w, http.StatusTooManyRequests,
				"Code already sent",
				fmt.Sprintf("Please wait %d seconds before requesting a new code", int(remaining.Seconds())))
			return
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		writeServiceError(w, r, err)
		return
	}

	code, err := generateVerificationCode(6)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	v := &models.AuthVerification{
		UserID:    profile.ID,
		Email:     email,
		Code:      code,
		ExpiresAt: h.now().Add(verificationCodeTTL),
	}
	if err := h.verifications.CreateVerification(r.Context(), v); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendVerificationCode(r.Context(), email, code); err != nil {
			log.WithField("user_id", profile.ID).WithError(err).Warn("send verification code")
		}
	} else {
		log.WithField("user_id", profile.ID).Warn("email not configured, verification code not sent")
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.ForgotPasswordResponse{
		Message:   "Verification code has been sent to your email",
		Email:     email,
		ExpiresIn: "3 minutes",
	})
}

// VerifyOTP verifies the OTP and returns a reset token
// @Summary Verify OTP
// @Description Verify the 6-digit code and get a temporary reset token
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.VerifyOTPRequest true "Email and verification code"
// @Success 200 {object} dto.VerifyOTPResponse "OTP verified successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Invalid or expired code"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/verify-otp [post]
func (h *ForgotPasswordHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	v, err := h.verifications.FindVerification(r.Context(), strings.TrimSpace(req.Email), req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid code", "The verification code is invalid or expired")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	resetToken, err := middleware.GenerateResetToken(v.UserID, v.Email, v.ID, h.jwt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.VerifyOTPResponse{
		ResetToken: resetToken,
		ExpiresIn:  int(h.jwt.ResetTokenTTL.Seconds()),
	})
}

// ResetPassword resets user's password using reset token
// @Summary Reset password
// @Description Reset user's password with new password using reset token
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} dto.MessageResponse "Password reset successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 401 {object} dto.ErrorResponse "Invalid or expired reset token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/reset-password [post]
func (h *ForgotPasswordHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	claims, err := middleware.ValidateResetToken(req.ResetToken, h.jwt)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid reset token", "Reset token is invalid or expired")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// consuming the code first makes the token single-use
	if err := h.verifications.MarkVerificationUsed(r.Context(), claims.VerificationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.WriteErrorResponse(w, http.StatusUnauthorized, "Code already used", "This verification code has already been used")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	if err := h.profiles.UpdatePasswordHash(r.Context(), claims.UserID, string(hashedPassword)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithField("user_id", claims.UserID).Info("password reset")
	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{
		Message: "Password has been reset successfully",
	})
}

// generateVerificationCode generates a random n-digit verification code
func generateVerificationCode(length int) (string, error) {
	const digits = "0123456789"
	code := make([]byte, length)

	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[num.Int64()]
	}

	return string(code), nil
}
