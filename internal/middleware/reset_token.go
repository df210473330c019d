package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"STUDYHUB_BACK-END/internal/config"
)

const resetSubject = "password_reset"

// ResetTokenClaims represents the JWT claims for password reset token
type ResetTokenClaims struct {
	UserID         uuid.UUID `json:"user_id"`
	Email          string    `json:"email"`
	VerificationID uuid.UUID `json:"verification_id"`
	jwt.RegisteredClaims
}

// GenerateResetToken issues a short-lived token proving the reset code was verified
func GenerateResetToken(userID uuid.UUID, email string, verificationID uuid.UUID, cfg *config.JWTConfig) (string, error) {
	now := time.Now()
	claims := &ResetTokenClaims{
		UserID:         userID,
		Email:          email,
		VerificationID: verificationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ResetTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "studyhub",
			Subject:   resetSubject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ValidateResetToken validates and parses the reset token
func ValidateResetToken(tokenString string, cfg *config.JWTConfig) (*ResetTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ResetTokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject != resetSubject {
		return nil, errors.New("invalid token type")
	}
	return claims, nil
}
