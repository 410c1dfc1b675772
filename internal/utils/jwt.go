package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims are the claims embedded in every access token.
type AccessClaims struct {
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateAccessToken mints a signed short-lived access token for the user.
func GenerateAccessToken(secret string, userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	claims := &AccessClaims{
		Email:     email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			// Unique per token so rotation always yields a new cache key,
			// even within the same second.
			ID: uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken validates signature and expiry and returns the user ID and
// email. Used by the auth middleware on ordinary requests.
func ParseAccessToken(secret, tokenString string) (uuid.UUID, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}

	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		id, err := uuid.Parse(claims.Subject)
		return id, claims.Email, err
	}

	return uuid.Nil, "", jwt.ErrTokenInvalidClaims
}

// DecodeAccessToken reads the claims without verifying signature or expiry.
// The refresh path trusts the cache lookup as the authority, so an expired
// token is still a valid source of subject and email.
func DecodeAccessToken(tokenString string) (uuid.UUID, string, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return uuid.Nil, "", err
	}

	if claims.Subject == "" || claims.Email == "" {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}

	id, err := uuid.Parse(claims.Subject)
	return id, claims.Email, err
}
