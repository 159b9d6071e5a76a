package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. The access token is what the middleware checks on
// every request; the refresh token only buys a new access token.
const (
	accessTokenTTL  = 30 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

func secretKey() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	// Development fallback; set JWT_SECRET in any real deployment.
	return []byte("shopkart-dev-secret")
}

// GenerateTokenPair creates a signed access/refresh token pair for a user.
func GenerateTokenPair(userID int64) (access string, refresh string, err error) {
	access, err = generateToken(userID, "access", accessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = generateToken(userID, "refresh", refreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func generateToken(userID int64, tokenType string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": tokenType,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateAccessToken parses an access token and returns its user ID.
func ValidateAccessToken(tokenString string) (int64, error) {
	return validateToken(tokenString, "access")
}

// ValidateRefreshToken parses a refresh token and returns its user ID.
func ValidateRefreshToken(tokenString string) (int64, error) {
	return validateToken(tokenString, "refresh")
}

func validateToken(tokenString, wantType string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	if typ, _ := claims["typ"].(string); typ != wantType {
		return 0, ErrInvalidToken
	}

	// JSON numbers decode as float64.
	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, errors.New("invalid subject claim")
	}
	return int64(userIDFloat), nil
}
