package security

import (
	"fmt"
	"time"

	"github.com/tdiprima/langchain-flask-api/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService signs and validates HS256 tokens that bind a username to one
// of its authenticated session ids.
type JWTService struct {
	secretKey         string
	expirationAccess  time.Duration
	expirationRefresh time.Duration
}

type Claims struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func NewJWTService(secretKey string, expirationAccessH, expirationRefreshH int) *JWTService {
	return &JWTService{
		secretKey:         secretKey,
		expirationAccess:  time.Duration(expirationAccessH) * time.Hour,
		expirationRefresh: time.Duration(expirationRefreshH) * time.Hour,
	}
}

func (j *JWTService) GenerateAccessToken(username, sessionID string) (*domain.Token, error) {
	return j.generate(username, sessionID, "access", j.expirationAccess)
}

func (j *JWTService) GenerateRefreshToken(username, sessionID string) (*domain.Token, error) {
	return j.generate(username, sessionID, "refresh", j.expirationRefresh)
}

func (j *JWTService) generate(username, sessionID, subject string, ttl time.Duration) (*domain.Token, error) {
	claims := &Claims{
		Username:  username,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenGenerateFailed, err)
	}
	return &domain.Token{Token: tokenStr, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (j *JWTService) ValidateToken(tokenStr string) (string, string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.secretKey), nil
		})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", "", domain.ErrInvalidToken
	}
	return claims.Username, claims.SessionID, nil
}
