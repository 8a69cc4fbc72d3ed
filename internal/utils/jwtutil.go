package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const TokenTTL = 7 * 24 * time.Hour

type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
}

func NewTokenManager(secret, issuer, audience string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (m *TokenManager) GenerateToken(userID uint, role string) (string, time.Time, error) {
	exp := time.Now().Add(TokenTTL)
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret)
	return s, exp, err
}

func (m *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.VerifyIssuer(m.issuer, true) {
		return nil, errors.New("invalid token issuer")
	}
	if !claims.VerifyAudience(m.audience, true) {
		return nil, errors.New("invalid token audience")
	}

	return claims, nil
}
