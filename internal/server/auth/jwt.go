// Package auth issues and verifies the mirror's access tokens and
// implements the register/login flows.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/obralink/obralink/internal/common"
)

// Claims extends the registered claim set with the identity fields the
// API handlers need for tenant scoping.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	CompanyID string `json:"cid"`
	Role      string `json:"role"`
}

func GenerateToken(userID, companyID, role string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
