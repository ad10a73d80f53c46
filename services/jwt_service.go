package services

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"marketplace-server/models"
	"marketplace-server/types"
)

const tokenIssuer = "marketplace-server"

// JWTService handles JWT token operations
type JWTService struct {
	secret []byte
	expiry time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiry: expiry}
}

// GenerateAccessToken issues a signed bearer token for a user acting in a role.
// It returns the token and its lifetime in seconds.
func (js *JWTService) GenerateAccessToken(userID uint, role models.Role) (string, int64, error) {
	if userID == 0 {
		return "", 0, errors.New("user id is required")
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return "", 0, err
	}

	now := time.Now()
	claims := &types.Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(js.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(js.secret)
	if err != nil {
		return "", 0, err
	}
	return tokenString, int64(js.expiry / time.Second), nil
}

// ValidateAccessToken validates an access token
func (js *JWTService) ValidateAccessToken(tokenString string) (*types.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &types.Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return js.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*types.Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token carries no user")
	}
	if _, err := models.ParseRole(claims.Role); err != nil {
		return nil, err
	}
	return claims, nil
}
