package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

// Claims carried in a session token.
type Claims struct {
	UserID string
	Role   model.Role
}

func GenerateToken(userID string, role model.Role, secret string, expiryHours int) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Duration(expiryHours) * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["user_id"] == nil {
		return nil, errors.New("invalid claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	role, _ := claims["role"].(string)

	return &Claims{UserID: userID, Role: model.Role(role)}, nil
}
