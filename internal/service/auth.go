package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims identifies a calling service on internal API requests.
type ServiceClaims struct {
	ServiceName string `json:"service_name"`
	jwt.RegisteredClaims
}

// IssueServiceToken signs a short-lived HS256 token for service-to-service
// calls. expireHours <= 0 falls back to 24 hours.
func IssueServiceToken(secretKey, serviceName string, expireHours int) (string, error) {
	if secretKey == "" {
		return "", errors.New("service secret is empty")
	}
	if serviceName == "" {
		return "", errors.New("service name is empty")
	}
	if expireHours <= 0 {
		expireHours = 24
	}
	now := time.Now()
	claims := ServiceClaims{
		ServiceName: serviceName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}
