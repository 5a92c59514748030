package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceTokenService issues and validates the HMAC tokens that protect
// internal endpoints (cron-triggered scheduling). These are machine
// credentials, not end-user sessions.
type ServiceTokenService interface {
	Generate(subject string) (string, error)
	Validate(token string) (string, error)
}

type serviceTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewServiceTokenService(secret string, ttl time.Duration) ServiceTokenService {
	return &serviceTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "push-api",
	}
}

func (s *serviceTokenService) Generate(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

func (s *serviceTokenService) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("invalid service token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid service token claims")
	}
	return claims.Subject, nil
}
