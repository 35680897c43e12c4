package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrDisabled     = errors.New("authentication is disabled")
)

// Service validates bearer tokens issued by the identity service. Both sides
// share an HMAC secret. A Service with an empty secret is disabled and lets
// every request through.
type Service struct {
	jwtSecret []byte
}

func NewService(jwtSecret string) *Service {
	return &Service{jwtSecret: []byte(jwtSecret)}
}

func (s *Service) Enabled() bool {
	return len(s.jwtSecret) > 0
}

// ValidateToken returns the token subject (user ID).
func (s *Service) ValidateToken(tokenString string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return userID, nil
}

// IssueToken signs an HS256 token for userID that expires after ttl.
func (s *Service) IssueToken(userID string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}

	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
