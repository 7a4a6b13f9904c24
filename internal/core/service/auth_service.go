package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

const defaultTokenTTL = time.Hour

// AuthService hashes passwords with bcrypt and issues HS256 JWTs whose
// subject is the user id.
type AuthService struct {
	jwtSecret string
	tokenTTL  time.Duration
	cost      int
	now       func() time.Time
}

func NewAuthService(jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
}

// Hash returns the bcrypt hash of plaintext.
func (s *AuthService) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty password", domain.ErrHashFailure)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrHashFailure, err)
	}
	return string(hash), nil
}

func (s *AuthService) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (s *AuthService) IssueToken(subject string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTokenFailure, err)
	}
	return signed, nil
}
