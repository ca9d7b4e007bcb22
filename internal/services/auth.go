package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const adminSubject = "coordinator"

var (
	// ErrInvalidCredentials is returned for a wrong admin password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginDisabled is returned when no admin password is configured
	ErrLoginDisabled = errors.New("admin login is disabled")
)

// AuthService issues and checks coordinator tokens
type AuthService struct {
	passwordHash []byte
	jwtSecret    string
	ttl          time.Duration
	now          func() time.Time
}

// NewAuthService creates a new auth service. passwordHash is a bcrypt hash;
// an empty hash disables login.
func NewAuthService(passwordHash, jwtSecret string, ttl time.Duration) *AuthService {
	return &AuthService{
		passwordHash: []byte(passwordHash),
		jwtSecret:    jwtSecret,
		ttl:          ttl,
		now:          time.Now,
	}
}

// Token is a signed coordinator token
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the admin password and returns a signed token
func (s *AuthService) Login(password string) (*Token, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrLoginDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.GenerateJWT()
}

// GenerateJWT generates a coordinator token
func (s *AuthService) GenerateJWT() (*Token, error) {
	if s.jwtSecret == "" {
		return nil, ErrLoginDisabled
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{Token: tokenString, ExpiresAt: expiresAt}, nil
}

// ValidateJWT validates a token and returns its subject. With login
// disabled or no secret configured every token is rejected.
func (s *AuthService) ValidateJWT(tokenString string) (string, error) {
	if len(s.passwordHash) == 0 || s.jwtSecret == "" {
		return "", ErrLoginDisabled
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.Subject != adminSubject {
		return "", fmt.Errorf("token subject %q is not allowed", claims.Subject)
	}

	return claims.Subject, nil
}
