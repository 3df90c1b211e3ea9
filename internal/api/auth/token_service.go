package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AdminSubject is the subject of every admin session token.
const AdminSubject = "admin"

const issuer = "flowforge"

// ErrInvalidToken is returned for tokens that are malformed, expired or
// signed with another key.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and validates admin session tokens
type TokenService struct {
	secretKey []byte
	now       func() time.Time

	// TokenDuration is how long an issued token stays valid. Default: 12 hours
	TokenDuration time.Duration
}

// Token is an issued admin session token
type Token struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TokenType   string    `json:"tokenType"` // "Bearer"
}

// JWTClaims represents the claims in our JWT tokens
type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenService creates a token service. An empty secret gets a random key,
// so tokens do not survive a restart.
func NewTokenService(secretKey string, duration time.Duration) (*TokenService, error) {
	key := []byte(secretKey)
	if secretKey == "" {
		random, err := generateRandomKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		key = random
	}
	if duration <= 0 {
		duration = 12 * time.Hour
	}
	return &TokenService{secretKey: key, now: time.Now, TokenDuration: duration}, nil
}

// generateRandomKey creates a cryptographically secure signing key
func generateRandomKey() ([]byte, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return []byte(hex.EncodeToString(bytes)), nil
}

// CreateToken issues a signed HS256 admin token.
func (ts *TokenService) CreateToken() (*Token, error) {
	now := ts.now()
	expiresAt := now.Add(ts.TokenDuration)

	claims := &JWTClaims{
		Role: AdminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   AdminSubject,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %w", err)
	}

	return &Token{AccessToken: signed, ExpiresAt: expiresAt, TokenType: "Bearer"}, nil
}

// ValidateAccessToken parses tokenString and returns its claims.
func (ts *TokenService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secretKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithSubject(AdminSubject),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Role != AdminSubject {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}
	return claims, nil
}
