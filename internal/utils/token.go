package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every token rejection: malformed, bad signature, expired, missing claims
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by an access token
type Claims struct {
	SubjectID uuid.UUID
	Email     string
	ExpiresAt time.Time
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a manager signing with secret; ttl is the default lifetime
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the default token lifetime
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for subject and email valid for ttl
func (m *TokenManager) Issue(subjectID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims
func (m *TokenManager) Verify(tokenString string) (Claims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return Claims{}, fmt.Errorf("%w: missing required claims", ErrInvalidToken)
	}
	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	return Claims{
		SubjectID: subjectID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
