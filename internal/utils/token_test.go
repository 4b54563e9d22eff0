package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret", 30*time.Minute)
	id := uuid.New()

	token, err := m.Issue(id, "alice@example.com", m.TTL())
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SubjectID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt, 2*time.Second)
}

func TestTokenExpires(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	issuedAt := time.Now()
	m.now = func() time.Time { return issuedAt }

	token, err := m.Issue(uuid.New(), "alice@example.com", time.Minute)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(30 * time.Second) }
	_, err = m.Verify(token)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("one", time.Minute).Issue(uuid.New(), "a@example.com", time.Minute)
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsMalformed(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)

	for _, bad := range []string{"", "abc", "a.b.c"} {
		_, err := m.Verify(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, bad)
	}
}

func TestTokenRejectsMissingClaims(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))

	cases := map[string]jwt.Claims{
		"no email":      jwt.MapClaims{"sub": uuid.NewString(), "exp": exp},
		"no subject":    jwt.MapClaims{"email": "a@example.com", "exp": exp},
		"bad subject":   jwt.MapClaims{"sub": "42", "email": "a@example.com", "exp": exp},
		"no expiration": jwt.MapClaims{"sub": uuid.NewString(), "email": "a@example.com"},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
			require.NoError(t, err)

			_, err = m.Verify(signed)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	claims := jwt.MapClaims{
		"sub":   uuid.NewString(),
		"email": "a@example.com",
		"exp":   jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
