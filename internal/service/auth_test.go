package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	notifier := &fakeNotifier{sent: make(chan welcome, 1)}
	svc, _ := newTestService(t, WithNotifier(notifier))

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Alice@Example.com ",
		FullName: "Alice",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, uuid.Nil, user.PublicID)
	assert.NotEqual(t, testPassword, user.HashedPassword)
	assert.True(t, svc.hasher.Verify(testPassword, user.HashedPassword))

	select {
	case got := <-notifier.sent:
		assert.Equal(t, welcome{"alice@example.com", "Alice"}, got)
	case <-time.After(time.Second):
		t.Fatal("welcome email was not sent")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ALICE@example.com",
		FullName: "Imposter",
		Password: testPassword,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"bad email", RegisterInput{Email: "not-an-email", FullName: "A", Password: testPassword}, "email"},
		{"empty name", RegisterInput{Email: "a@example.com", Password: testPassword}, "full_name"},
		{"long name", RegisterInput{Email: "a@example.com", FullName: strings.Repeat("x", 101), Password: testPassword}, "full_name"},
		{"short password", RegisterInput{Email: "a@example.com", FullName: "A", Password: "Ab1"}, "password"},
		{"no upper", RegisterInput{Email: "a@example.com", FullName: "A", Password: "secret123"}, "password"},
		{"no lower", RegisterInput{Email: "a@example.com", FullName: "A", Password: "SECRET123"}, "password"},
		{"no digit", RegisterInput{Email: "a@example.com", FullName: "A", Password: "SecretPass"}, "password"},
		{"over bcrypt limit", RegisterInput{Email: "a@example.com", FullName: "A", Password: "Aa1" + strings.Repeat("x", 70)}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

			appErr := err.(*apperr.Error)
			require.NotEmpty(t, appErr.Fields)
			assert.Equal(t, tc.field, appErr.Fields[0].Field)
		})
	}
}

func TestPasswordPolicyMessages(t *testing.T) {
	assert.Equal(t, "", passwordPolicy(testPassword))
	assert.Equal(t, "must contain at least one digit", passwordPolicy("SecretPass"))
	assert.Equal(t, "must be at least 8 characters long", passwordPolicy("Ab1"))
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	user := registerUser(t, svc, "alice@example.com")

	token, err := svc.Login(context.Background(), LoginInput{Email: "Alice@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)

	claims, err := svc.tokens.Verify(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.PublicID, claims.SubjectID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	svc, _ := newTestService(t)
	registerUser(t, svc, "alice@example.com")

	_, wrongPassword := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "Wrong1234"})
	_, unknownEmail := svc.Login(context.Background(), LoginInput{Email: "bob@example.com", Password: testPassword})

	for _, err := range []error{wrongPassword, unknownEmail} {
		require.Error(t, err)
		assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
		assert.Equal(t, "Incorrect email or password", err.Error())
	}
}

func TestLoginRequiresFields(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	user := registerUser(t, svc, "alice@example.com")
	token, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.PublicID, got.PublicID)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	assert.Equal(t, "Could not validate credentials", err.(*apperr.Error).Message)

	// a valid token for a user that never existed
	ghost, err := svc.tokens.Issue(uuid.New(), "ghost@example.com", time.Minute)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	require.NoError(t, store.SoftDeleteUser(ctx, user.PublicID))
	_, err = svc.Authenticate(ctx, token.AccessToken)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestAuthenticateInactiveUser(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	user := registerUser(t, svc, "alice@example.com")
	token, err := svc.tokens.Issue(user.PublicID, user.Email, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.SetUserActive(ctx, user.PublicID, false))

	_, err = svc.Authenticate(ctx, token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "Inactive user account", err.Error())
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	user := registerUser(t, svc, "alice@example.com")

	require.NoError(t, svc.DeleteAccount(ctx, user.PublicID))
	_, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: testPassword})
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(svc.DeleteAccount(ctx, user.PublicID)))

	// email is reusable after deletion
	registerUser(t, svc, "alice@example.com")
}

type blockingNotifier struct {
	release chan struct{}
	sent    chan welcome
}

func (b *blockingNotifier) SendWelcome(to, fullName string) error {
	<-b.release
	b.sent <- welcome{to, fullName}
	return nil
}

func TestDrainWaitsForWelcomeEmail(t *testing.T) {
	notifier := &blockingNotifier{release: make(chan struct{}), sent: make(chan welcome, 1)}
	svc, _ := newTestService(t, WithNotifier(notifier))
	registerUser(t, svc, "alice@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Drain(ctx), context.DeadlineExceeded)

	close(notifier.release)
	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Drain(ctx))
	assert.Len(t, notifier.sent, 1)
}

func TestDrainWithNothingPending(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Drain(context.Background()))
}
