package email

import (
	"errors"
	"io"
	"net/smtp"
	"testing"

	"github.com/Dan9191/budget-service/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(cfg *config.Config) *Sender {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewSender(cfg, logger)
}

func TestSendWelcome(t *testing.T) {
	s := newTestSender(&config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     "587",
		SMTPUsername: "mailer",
		SMTPPassword: "pw",
		SenderEmail:  "noreply@example.com",
	})

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotMsg  *email.Email
	)
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		gotMsg, gotAddr, gotAuth = e, addr, auth
		return nil
	}

	require.NoError(t, s.SendWelcome("alice@example.com", "Alice"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotMsg.From)
	assert.Equal(t, []string{"alice@example.com"}, gotMsg.To)
	assert.Contains(t, string(gotMsg.Text), "Dear Alice")
}

func TestSendWelcomeWithoutAuth(t *testing.T) {
	s := newTestSender(&config.Config{SMTPHost: "localhost", SMTPPort: "25", SenderEmail: "noreply@example.com"})
	var gotAuth smtp.Auth = smtp.PlainAuth("", "x", "y", "z")
	s.send = func(_ *email.Email, _ string, auth smtp.Auth) error {
		gotAuth = auth
		return nil
	}

	require.NoError(t, s.SendWelcome("bob@example.com", "Bob"))
	assert.Nil(t, gotAuth)
}

func TestSendWelcomeFailure(t *testing.T) {
	s := newTestSender(&config.Config{SMTPHost: "localhost", SMTPPort: "25", SenderEmail: "noreply@example.com"})
	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	err := s.SendWelcome("bob@example.com", "Bob")
	assert.ErrorContains(t, err, "connection refused")
}
