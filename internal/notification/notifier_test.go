package notification

import (
	"errors"
	"net/smtp"
	"testing"

	"HttpSpectra/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.IsType(t, LogNotifier{}, New(config.SMTPConfig{}))
	assert.IsType(t, &EmailNotifier{}, New(config.SMTPConfig{Host: "mail.local", Port: 25}))
}

func TestEmailNotifier_Send(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{
		Host: "mail.local",
		Port: 2525,
		From: "spectra@local",
		To:   "ops@local, oncall@local",
	})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, n.Send("alert", "example.com over limit"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"ops@local", "oncall@local"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: alert\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nexample.com over limit")

	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.Error(t, n.Send("alert", "body"))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Send("alert", "body"))
}
