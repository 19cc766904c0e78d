package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{
		SendTo:   "patient@example.com",
		Subject:  "Appointment reminder",
		BodyHTML: "<p>See you tomorrow</p>",
	}

	tests := []struct {
		name   string
		mutate func(p *email.SendEmailParams)
		errMsg string
	}{
		{"valid", func(p *email.SendEmailParams) {}, ""},
		{"complex address", func(p *email.SendEmailParams) { p.SendTo = "ana.silva+clinic@mail.example.com" }, ""},
		{"empty SendTo", func(p *email.SendEmailParams) { p.SendTo = "" }, "SendTo is required"},
		{"whitespace SendTo", func(p *email.SendEmailParams) { p.SendTo = "   " }, "SendTo is required"},
		{"invalid address", func(p *email.SendEmailParams) { p.SendTo = "patient@" }, "SendTo must be a valid email address"},
		{"missing local part", func(p *email.SendEmailParams) { p.SendTo = "@example.com" }, "SendTo must be a valid email address"},
		{"empty Subject", func(p *email.SendEmailParams) { p.Subject = " " }, "Subject is required"},
		{"empty BodyHTML", func(p *email.SendEmailParams) { p.BodyHTML = "" }, "BodyHTML is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params := valid
			tt.mutate(&params)

			err := params.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("writes one outbox file per message", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir)

		params := email.SendEmailParams{
			SendTo:   "patient@example.com",
			Subject:  "Appointment Reminder",
			BodyHTML: "<p>Tomorrow at 10:00 with Dr. Lima</p>",
			BodyText: "Tomorrow at 10:00 with Dr. Lima",
			Tag:      "reminder",
		}
		id, err := sender.SendEmail(ctx, params)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(id, "_reminder"))

		raw, err := os.ReadFile(filepath.Join(dir, id+".json"))
		require.NoError(t, err)

		var msg email.OutboxMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, params, msg.SendEmailParams)
		assert.False(t, msg.QueuedAt.IsZero())

		second, err := sender.SendEmail(ctx, params)
		require.NoError(t, err)
		assert.NotEqual(t, id, second)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})

	t.Run("subject is used without tag", func(t *testing.T) {
		t.Parallel()

		sender := email.NewDevSender(t.TempDir())

		id, err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   "patient@example.com",
			Subject:  "Appointment Cancelled!",
			BodyHTML: "<p>Cancelled</p>",
		})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(id, "_appointment_cancelled"))
	})

	t.Run("invalid params write nothing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir)

		_, err := sender.SendEmail(ctx, email.SendEmailParams{Subject: "x", BodyHTML: "x"})
		assert.ErrorIs(t, err, email.ErrInvalidParams)

		files, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("directory cannot be created", func(t *testing.T) {
		t.Parallel()

		sender := email.NewDevSender("/dev/null/cannot-create-here")

		_, err := sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   "patient@example.com",
			Subject:  "Reminder",
			BodyHTML: "<p>x</p>",
		})
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
		assert.Contains(t, err.Error(), "failed to create outbox directory")
	})
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	sender, err := email.NewSender(email.Config{DevOutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, sender)

	sender, err = email.NewSender(email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "no-reply@clinic.example.com",
	})
	require.NoError(t, err)
	_, isDev := sender.(*email.DevSender)
	assert.False(t, isDev)
}
