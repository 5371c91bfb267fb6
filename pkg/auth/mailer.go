package auth

import (
	"context"
	"fmt"
	"html"

	"github.com/dmitrymomot/authkit/pkg/email"
)

// Mailer dispatches the three transactional emails of the authentication
// flows. Dispatch is synchronous and fire-and-forget: no retry logic lives
// here, and tokens are always persisted before dispatch is attempted.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, tokenValue string) error
	SendTwoFactorCode(ctx context.Context, to, code string) error
	SendPasswordResetEmail(ctx context.Context, to, tokenValue string) error
}

type authMailer struct {
	sender email.EmailSender
	appURL string
}

// NewMailer creates a Mailer on top of the given sender. appURL is the
// public base URL embedded in confirmation and reset links.
func NewMailer(sender email.EmailSender, appURL string) Mailer {
	return &authMailer{sender: sender, appURL: appURL}
}

func (m *authMailer) SendVerificationEmail(ctx context.Context, to, tokenValue string) error {
	link := fmt.Sprintf("%s/auth/confirm?token=%s", m.appURL, tokenValue)
	body := fmt.Sprintf(
		`<p>Confirm your email address by following <a href="%s">this link</a>.</p><p>The link is valid for one hour.</p>`,
		html.EscapeString(link),
	)
	return m.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  "Email Confirmation",
		BodyHTML: body,
		Tag:      "verification",
	})
}

func (m *authMailer) SendTwoFactorCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		`<p>Your login code is <strong>%s</strong>.</p><p>It expires in 15 minutes. If you did not try to log in, ignore this email.</p>`,
		html.EscapeString(code),
	)
	return m.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  "Two-Factor Login Code",
		BodyHTML: body,
		Tag:      "two-factor",
	})
}

func (m *authMailer) SendPasswordResetEmail(ctx context.Context, to, tokenValue string) error {
	link := fmt.Sprintf("%s/auth/password/reset?token=%s", m.appURL, tokenValue)
	body := fmt.Sprintf(
		`<p>Reset your password by following <a href="%s">this link</a>.</p><p>The link is valid for one hour. If you did not request a reset, ignore this email.</p>`,
		html.EscapeString(link),
	)
	return m.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  "Password Reset",
		BodyHTML: body,
		Tag:      "password-reset",
	})
}

// Compile-time interface assertion
var _ Mailer = (*authMailer)(nil)
