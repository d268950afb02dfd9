// Package email delivers transactional mail. Locally messages are only
// logged; elsewhere they go out through Resend.
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is one outgoing email. Text is the plain-text alternative to HTML.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes the plain-text part to the log instead of sending.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (local)", "to", msg.To, "subject", msg.Subject, "text", msg.Text)
	return nil
}

type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// NewSender picks the sender for env: logging in local, Resend otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return NewLogSender(logger)
	}
	return NewResendSender(apiKey, from)
}

// InvitationLink is where the invitee lands to accept.
func InvitationLink(base, rawToken string) string {
	return base + "/invite?token=" + rawToken
}

// InvitationMessage builds the team invitation mail for to.
func InvitationMessage(to, teamName, inviterName, link string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("You've been invited to join %s", teamName),
		HTML: fmt.Sprintf(
			`<p>%s invited you to join the team <strong>%s</strong>.</p>`+
				`<p><a href="%s">Accept the invitation</a> (expires in 7 days).</p>`,
			html.EscapeString(inviterName), html.EscapeString(teamName), html.EscapeString(link),
		),
		Text: fmt.Sprintf(
			"%s invited you to join the team %s.\n\nAccept the invitation (expires in 7 days):\n%s\n",
			inviterName, teamName, link,
		),
	}
}
