// Package mailer sends rendered notifications through a sender's SMTP server.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

const DefaultDialTimeout = 15 * time.Second

var ErrNoRecipients = errors.New("no recipients defined")

// SMTPMailer opens one SMTP session per message using the sender's own
// server settings.
type SMTPMailer struct {
	dialTimeout time.Duration
	logger      *slog.Logger
}

func NewSMTPMailer(dialTimeout time.Duration, logger *slog.Logger) *SMTPMailer {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &SMTPMailer{dialTimeout: dialTimeout, logger: logger}
}

// Send delivers msg and returns its Message-ID header.
func (m *SMTPMailer) Send(ctx context.Context, sender domain.Sender, msg domain.Message) (string, error) {
	recipients := splitRecipients(msg.To)
	if len(recipients) == 0 {
		return "", ErrNoRecipients
	}

	email := mail.NewMsg()
	if err := email.FromFormat(sender.FromName, sender.FromEmail); err != nil {
		return "", fmt.Errorf("setting from address: %w", err)
	}
	if err := email.To(recipients...); err != nil {
		return "", fmt.Errorf("setting recipients: %w", err)
	}
	email.Subject(msg.Subject)

	id := messageID(sender.FromEmail)
	email.SetMessageIDWithValue(id)

	contentType := mail.TypeTextPlain
	if msg.IsHTML {
		contentType = mail.TypeTextHTML
	}
	email.SetBodyString(contentType, msg.Body)

	client, err := m.client(sender)
	if err != nil {
		return "", err
	}
	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return "", fmt.Errorf("sending mail: %w", err)
	}

	m.logger.Debug("mail sent",
		"sender_id", sender.ID,
		"recipients", len(recipients),
	)
	return "<" + id + ">", nil
}

// Verify connects and authenticates against the sender's server without
// sending anything.
func (m *SMTPMailer) Verify(ctx context.Context, sender domain.Sender) error {
	client, err := m.client(sender)
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("connecting to %s:%d: %w", sender.Host, sender.Port, err)
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("closing smtp session: %w", err)
	}
	return nil
}

func (m *SMTPMailer) client(sender domain.Sender) (*mail.Client, error) {
	opts := []mail.Option{mail.WithTimeout(m.dialTimeout)}
	if sender.Port > 0 {
		opts = append(opts, mail.WithPort(sender.Port))
	}
	if sender.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if sender.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(sender.User),
			mail.WithPassword(sender.Secret),
		)
	}

	client, err := mail.NewClient(sender.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}
	return client, nil
}

// splitRecipients accepts a comma separated address list.
func splitRecipients(to string) []string {
	var out []string
	for _, part := range strings.Split(to, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func messageID(fromEmail string) string {
	domainPart := "localhost"
	if at := strings.LastIndex(fromEmail, "@"); at >= 0 && at < len(fromEmail)-1 {
		domainPart = fromEmail[at+1:]
	}
	return uuid.NewString() + "@" + domainPart
}
