package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"campaign-messaging-api/models"

	mail "github.com/go-mail/mail/v2"
	"github.com/google/uuid"
)

// SMTPMailer delivers rendered campaign messages over SMTP.
type SMTPMailer struct {
	settings SMTPSettings
	send     func(m *mail.Message) error
}

func NewSMTPMailer(s SMTPSettings) *SMTPMailer {
	m := &SMTPMailer{settings: s}
	m.send = m.dialAndSend
	return m
}

// Send returns the Message-ID assigned to the outgoing mail.
func (m *SMTPMailer) Send(ctx context.Context, msg models.OutboundMessage) (string, error) {
	if len(msg.Recipients) == 0 {
		return "", fmt.Errorf("no recipients")
	}
	if m.settings.Host == "" || m.settings.From == "" {
		return "", fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), messageIDDomain(m.settings.From, m.settings.Host))

	mm := mail.NewMessage()
	mm.SetHeader("From", m.settings.From)
	mm.SetHeader("To", msg.Recipients...)
	mm.SetHeader("Subject", msg.Subject)
	mm.SetHeader("Message-ID", messageID)
	if msg.ReplyTo != nil && strings.TrimSpace(*msg.ReplyTo) != "" {
		mm.SetHeader("Reply-To", strings.TrimSpace(*msg.ReplyTo))
	}
	mm.SetBody("text/html", msg.Body)

	if err := m.send(mm); err != nil {
		return "", err
	}
	return messageID, nil
}

func (m *SMTPMailer) dialAndSend(mm *mail.Message) error {
	d := mail.NewDialer(m.settings.Host, m.settings.Port, m.settings.User, m.settings.Pass)

	// STARTTLS is mandatory on 587 for the usual relay providers.
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.settings.Host,
		InsecureSkipVerify: m.settings.SkipTLSVerify, // dev only
	}

	return d.DialAndSend(mm)
}

func messageIDDomain(from, host string) string {
	addr := from
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		addr = strings.TrimSuffix(addr[i+1:], ">")
	}
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return strings.TrimSpace(addr[i+1:])
	}
	return host
}
