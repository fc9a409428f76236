// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpTimeout = 30 * time.Second

// Mail is a plain-text email.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers mail.
type Sender interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPSender sends through an SMTP relay, upgrading to TLS when offered.
// Sends are not safe for concurrent use.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSender returns an SMTP sender for addr (host:port), or a log-only sender
// when addr is empty.
func NewSender(addr, username, password, from string) (Sender, error) {
	if addr == "" {
		log.Printf("mailer disabled, using log sender: empty smtp addr")
		return LogSender{}, nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", portStr, err)
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(smtpTimeout),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: from}, nil
}

// Send dials the relay and delivers m. Canceling ctx aborts the dial.
func (s *SMTPSender) Send(ctx context.Context, m Mail) error {
	msg, err := newMessage(s.from, m)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

func newMessage(from string, m Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	return msg, nil
}

// LogSender only logs; used when no relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m Mail) error {
	log.Printf("mailer log send to=%s subject=%q", m.To, m.Subject)
	return nil
}
