package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	SSL  bool
}

// SMTPDispatcher sends through an SMTP relay. The underlying client has no
// context support, so ctx is only checked before the send starts.
type SMTPDispatcher struct {
	cfg SMTPConfig

	// swapped in tests
	sendFunc func(cfg SMTPConfig, e *email.Email) error
}

var _ Dispatcher = (*SMTPDispatcher)(nil)

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg, sendFunc: sendSMTP}
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = msg.From
	e.To = msg.To
	if msg.ReplyTo != "" {
		e.ReplyTo = []string{msg.ReplyTo}
	}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	if msg.Text != "" {
		e.Text = []byte(msg.Text)
	}

	if err := d.sendFunc(d.cfg, e); err != nil {
		return fmt.Errorf("smtp send to %s: %w", d.cfg.Host, err)
	}
	return nil
}

func sendSMTP(cfg SMTPConfig, e *email.Email) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if cfg.SSL {
		return e.SendWithTLS(addr, auth, &tls.Config{ServerName: cfg.Host})
	}
	return e.Send(addr, auth)
}
