// Package mailer delivers notification emails through a transactional
// provider (Resend) or a plain SMTP relay.
package mailer

import (
	"context"
	"errors"
)

// Message is a provider-neutral email. HTML is required; Text is an optional
// plain-text alternative.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("mailer: message has no recipient")

func (m Message) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipient
	}
	if m.From == "" {
		return errors.New("mailer: message has no sender")
	}
	return nil
}
