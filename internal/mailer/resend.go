package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// resendEmails is the slice of the Resend client we use.
type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendDispatcher struct {
	emails resendEmails
}

var _ Dispatcher = (*ResendDispatcher)(nil)

func NewResendDispatcher(apiKey string) *ResendDispatcher {
	client := resend.NewClient(apiKey)
	return &ResendDispatcher{emails: client.Emails}
}

func (d *ResendDispatcher) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	if _, err := d.emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
