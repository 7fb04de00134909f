package courier

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/nazarhussain/lead-courier/internal/mailer"
)

// Values reaching these templates are already escaped with Sanitize, so
// text/template is used on purpose: html/template would escape them twice.
//
//go:embed templates/*.tmpl
var templateFS embed.FS

type templateField struct {
	Label string
	Value string
}

var mailTemplates = template.Must(
	template.New("mail").
		Funcs(template.FuncMap{
			"field": func(label, value string) templateField {
				return templateField{Label: label, Value: value}
			},
		}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

type mailData struct {
	Brand        string
	ContactEmail string
	Year         int
	Sub          any
	Raw          any
	Meta         requestMeta
}

func render(name string, data mailData) (string, error) {
	var b strings.Builder
	if err := mailTemplates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// contactEmails returns the business notification followed by the
// auto-reply to the submitter.
func contactEmails(mc MailCfg, raw ContactRequest, sub contactSubmission, meta requestMeta) ([]mailer.Message, error) {
	data := mailData{
		Brand:        mc.BrandName,
		ContactEmail: mc.ContactEmail,
		Year:         meta.SubmittedAt.Year(),
		Sub:          sub,
		Raw:          raw,
		Meta:         meta,
	}

	notifyHTML, err := render("contact_notification.html.tmpl", data)
	if err != nil {
		return nil, err
	}
	notifyText, err := render("contact_notification.txt.tmpl", data)
	if err != nil {
		return nil, err
	}
	replyHTML, err := render("contact_autoreply.html.tmpl", data)
	if err != nil {
		return nil, err
	}

	return []mailer.Message{
		{
			From:    mc.From(),
			To:      []string{mc.ContactEmail},
			ReplyTo: sub.Address,
			Subject: "New Contact Form: " + sub.HeaderName,
			HTML:    notifyHTML,
			Text:    notifyText,
		},
		{
			From:    mc.From(),
			To:      []string{sub.Address},
			ReplyTo: mc.ContactEmail,
			Subject: fmt.Sprintf("Thanks for reaching out to %s!", mc.BrandName),
			HTML:    replyHTML,
		},
	}, nil
}

func subscribeEmails(mc MailCfg, raw SubscribeRequest, sub subscribeSubmission, meta requestMeta) ([]mailer.Message, error) {
	data := mailData{
		Brand:        mc.BrandName,
		ContactEmail: mc.ContactEmail,
		Year:         meta.SubmittedAt.Year(),
		Sub:          sub,
		Raw:          raw,
		Meta:         meta,
	}

	leadHTML, err := render("subscribe_lead.html.tmpl", data)
	if err != nil {
		return nil, err
	}
	leadText, err := render("subscribe_lead.txt.tmpl", data)
	if err != nil {
		return nil, err
	}
	replyHTML, err := render("subscribe_autoreply.html.tmpl", data)
	if err != nil {
		return nil, err
	}

	return []mailer.Message{
		{
			From:    mc.From(),
			To:      []string{mc.ContactEmail},
			ReplyTo: sub.Address,
			Subject: fmt.Sprintf("New Lead: %s requested free audit", sub.Address),
			HTML:    leadHTML,
			Text:    leadText,
		},
		{
			From:    mc.From(),
			To:      []string{sub.Address},
			ReplyTo: mc.ContactEmail,
			Subject: "Your Free Website Audit is Coming!",
			HTML:    replyHTML,
		},
	}, nil
}

// dispatch sends msgs in order and stops at the first failure. Messages
// already delivered are not recalled.
func dispatch(ctx context.Context, d mailer.Dispatcher, msgs []mailer.Message) error {
	for i, msg := range msgs {
		if err := d.Send(ctx, msg); err != nil {
			return fmt.Errorf("message %d/%d (%q): %w", i+1, len(msgs), msg.Subject, err)
		}
	}
	return nil
}
