package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/resend/resend-go/v2"
)

func testMessage() Message {
	return Message{
		From:    "WebsitesForMorons <contact@example.com>",
		To:      []string{"hello@example.com"},
		ReplyTo: "alice@example.com",
		Subject: "New Contact Form: Alice",
		HTML:    "<p>Hello there</p>",
		Text:    "Hello there",
	}
}

func TestSMTPDispatcherBuildsEmail(t *testing.T) {
	d := NewSMTPDispatcher(SMTPConfig{Host: "smtp.example.com", Port: 587, User: "user", Pass: "pass"})

	var captured *email.Email
	d.sendFunc = func(cfg SMTPConfig, e *email.Email) error {
		if cfg.Host != "smtp.example.com" {
			t.Fatalf("unexpected host: %s", cfg.Host)
		}
		captured = e
		return nil
	}

	if err := d.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured == nil {
		t.Fatal("expected email to be captured")
	}
	if got, want := captured.To[0], "hello@example.com"; got != want {
		t.Fatalf("unexpected recipient: got %q want %q", got, want)
	}
	if got, want := captured.ReplyTo[0], "alice@example.com"; got != want {
		t.Fatalf("unexpected reply-to: got %q want %q", got, want)
	}
	if got := string(captured.HTML); !strings.Contains(got, "Hello there") {
		t.Fatalf("html body missing content: %q", got)
	}
	if got := string(captured.Text); got != "Hello there" {
		t.Fatalf("unexpected text body: %q", got)
	}
}

func TestSMTPDispatcherWrapsErrors(t *testing.T) {
	d := NewSMTPDispatcher(SMTPConfig{Host: "smtp.example.com", Port: 587})
	boom := errors.New("connection refused")
	d.sendFunc = func(SMTPConfig, *email.Email) error { return boom }

	err := d.Send(context.Background(), testMessage())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestSMTPDispatcherHonoursCancelledContext(t *testing.T) {
	d := NewSMTPDispatcher(SMTPConfig{Host: "smtp.example.com", Port: 587})
	var calls int
	d.sendFunc = func(SMTPConfig, *email.Email) error {
		calls++
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Send(ctx, testMessage()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no send, got %d", calls)
	}
}

func TestDispatchersRejectMissingRecipient(t *testing.T) {
	msg := testMessage()
	msg.To = nil

	smtpD := NewSMTPDispatcher(SMTPConfig{Host: "smtp.example.com", Port: 587})
	if err := smtpD.Send(context.Background(), msg); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("smtp: expected ErrNoRecipient, got %v", err)
	}

	resendD := &ResendDispatcher{emails: &fakeResend{}}
	if err := resendD.Send(context.Background(), msg); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("resend: expected ErrNoRecipient, got %v", err)
	}
}

type fakeResend struct {
	reqs []*resend.SendEmailRequest
	err  error
}

func (f *fakeResend) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.reqs = append(f.reqs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "email_123"}, nil
}

func TestResendDispatcherMapsMessage(t *testing.T) {
	fake := &fakeResend{}
	d := &ResendDispatcher{emails: fake}

	if err := d.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(fake.reqs))
	}
	req := fake.reqs[0]
	if req.Subject != "New Contact Form: Alice" || req.ReplyTo != "alice@example.com" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Html != "<p>Hello there</p>" || req.Text != "Hello there" {
		t.Fatalf("unexpected bodies: %+v", req)
	}
}

func TestResendDispatcherWrapsErrors(t *testing.T) {
	boom := errors.New("422 validation_error")
	d := &ResendDispatcher{emails: &fakeResend{err: boom}}

	if err := d.Send(context.Background(), testMessage()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

type countingDispatcher struct{ n int }

func (c *countingDispatcher) Send(context.Context, Message) error {
	c.n++
	return nil
}

func TestThrottledDisabledReturnsNext(t *testing.T) {
	next := &countingDispatcher{}
	if got := NewThrottled(next, 0, 0); got != Dispatcher(next) {
		t.Fatalf("expected the wrapped dispatcher to be returned as is")
	}
}

func TestThrottledWaitsForSlot(t *testing.T) {
	next := &countingDispatcher{}
	d := NewThrottled(next, 0.001, 1)

	if err := d.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("first send should pass the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Send(ctx, testMessage()); err == nil {
		t.Fatal("expected second send to give up waiting for a slot")
	}
	if next.n != 1 {
		t.Fatalf("expected one delivered message, got %d", next.n)
	}
}
