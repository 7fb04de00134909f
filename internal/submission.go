package courier

import (
	"strings"
	"time"
)

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,simpleemail"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	Service  string `json:"service,omitempty"`
	Budget   string `json:"budget,omitempty"`
	Message  string `json:"message" validate:"required,min=10,max=5000"`
	Honeypot string `json:"honeypot,omitempty"`
}

// SubscribeRequest is the body of POST /api/subscribe.
type SubscribeRequest struct {
	Email    string `json:"email" validate:"required,simpleemail"`
	Source   string `json:"source,omitempty"`
	Honeypot string `json:"honeypot,omitempty"`
}

// requestMeta is what we know about the caller besides the form itself.
type requestMeta struct {
	IP          string
	UserAgent   string
	SubmittedAt time.Time
}

const submittedAtLayout = "Monday, January 2, 2006 at 03:04 PM MST"

func (m requestMeta) submittedAt() string {
	return m.SubmittedAt.UTC().Format(submittedAtLayout)
}

func (r *ContactRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Message = strings.TrimSpace(r.Message)
}

func (r *SubscribeRequest) trim() {
	r.Email = strings.TrimSpace(r.Email)
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		r.Source = "website"
	}
}

// contactSubmission is a validated contact form with every free-text field
// HTML-escaped. Optional fields stay empty when they were not sent.
type contactSubmission struct {
	// Address and HeaderName are unescaped, for mail headers only.
	Address     string
	HeaderName  string
	Name        string
	Email       string
	Company     string
	Phone       string
	Website     string
	Service     string
	Budget      string
	Message     string
	SubmittedAt string
	IP          string
	UserAgent   string
}

func sanitizeContact(r ContactRequest, meta requestMeta) contactSubmission {
	return contactSubmission{
		Address:     strings.ToLower(r.Email),
		HeaderName:  headerSafe(r.Name),
		Name:        Sanitize(r.Name),
		Email:       Sanitize(strings.ToLower(r.Email)),
		Company:     Sanitize(r.Company),
		Phone:       Sanitize(r.Phone),
		Website:     Sanitize(r.Website),
		Service:     Sanitize(r.Service),
		Budget:      Sanitize(r.Budget),
		Message:     Sanitize(r.Message),
		SubmittedAt: meta.submittedAt(),
		IP:          Sanitize(meta.IP),
		UserAgent:   Sanitize(meta.UserAgent),
	}
}

type subscribeSubmission struct {
	Address     string
	Email       string
	Source      string
	SubmittedAt string
}

func sanitizeSubscribe(r SubscribeRequest, meta requestMeta) subscribeSubmission {
	return subscribeSubmission{
		Address:     strings.ToLower(r.Email),
		Email:       Sanitize(strings.ToLower(r.Email)),
		Source:      Sanitize(r.Source),
		SubmittedAt: meta.submittedAt(),
	}
}

// headerSafe drops control characters so user input cannot add mail headers.
func headerSafe(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s))
}
