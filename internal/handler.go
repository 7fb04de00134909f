package courier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nazarhussain/lead-courier/internal/mailer"
	"github.com/nazarhussain/lead-courier/internal/ratelimit"
)

const (
	contactSuccess   = "Thank you for your message! We'll get back to you within 24 hours."
	contactFailure   = "Something went wrong. Please try again later."
	subscribeSuccess = "You're in! Check your inbox for your free audit."
	subscribeFailure = "Something went wrong. Please try again."

	tooManyRequests = "Too many requests. Please try again later."
	badRequestBody  = "Invalid request body."
	payloadTooLarge = "Request body is too large."
)

type successBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server serves the contact and subscribe endpoints. Each endpoint has its
// own limiter so the two budgets never mix.
type Server struct {
	cfg       *Config
	contact   ratelimit.Limiter
	subscribe ratelimit.Limiter
	mail      mailer.Dispatcher
	forms     *formValidator
	now       func() time.Time
}

// NewServer wires the endpoints. A nil mail dispatcher makes the handlers log
// submissions instead of sending them.
func NewServer(cfg *Config, contact, subscribe ratelimit.Limiter, mail mailer.Dispatcher) *Server {
	return &Server{
		cfg:       cfg,
		contact:   contact,
		subscribe: subscribe,
		mail:      mail,
		forms:     newFormValidator(),
		now:       time.Now,
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	s.setCORS(w, r)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleContact(w http.ResponseWriter, r *http.Request) {
	s.setCORS(w, r)
	logger := LoggerFromContext(r.Context()).With("form", "contact")
	meta := s.requestMeta(r)

	var req ContactRequest
	if !s.decode(w, r, &req) {
		return
	}

	// Bots get the same answer as humans so they have nothing to adapt to.
	if req.Honeypot != "" {
		logger.Info("honeypot filled, submission dropped", "ip", meta.IP)
		writeJSON(w, http.StatusOK, successBody{Success: true, Message: contactSuccess})
		return
	}

	if !s.admit(w, r, s.contact, s.cfg.ContactRate, meta.IP) {
		return
	}

	req.trim()
	if err := s.forms.Check(req, contactMessages); err != nil {
		s.reject(w, r, err, contactFailure)
		return
	}

	sub := sanitizeContact(req, meta)

	if s.mail == nil {
		logger.Info("contact form submission (mail not configured)",
			"name", sub.Name,
			"email", sub.Email,
			"company", sub.Company,
			"phone", sub.Phone,
			"website", sub.Website,
			"service", sub.Service,
			"budget", sub.Budget,
			"message", sub.Message,
			"submitted_at", sub.SubmittedAt,
			"ip", meta.IP,
			"user_agent", meta.UserAgent,
		)
		writeJSON(w, http.StatusOK, successBody{Success: true, Message: contactSuccess})
		return
	}

	msgs, err := contactEmails(s.cfg.Mail, req, sub, meta)
	if err == nil {
		err = s.send(r.Context(), msgs)
	}
	if err != nil {
		logger.Error("contact form delivery failed", "err", err, "ip", meta.IP)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: contactFailure})
		return
	}

	logger.Info("contact form delivered", "ip", meta.IP)
	writeJSON(w, http.StatusOK, successBody{Success: true, Message: contactSuccess})
}

func (s *Server) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	s.setCORS(w, r)
	logger := LoggerFromContext(r.Context()).With("form", "subscribe")
	meta := s.requestMeta(r)

	var req SubscribeRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Honeypot != "" {
		logger.Info("honeypot filled, submission dropped", "ip", meta.IP)
		writeJSON(w, http.StatusOK, successBody{Success: true, Message: subscribeSuccess})
		return
	}

	if !s.admit(w, r, s.subscribe, s.cfg.SubscribeRate, meta.IP) {
		return
	}

	req.trim()
	if err := s.forms.Check(req, subscribeMessages); err != nil {
		s.reject(w, r, err, subscribeFailure)
		return
	}

	sub := sanitizeSubscribe(req, meta)

	if s.mail == nil {
		logger.Info("subscribe form submission (mail not configured)",
			"email", sub.Email,
			"source", sub.Source,
			"submitted_at", sub.SubmittedAt,
		)
		writeJSON(w, http.StatusOK, successBody{Success: true, Message: subscribeSuccess})
		return
	}

	msgs, err := subscribeEmails(s.cfg.Mail, req, sub, meta)
	if err == nil {
		err = s.send(r.Context(), msgs)
	}
	if err != nil {
		logger.Error("subscribe form delivery failed", "err", err, "ip", meta.IP)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: subscribeFailure})
		return
	}

	logger.Info("subscribe form delivered", "ip", meta.IP, "source", sub.Source)
	writeJSON(w, http.StatusOK, successBody{Success: true, Message: subscribeSuccess})
}

func (s *Server) requestMeta(r *http.Request) requestMeta {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		ua = "unknown"
	}
	return requestMeta{
		IP:          clientIP(r),
		UserAgent:   ua,
		SubmittedAt: s.now(),
	}
}

// decode reads the capped JSON body into v. It writes the error response
// itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	maxBytes := int64(s.cfg.MaxBodyKB) * 1024
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: payloadTooLarge})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: badRequestBody})
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		LoggerFromContext(r.Context()).Debug("undecodable body", "err", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: badRequestBody})
		return false
	}
	return true
}

// admit consults the limiter. A failing limiter (Redis down) lets the
// request through rather than blocking every visitor.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, lim ratelimit.Limiter, rule ratelimit.Rule, key string) bool {
	dec, err := lim.Check(r.Context(), key)
	if err != nil {
		LoggerFromContext(r.Context()).Warn("rate limiter unavailable, admitting request", "err", err)
		return true
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

	if !dec.Allowed {
		LoggerFromContext(r.Context()).Info("rate limited", "ip", key)
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds(rule)))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: tooManyRequests})
		return false
	}
	return true
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, err error, failure string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Message})
		return
	}
	LoggerFromContext(r.Context()).Error("validator failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: failure})
}

func (s *Server) send(ctx context.Context, msgs []mailer.Message) error {
	if t := s.cfg.Mail.SendTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return dispatch(ctx, s.mail, msgs)
}

func (s *Server) setCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	for _, ao := range s.cfg.AllowedOrigins {
		if ao == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			return
		}
		if origin != "" && origin == ao {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			return
		}
	}
}

// clientIP is a best-effort, spoofable identity used only to throttle abuse.
// Callers without proxy headers all share the "unknown" bucket.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return xr
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
