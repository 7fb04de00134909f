package courier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nazarhussain/lead-courier/env"
	"github.com/nazarhussain/lead-courier/internal/mailer"
	"github.com/nazarhussain/lead-courier/internal/ratelimit"
)

/*
ENV-ONLY CONFIG (cmd/api loads a .env file from the working directory first):
  Server:
    LISTEN_ADDR (default ":3000")
    MAX_BODY_KB (default 64)
    CORS_ALLOWED_ORIGINS (default "*"; comma-separated list to restrict)

  Rate limiting (fixed window per client IP, one budget per endpoint):
    CONTACT_RATE_LIMIT (default 5), CONTACT_RATE_WINDOW (default 60s)
    SUBSCRIBE_RATE_LIMIT (default 3), SUBSCRIBE_RATE_WINDOW (default 60s)
    RATE_LIMIT_STORE ("memory" or "redis", default "memory")
    RATE_LIMIT_SWEEP_EVERY (default 5m, memory store only)
    REDIS_URL (default "redis://localhost:6379/0")
    RATE_LIMIT_REDIS_PREFIX (default "ratelimit")

  Mail (Resend wins over SMTP; with neither, submissions are only logged):
    RESEND_API_KEY
    SMTP_HOST, SMTP_PORT (587), SMTP_USER, SMTP_PASS, SMTP_SSL (false)
    CONTACT_EMAIL (default "hello@websitesformorons.com")
    FROM_EMAIL (default "contact@websitesformorons.com")
    BRAND_NAME (default "WebsitesForMorons")
    MAIL_SEND_RPS (default 2), MAIL_SEND_BURST (default 2)
    MAIL_SEND_TIMEOUT (default 0, no timeout)
*/

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type MailCfg struct {
	ResendAPIKey string
	SMTP         *mailer.SMTPConfig
	ContactEmail string
	FromEmail    string
	BrandName    string
	SendRPS      float64
	SendBurst    int
	SendTimeout  time.Duration
}

// From renders the sender header, e.g. "WebsitesForMorons <contact@...>".
func (m MailCfg) From() string {
	return fmt.Sprintf("%s <%s>", m.BrandName, m.FromEmail)
}

// Enabled reports whether any delivery provider is configured.
func (m MailCfg) Enabled() bool {
	return m.ResendAPIKey != "" || m.SMTP != nil
}

type Config struct {
	ListenAddr     string
	MaxBodyKB      int
	AllowedOrigins []string

	ContactRate   ratelimit.Rule
	SubscribeRate ratelimit.Rule
	RateStore     string
	SweepEvery    time.Duration
	RedisURL      string
	RedisPrefix   string

	Mail MailCfg
}

func LoadConfig() (*Config, error) {
	var errs []error
	intVar := func(k string, d int) int {
		n, err := env.EnvInt(k, d)
		errs = append(errs, err)
		return n
	}
	durVar := func(k string, d time.Duration) time.Duration {
		v, err := env.EnvDuration(k, d)
		errs = append(errs, err)
		return v
	}

	cfg := &Config{
		ListenAddr:     env.Env("LISTEN_ADDR", ":3000"),
		MaxBodyKB:      intVar("MAX_BODY_KB", 64),
		AllowedOrigins: env.EnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ContactRate: ratelimit.Rule{
			Limit:  intVar("CONTACT_RATE_LIMIT", 5),
			Window: durVar("CONTACT_RATE_WINDOW", time.Minute),
		},
		SubscribeRate: ratelimit.Rule{
			Limit:  intVar("SUBSCRIBE_RATE_LIMIT", 3),
			Window: durVar("SUBSCRIBE_RATE_WINDOW", time.Minute),
		},
		RateStore:   strings.ToLower(env.Env("RATE_LIMIT_STORE", StoreMemory)),
		SweepEvery:  durVar("RATE_LIMIT_SWEEP_EVERY", 5*time.Minute),
		RedisURL:    env.Env("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: env.Env("RATE_LIMIT_REDIS_PREFIX", "ratelimit"),
		Mail: MailCfg{
			ResendAPIKey: env.Env("RESEND_API_KEY", ""),
			ContactEmail: env.Env("CONTACT_EMAIL", "hello@websitesformorons.com"),
			FromEmail:    env.Env("FROM_EMAIL", "contact@websitesformorons.com"),
			BrandName:    env.Env("BRAND_NAME", "WebsitesForMorons"),
			SendBurst:    intVar("MAIL_SEND_BURST", 2),
			SendTimeout:  durVar("MAIL_SEND_TIMEOUT", 0),
		},
	}

	rps, err := env.EnvFloat("MAIL_SEND_RPS", 2)
	errs = append(errs, err)
	cfg.Mail.SendRPS = rps

	if host := env.Env("SMTP_HOST", ""); host != "" {
		ssl, err := env.EnvBool("SMTP_SSL", false)
		errs = append(errs, err)
		cfg.Mail.SMTP = &mailer.SMTPConfig{
			Host: host,
			Port: intVar("SMTP_PORT", 587),
			User: env.Env("SMTP_USER", ""),
			Pass: env.Env("SMTP_PASS", ""),
			SSL:  ssl,
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	for name, r := range map[string]ratelimit.Rule{"CONTACT": c.ContactRate, "SUBSCRIBE": c.SubscribeRate} {
		if r.Limit <= 0 {
			errs = append(errs, fmt.Errorf("%s_RATE_LIMIT must be positive", name))
		}
		if r.Window <= 0 {
			errs = append(errs, fmt.Errorf("%s_RATE_WINDOW must be positive", name))
		}
	}
	if c.MaxBodyKB <= 0 {
		errs = append(errs, errors.New("MAX_BODY_KB must be positive"))
	}
	switch c.RateStore {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unsupported RATE_LIMIT_STORE %q", c.RateStore))
	}
	if !emailRegex.MatchString(c.Mail.ContactEmail) {
		errs = append(errs, fmt.Errorf("CONTACT_EMAIL %q is not an email address", c.Mail.ContactEmail))
	}
	if !emailRegex.MatchString(c.Mail.FromEmail) {
		errs = append(errs, fmt.Errorf("FROM_EMAIL %q is not an email address", c.Mail.FromEmail))
	}
	return errors.Join(errs...)
}

// NewDispatcher picks the delivery provider. A nil dispatcher means
// submissions are logged instead of mailed.
func (c *Config) NewDispatcher() mailer.Dispatcher {
	var d mailer.Dispatcher
	switch {
	case c.Mail.ResendAPIKey != "":
		d = mailer.NewResendDispatcher(c.Mail.ResendAPIKey)
	case c.Mail.SMTP != nil:
		d = mailer.NewSMTPDispatcher(*c.Mail.SMTP)
	default:
		return nil
	}
	return mailer.NewThrottled(d, c.Mail.SendRPS, c.Mail.SendBurst)
}

// RetryAfterSeconds is the Retry-After value sent with a 429.
func RetryAfterSeconds(r ratelimit.Rule) int {
	secs := int(r.Window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
