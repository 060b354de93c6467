/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

// Package notification sends transactional emails (order confirmations, invitations, password resets)
// through Resend, retrying transient failures with exponential backoff.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackeyesartisan/shopkit/httpclient"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/notification/resend"
	"github.com/blackeyesartisan/shopkit/retry"
)

// Default retry parameters.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

const unknownTemplateLabel = "unknown"

// Notification is a request to send an email rendered from a template.
type Notification struct {
	Template string
	To       string
	Data     map[string]interface{}
}

// EmailClient sends emails. It is implemented by *resend.Client.
type EmailClient interface {
	SendEmail(ctx context.Context, email resend.Email, idempotencyKey string) (resend.SendResult, error)
}

// SenderOpts represents options for Sender.
type SenderOpts struct {
	// MaxRetries is the maximum number of provider calls per notification (DefaultMaxRetries by default).
	MaxRetries int
	// RetryDelay is the delay before the second call, every next delay is doubled (DefaultRetryDelay by default).
	RetryDelay time.Duration
	// Templates overrides subjects and bodies of templates or adds new ones.
	Templates map[string]TemplateOverride
	Logger    log.FieldLogger
	Metrics   *PrometheusMetrics
	// Sleep waits between attempts. It may be replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// NewIdempotencyKey generates the key shared by all attempts of one notification.
	NewIdempotencyKey func() string
}

// Sender sends notifications. It never returns errors: failures are logged and reported
// as an empty result, so callers (order workflows) never fail because of an email.
type Sender struct {
	client     EmailClient
	from       string
	maxRetries int
	delays     []time.Duration
	templates  templateSet
	logger     log.FieldLogger
	metrics    *PrometheusMetrics
	sleep      func(ctx context.Context, d time.Duration) error
	newKey     func() string
}

// NewSender creates a new Sender.
func NewSender(client EmailClient, from string, opts SenderOpts) (*Sender, error) {
	if client == nil {
		return nil, errors.New("email client is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, errors.New("sender address (from) is required")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries should be positive, got %d", opts.MaxRetries)
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay should not be negative, got %s", opts.RetryDelay)
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.NewIdempotencyKey == nil {
		opts.NewIdempotencyKey = uuid.NewString
	}
	policy := retry.NewDoublingBackoffPolicy(opts.RetryDelay, opts.MaxRetries-1)
	return &Sender{
		client:     client,
		from:       from,
		maxRetries: opts.MaxRetries,
		delays:     retry.Delays(policy, opts.MaxRetries-1),
		templates:  templateSet{overrides: opts.Templates},
		logger:     log.OrDisabled(opts.Logger),
		metrics:    opts.Metrics,
		sleep:      opts.Sleep,
		newKey:     opts.NewIdempotencyKey,
	}, nil
}

// NewSenderFromConfig creates a Sender that talks to Resend through an HTTP client built from cfg.HTTP.
func NewSenderFromConfig(cfg *Config, logger log.FieldLogger, httpOpts httpclient.Opts, metrics *PrometheusMetrics) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("notification.apiKey is required")
	}
	if cfg.From == "" {
		return nil, errors.New("notification.from is required")
	}
	httpOpts.AuthProvider = httpclient.StaticTokenProvider(cfg.APIKey)
	if httpOpts.ProviderName == "" {
		httpOpts.ProviderName = "resend"
	}
	httpClient, err := httpclient.NewWithOpts(cfg.HTTP, httpOpts)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	client, err := resend.NewClient(httpClient, resend.ClientOpts{BaseURL: cfg.BaseURL})
	if err != nil {
		return nil, err
	}
	return NewSender(client, cfg.From, SenderOpts{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Templates:  cfg.Templates,
		Logger:     logger,
		Metrics:    metrics,
	})
}

// Templates returns the names of all templates the Sender can render.
func (s *Sender) Templates() []string {
	return s.templates.names()
}

// Send renders and sends the notification. It returns the provider id of the email
// and true on success, or an empty id and false if the email was not sent.
func (s *Sender) Send(ctx context.Context, n Notification) (string, bool) {
	startTime := time.Now()
	logger := s.logger.With(log.String("template", n.Template))

	if strings.TrimSpace(n.To) == "" {
		logger.Error("invalid recipient email address", log.String("to", n.To))
		s.metrics.observe(s.templateLabel(n.Template), sendResultInvalid, 0)
		return "", false
	}
	if !s.templates.has(n.Template) {
		logger.Error(fmt.Sprintf("email template not found: %s, valid templates: %s",
			n.Template, strings.Join(s.templates.names(), ", ")))
		s.metrics.observe(unknownTemplateLabel, sendResultInvalid, 0)
		return "", false
	}

	html, err := s.templates.render(n.Template, n.Data)
	if err != nil {
		logger.Error("failed to render email", log.Error(err))
		s.metrics.observe(n.Template, sendResultInvalid, 0)
		return "", false
	}
	email := resend.Email{
		From:    s.from,
		To:      []string{n.To},
		Subject: s.templates.subject(n.Template),
		HTML:    html,
	}

	id, attempts, err := s.sendWithRetry(ctx, logger, email)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to send email after %d attempt(s)", attempts), log.Error(err))
		s.metrics.observe(n.Template, sendResultFailed, attempts)
		return "", false
	}

	elapsed := time.Since(startTime)
	logger.Info(fmt.Sprintf("email sent successfully in %dms", elapsed.Milliseconds()),
		log.String("to", n.To),
		log.String("id", id),
		log.Int("attempts", attempts),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	)
	s.metrics.observe(n.Template, sendResultSent, attempts)
	return id, true
}

// sendWithRetry calls the provider at most maxRetries times.
// All attempts share one idempotency key so a retry after a lost response doesn't duplicate the email.
func (s *Sender) sendWithRetry(ctx context.Context, logger log.FieldLogger, email resend.Email) (string, int, error) {
	idempotencyKey := s.newKey()
	for attempt := 1; ; attempt++ {
		res, err := s.client.SendEmail(ctx, email, idempotencyKey)
		if err == nil {
			return res.ID, attempt, nil
		}
		if !IsRetryableError(err) || attempt >= s.maxRetries {
			return "", attempt, err
		}
		delay := s.delays[attempt-1]
		logger.Warn(fmt.Sprintf("email send failed (attempt %d/%d), retrying in %dms...",
			attempt, s.maxRetries, delay.Milliseconds()), log.Error(err))
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return "", attempt, fmt.Errorf("%w (retry aborted: %v)", err, sleepErr)
		}
	}
}

func (s *Sender) templateLabel(name string) string {
	if s.templates.has(name) {
		return name
	}
	return unknownTemplateLabel
}

// IsRetryableError reports whether sending may succeed if repeated:
// rate limiting and server-side failures of the provider, and temporary network errors.
func IsRetryableError(err error) bool {
	var apiErr *resend.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return apiErr.Name == resend.ErrorNameRateLimitExceeded
	}
	var waitErr *httpclient.RateLimitingWaitError
	if errors.As(err, &waitErr) {
		return true
	}
	return httpclient.IsTemporaryError(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
