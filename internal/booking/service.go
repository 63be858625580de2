// Package booking runs a website booking form submission from raw fields to
// a stored lead.
package booking

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/aesthetic-leads/internal/leads"
	"github.com/wolfman30/aesthetic-leads/internal/observability/metrics"
	"github.com/wolfman30/aesthetic-leads/internal/ratelimit"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

// ConfirmationPath is where successful submissions are sent.
const ConfirmationPath = "/booking/confirmation"

const notifyTimeout = 10 * time.Second

// User-facing messages. None of them mention store internals.
const (
	MessageInvalid        = "Please check the highlighted fields and try again."
	MessageConsentMissing = "Please tick the consent box so we can contact you about your enquiry."
	MessageRateLimited    = "You've sent several requests in the last hour. Please try again later"
	MessageUnavailable    = "We couldn't send your request just now. Please try again in a few minutes."
)

// Outcome classifies how a submission ended.
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeHoneypot       Outcome = "honeypot"
	OutcomeInvalid        Outcome = "invalid"
	OutcomeConsentMissing Outcome = "consent_missing"
	OutcomeRateLimited    Outcome = "rate_limited"
	OutcomeUnavailable    Outcome = "unavailable"
)

// Result is what the form layer needs to answer the visitor.
type Result struct {
	Outcome     Outcome
	Error       string
	FieldErrors leads.FieldErrors
	LeadID      string
	FirstName   string
	Reference   string
	RetryAfter  time.Duration
}

// Succeeded reports whether the visitor should see the confirmation page.
// Honeypot hits look successful on purpose.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeAccepted || r.Outcome == OutcomeHoneypot
}

// RedirectURL is the confirmation path carrying the reference and first
// name, or "" for failed submissions.
func (r Result) RedirectURL() string {
	if !r.Succeeded() {
		return ""
	}
	q := url.Values{}
	q.Set("ref", r.Reference)
	if r.FirstName != "" {
		q.Set("name", r.FirstName)
	}
	return ConfirmationPath + "?" + q.Encode()
}

// RateLimiter decides whether a client may submit again.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string) (ratelimit.Decision, error)
}

// LeadCreator persists validated leads.
type LeadCreator interface {
	Create(ctx context.Context, lead *leads.ValidatedLead) (*leads.Lead, error)
}

// Notifier is told about each stored lead.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead *leads.Lead) error
}

// Service orchestrates one submission: honeypot, validation, rate limit,
// persistence, reference.
type Service struct {
	limiter       RateLimiter
	leads         LeadCreator
	notifier      Notifier
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
	contactNumber string
	newID         func() string

	pending sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the post-submit notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records outcomes and store latency.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithContactNumber adds a WhatsApp number to the rate limit message.
func WithContactNumber(number string) Option {
	return func(s *Service) { s.contactNumber = strings.TrimSpace(number) }
}

// NewService wires the orchestrator.
func NewService(limiter RateLimiter, creator LeadCreator, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		limiter: limiter,
		leads:   creator,
		logger:  logger,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs the pipeline for one form post from clientID. It never
// returns an error: every failure becomes a Result the visitor can read.
func (s *Service) Submit(ctx context.Context, fields map[string]string, clientID string) Result {
	res := s.submit(ctx, fields, clientID)
	s.metrics.ObserveSubmission(string(res.Outcome))
	return res
}

func (s *Service) submit(ctx context.Context, fields map[string]string, clientID string) Result {
	if fields[leads.FieldHoneypot] != "" {
		s.logger.Info("booking honeypot triggered", "client_id", clientID)
		return Result{
			Outcome:   OutcomeHoneypot,
			FirstName: strings.TrimSpace(fields[leads.FieldFirstName]),
			Reference: leads.Reference(s.newID()),
		}
	}

	validated, fieldErrs := leads.Validate(fields)
	if len(fieldErrs) > 0 {
		if fieldErrs.ConsentMissing() {
			return Result{Outcome: OutcomeConsentMissing, Error: MessageConsentMissing, FieldErrors: fieldErrs}
		}
		return Result{Outcome: OutcomeInvalid, Error: MessageInvalid, FieldErrors: fieldErrs}
	}

	if s.limiter == nil || s.leads == nil {
		s.logger.Error("booking service not configured", "client_id", clientID)
		return s.unavailable()
	}

	start := time.Now()
	decision, err := s.limiter.Allow(ctx, clientID)
	s.metrics.ObserveStoreCall("rate_limit", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Error("rate limit check failed", "error", err, "client_id", clientID)
		return s.unavailable()
	}
	if !decision.Allowed {
		s.logger.Warn("booking rate limited", "client_id", clientID, "count", decision.Count, "limit", decision.Limit)
		return Result{Outcome: OutcomeRateLimited, Error: s.rateLimitedMessage(), RetryAfter: decision.RetryAfter}
	}

	// The counter increment above stays even if this insert fails.
	start = time.Now()
	lead, err := s.leads.Create(ctx, validated)
	s.metrics.ObserveStoreCall("leads", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Error("lead create failed", "error", err, "client_id", clientID)
		return s.unavailable()
	}

	s.logger.Info("booking lead created", "lead_id", lead.ID, "client_id", clientID, "target_area", lead.TargetArea)
	s.notifyAsync(ctx, lead)

	return Result{
		Outcome:   OutcomeAccepted,
		LeadID:    lead.ID,
		FirstName: lead.FirstName,
		Reference: lead.Reference(),
	}
}

// notifyAsync sends the new-lead email off the request path. Wait blocks
// until every send started here has returned.
func (s *Service) notifyAsync(ctx context.Context, lead *leads.Lead) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyNewLead(ctx, lead); err != nil {
			s.logger.Warn("new lead notification failed", "error", err, "lead_id", lead.ID)
		}
	}()
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) rateLimitedMessage() string {
	if s.contactNumber == "" {
		return MessageRateLimited + "."
	}
	return fmt.Sprintf("%s or message us on WhatsApp at %s.", MessageRateLimited, s.contactNumber)
}

func (s *Service) unavailable() Result {
	return Result{Outcome: OutcomeUnavailable, Error: MessageUnavailable}
}
