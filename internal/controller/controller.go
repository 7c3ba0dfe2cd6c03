// Package controller runs the blind audit state machine:
//
//	IDLE -> AUDITING -> APPROVED
//	                 -> IDLE (rejected, retry_count+1)
//	                 -> LIMIT_EXCEEDED (draft submitted with retry_count >= max_retries)
//
// APPROVED and LIMIT_EXCEEDED only move back to IDLE through ResetSession.
package controller

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dagbolade/blind-auditor/internal/audit"
	"github.com/dagbolade/blind-auditor/internal/metrics"
	"github.com/dagbolade/blind-auditor/internal/report"
	"github.com/dagbolade/blind-auditor/internal/rules"
	"github.com/dagbolade/blind-auditor/internal/session"
	"github.com/rs/zerolog/log"
)

// MinPassingScore is the score floor for a passing verdict. It cannot be
// configured or bypassed by the caller.
const MinPassingScore = 80

const DefaultLanguage = "python"

type Controller struct {
	mu       sync.Mutex
	session  *session.Session
	rules    rules.Source
	trail    audit.Store
	metrics  *metrics.Recorder
	notifyCh chan struct{}
	closed   bool
}

type Option func(*Controller)

func WithTrail(store audit.Store) Option {
	return func(c *Controller) {
		c.trail = store
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func New(src rules.Source, opts ...Option) *Controller {
	c := &Controller{
		session:  session.New(),
		rules:    src,
		trail:    audit.NopStore{},
		notifyCh: make(chan struct{}, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitDraft starts an audit round. Once the retry counter has reached the
// configured limit, the draft is not audited and the rejection report over
// the whole history is returned instead.
func (c *Controller) SubmitDraft(ctx context.Context, code, language string) string {
	if language == "" {
		language = DefaultLanguage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Status.Terminal() {
		log.Warn().Str("session", c.session.ID).Str("status", string(c.session.Status)).Msg("draft submitted to a finished session")
	}

	c.session.BeginDraft(code, language)
	c.metrics.DraftSubmitted()

	maxRetries := c.rules.MaxRetries()
	if c.session.RetryCount >= maxRetries {
		c.session.ExhaustRetries()
		c.metrics.LimitExceeded()

		log.Warn().
			Str("session", c.session.ID).
			Int("retry_count", c.session.RetryCount).
			Int("max_retries", maxRetries).
			Msg("retry limit reached, draft rejected")

		c.record(ctx, audit.EventLimitExceeded, 0, map[string]any{
			"attempts":      len(c.session.History),
			"average_score": report.Average(c.session.History),
			"max_retries":   maxRetries,
		})
		c.notify()

		return report.Generate(c.session.History, code, language, maxRetries)
	}

	log.Info().
		Str("session", c.session.ID).
		Str("language", language).
		Int("code_length", len(code)).
		Int("retry_count", c.session.RetryCount).
		Msg("draft submitted for audit")

	c.record(ctx, audit.EventDraft, 0, map[string]any{
		"language":    language,
		"code_length": len(code),
	})
	c.notify()

	return auditRequestPrompt(c.rules.FormatRulesForPrompt(), code, language)
}

// SubmitAuditResult records a verdict. A passing verdict with a score below
// MinPassingScore is turned into a failure and an enforcement issue is added.
func (c *Controller) SubmitAuditResult(ctx context.Context, passed bool, issues []string, score int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.Status != session.StatusAuditing {
		log.Warn().Str("session", c.session.ID).Str("status", string(c.session.Status)).Msg("verdict received without a pending draft")
	}

	issues = append([]string(nil), issues...)

	overridden := false
	if passed && score < MinPassingScore {
		passed = false
		overridden = true
		issues = append(issues, enforcementIssue(score))
		log.Warn().Int("score", score).Int("threshold", MinPassingScore).Msg("passing verdict overridden by score floor")
	}

	c.session.Append(passed, issues, score)

	if passed {
		c.session.Approve()
		c.metrics.AuditResult(metrics.OutcomeApproved)

		log.Info().Str("session", c.session.ID).Int("score", score).Msg("audit passed")
		c.record(ctx, audit.EventApproved, score, map[string]any{"issues": issues})
		c.notify()

		return approvalMessage(score, c.session.CurrentCode)
	}

	retryCount := c.session.Reject()
	maxRetries := c.rules.MaxRetries()

	c.metrics.AuditResult(metrics.OutcomeRejected)
	if overridden {
		c.metrics.AuditResult(metrics.OutcomeOverridden)
	}
	c.metrics.SetRetryCount(retryCount)

	log.Info().
		Str("session", c.session.ID).
		Int("score", score).
		Int("issues", len(issues)).
		Int("retry_count", retryCount).
		Int("max_retries", maxRetries).
		Msg("audit failed")

	c.record(ctx, audit.EventRejected, score, map[string]any{
		"issues":     issues,
		"overridden": overridden,
	})
	c.notify()

	return rejectionMessage(score, issues, retryCount, maxRetries)
}

// ResetSession returns the session to its initial state. The rule store is
// not touched.
func (c *Controller) ResetSession(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.session.Snapshot()
	c.session.Reset()
	c.metrics.SessionReset()
	c.metrics.SetRetryCount(0)

	log.Info().Str("previous", previous.ID).Str("session", c.session.ID).Msg("session reset")

	c.recordFor(ctx, previous, audit.EventReset, 0, map[string]any{
		"next_session": c.session.ID,
		"attempts":     len(previous.History),
	})
	c.notify()

	return resetMessage
}

// Session returns a copy of the active session.
func (c *Controller) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

func (c *Controller) MaxRetries() int {
	return c.rules.MaxRetries()
}

// NotifyChannel signals every state transition. Sends never block; slow
// readers miss intermediate signals and should re-read Session.
func (c *Controller) NotifyChannel() <-chan struct{} {
	return c.notifyCh
}

func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.notifyCh)
	}
	return nil
}

func (c *Controller) notify() {
	if c.closed {
		return
	}
	select {
	case c.notifyCh <- struct{}{}:
	default:
	}
}

func (c *Controller) record(ctx context.Context, event audit.Event, score int, detail map[string]any) {
	c.recordFor(ctx, c.session.Snapshot(), event, score, detail)
}

// recordFor appends to the trail. Trail failures are logged and never change
// the tool response.
func (c *Controller) recordFor(ctx context.Context, s session.Session, event audit.Event, score int, detail map[string]any) {
	raw, err := json.Marshal(detail)
	if err != nil {
		log.Warn().Err(err).Str("event", string(event)).Msg("failed to encode trail detail")
		raw = []byte(`{}`)
	}

	entry := audit.Entry{
		SessionID:  s.ID,
		Event:      event,
		Status:     string(s.Status),
		RetryCount: s.RetryCount,
		Score:      score,
		Detail:     raw,
	}
	if err := c.trail.Log(ctx, entry); err != nil {
		log.Warn().Err(err).Str("event", string(event)).Msg("audit trail write failed")
	}
}
