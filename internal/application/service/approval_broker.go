package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/repository"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
	"github.com/YoshitsuguKoike/inboxzero/internal/pkg/idgen"
)

// DefaultApprovalTTL is how long a published request accepts a decision
const DefaultApprovalTTL = 24 * time.Hour

// ApprovalBroker owns the lifecycle of approval requests: it posts drafts to
// the approval channel, performs the mail action a decision implies, and
// replaces the interactive message once the request is resolved
type ApprovalBroker struct {
	repo    repository.ApprovalRepository
	channel output.ApprovalChannel
	mail    output.MailStore
	ttl     time.Duration
	now     func() time.Time
	newID   func(time.Time) string
	logger  app.Logger

	// locks serializes transitions per approval id so a double click applies once
	locks UserLocker
}

// BrokerOption customizes an ApprovalBroker
type BrokerOption func(*ApprovalBroker)

// WithApprovalTTL overrides DefaultApprovalTTL
func WithApprovalTTL(ttl time.Duration) BrokerOption {
	return func(b *ApprovalBroker) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithBrokerClock replaces time.Now
func WithBrokerClock(now func() time.Time) BrokerOption {
	return func(b *ApprovalBroker) { b.now = now }
}

// WithBrokerLogger sets the logger
func WithBrokerLogger(logger app.Logger) BrokerOption {
	return func(b *ApprovalBroker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewApprovalBroker creates a new approval broker
func NewApprovalBroker(
	repo repository.ApprovalRepository,
	channel output.ApprovalChannel,
	mail output.MailStore,
	opts ...BrokerOption,
) *ApprovalBroker {
	b := &ApprovalBroker{
		repo:    repo,
		channel: channel,
		mail:    mail,
		ttl:     DefaultApprovalTTL,
		now:     time.Now,
		newID:   idgen.NewID,
		logger:  app.GetLogger(),
		locks:   NewPerUserLockManager(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish creates a pending request for the draft and posts it for approval
func (b *ApprovalBroker) Publish(ctx context.Context, userID, runID string, draft triage.Draft) (*approval.Request, error) {
	now := b.now()
	req, err := approval.NewRequest(b.newID(now), userID, runID, draft.Preview(), now, b.ttl)
	if err != nil {
		return nil, triage.ErrInvalidRequest.Wrap(err)
	}

	// stored before posting so an immediate callback can find it
	if err := b.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("store approval request: %w", err)
	}

	ref, err := b.channel.Request(ctx, output.ApprovalMessage{
		ApprovalID: req.ID,
		UserID:     userID,
		Draft:      req.Draft,
		Choices:    approval.Choices(),
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		if expErr := req.Expire(now); expErr == nil {
			if upErr := b.repo.Update(ctx, req); upErr != nil {
				b.logger.Warn("retiring undelivered approval %s: %v", req.ID, upErr)
			}
		}
		return nil, fmt.Errorf("post approval request: %w", err)
	}

	req.Transport = ref
	if err := b.repo.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("store transport ref for %s: %w", req.ID, err)
	}

	b.logger.Info("published approval %s for draft %s to %s", req.ID, draft.DraftRef, userID)
	return req, nil
}

// Resolve applies a decision to a request. The bool reports whether this call
// changed anything: resolving an already resolved or expired request is a no-op
// that returns the request unchanged.
//
// The resolution is stored before the mail action runs, so a failed store
// never leaves a sent draft behind a pending request. A failed mail action
// puts the request back to pending.
func (b *ApprovalBroker) Resolve(ctx context.Context, approvalID string, decision approval.Decision, actor string) (*approval.Request, bool, error) {
	if !decision.IsValid() {
		return nil, false, triage.ErrUnknownDecision.WithDetails(map[string]interface{}{"decision": string(decision)})
	}

	unlock := b.locks.Lock(approvalID)
	defer unlock()

	req, err := b.find(ctx, approvalID)
	if err != nil {
		return nil, false, err
	}
	if !req.IsPending() {
		b.logger.Debug("approval %s already %s, ignoring %s", req.ID, req.Status, decision)
		return req, false, nil
	}

	now := b.now()
	if req.IsExpiredAt(now) {
		if err := b.transition(ctx, req, func() error { return req.Expire(now) }); err != nil {
			return nil, false, err
		}
		b.announce(ctx, req)
		b.logger.Info("approval %s expired before %s arrived", req.ID, decision)
		return req, false, nil
	}

	pending := *req
	if err := b.transition(ctx, req, func() error { return req.Resolve(decision, actor, now) }); err != nil {
		return nil, false, err
	}
	if err := b.apply(ctx, req, decision); err != nil {
		*req = pending
		if upErr := b.repo.Update(ctx, req); upErr != nil {
			b.logger.Error("reopening approval %s after failed %s: %v", req.ID, decision, upErr)
		}
		return nil, false, err
	}
	b.announce(ctx, req)

	b.logger.Info("approval %s resolved as %s by %s", req.ID, req.Status, actor)
	return req, true, nil
}

// Expire retires a pending request without any mail action. A request that
// is already terminal is returned as it is.
func (b *ApprovalBroker) Expire(ctx context.Context, approvalID string) (*approval.Request, error) {
	unlock := b.locks.Lock(approvalID)
	defer unlock()

	req, err := b.find(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return req, nil
	}
	if err := b.transition(ctx, req, func() error { return req.Expire(b.now()) }); err != nil {
		return nil, err
	}
	b.announce(ctx, req)
	b.logger.Info("approval %s retired", req.ID)
	return req, nil
}

func (b *ApprovalBroker) find(ctx context.Context, approvalID string) (*approval.Request, error) {
	req, found, err := b.repo.Find(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("find approval %s: %w", approvalID, err)
	}
	if !found {
		return nil, triage.ErrApprovalNotFound.WithDetails(map[string]interface{}{"approval_id": approvalID})
	}
	return req, nil
}

// apply performs the mail action for a decision
func (b *ApprovalBroker) apply(ctx context.Context, req *approval.Request, decision approval.Decision) error {
	var err error
	switch decision {
	case approval.DecisionApprove:
		err = b.mail.Send(ctx, req.Draft.DraftRef)
	case approval.DecisionSave:
		err = b.mail.Save(ctx, req.Draft.DraftRef)
	case approval.DecisionReject:
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s draft %s: %w", decision, req.Draft.DraftRef, err)
	}
	return nil
}

// transition changes the request and persists it
func (b *ApprovalBroker) transition(ctx context.Context, req *approval.Request, change func() error) error {
	if err := change(); err != nil {
		return err
	}
	if err := b.repo.Update(ctx, req); err != nil {
		return fmt.Errorf("store approval %s: %w", req.ID, err)
	}
	return nil
}

// announce swaps the interactive message for a status line
func (b *ApprovalBroker) announce(ctx context.Context, req *approval.Request) {
	if req.Transport.IsZero() {
		return
	}
	if err := b.channel.Update(ctx, req.Transport, req.StatusLine()); err != nil {
		b.logger.Warn("updating approval message %s: %v", req.ID, err)
	}
}

// Get returns a request by id
func (b *ApprovalBroker) Get(ctx context.Context, approvalID string) (*approval.Request, error) {
	req, found, err := b.repo.Find(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, triage.ErrApprovalNotFound.WithDetails(map[string]interface{}{"approval_id": approvalID})
	}
	return req, nil
}

// ListPending returns a user's requests still awaiting a decision.
// Requests past their expiry are expired on the way out.
func (b *ApprovalBroker) ListPending(ctx context.Context, userID string) ([]*approval.Request, error) {
	reqs, err := b.repo.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	out := make([]*approval.Request, 0, len(reqs))
	var errs []error
	for _, req := range reqs {
		if !req.IsExpiredAt(now) {
			out = append(out, req)
			continue
		}
		if _, err := b.Expire(ctx, req.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}
