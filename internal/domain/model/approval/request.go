package approval

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotPending is returned when a terminal request is asked to change again
var ErrNotPending = errors.New("approval request is no longer pending")

// Status represents the lifecycle state of an approval request
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSaved    Status = "saved"
	StatusExpired  Status = "expired"
)

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSaved, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s.IsValid() && s != StatusPending
}

// Decision reports the human decision behind a resolved status
func (s Status) Decision() (Decision, bool) {
	switch s {
	case StatusApproved:
		return DecisionApprove, true
	case StatusRejected:
		return DecisionReject, true
	case StatusSaved:
		return DecisionSave, true
	}
	return "", false
}

// TransportRef locates the interactive message on the approval channel.
// Its contents are meaningful only to the channel that produced it.
type TransportRef struct {
	Channel   string `json:"channel" yaml:"channel"`
	MessageID string `json:"message_id" yaml:"message_id"`
}

// IsZero reports whether the ref was never assigned
func (t TransportRef) IsZero() bool {
	return t.Channel == "" && t.MessageID == ""
}

// DraftPreview is the part of a draft the approver gets to see
type DraftPreview struct {
	DraftRef  string `json:"draft_ref"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Request is a pending human decision on one draft
type Request struct {
	ID         string       `json:"id"`
	UserID     string       `json:"user_id"`
	RunID      string       `json:"run_id"`
	Draft      DraftPreview `json:"draft"`
	Status     Status       `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy string       `json:"resolved_by,omitempty"`
	Transport  TransportRef `json:"transport"`
}

// NewRequest creates a pending request that expires ttl after now
func NewRequest(id, userID, runID string, draft DraftPreview, now time.Time, ttl time.Duration) (*Request, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("approval id is required")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("requesting user is required")
	}
	if draft.DraftRef == "" {
		return nil, errors.New("draft reference is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("approval ttl must be positive, got %s", ttl)
	}

	return &Request{
		ID:        id,
		UserID:    userID,
		RunID:     runID,
		Draft:     draft,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsPending reports whether the request still accepts a decision
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// IsExpiredAt reports whether the request is past its expiry at the given time
func (r *Request) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Resolve records a human decision
func (r *Request) Resolve(decision Decision, actor string, now time.Time) error {
	if !r.IsPending() {
		return fmt.Errorf("%w: %s is %s", ErrNotPending, r.ID, r.Status)
	}
	if !decision.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownDecision, decision)
	}

	r.Status = decision.Status()
	r.ResolvedAt = &now
	r.ResolvedBy = actor
	return nil
}

// Expire marks a pending request as expired
func (r *Request) Expire(now time.Time) error {
	if !r.IsPending() {
		return fmt.Errorf("%w: %s is %s", ErrNotPending, r.ID, r.Status)
	}

	r.Status = StatusExpired
	r.ResolvedAt = &now
	return nil
}

// StatusLine is the static text that replaces the interactive message once resolved
func (r *Request) StatusLine() string {
	var head string
	switch r.Status {
	case StatusApproved:
		head = "APPROVED & SENT"
	case StatusRejected:
		head = "REJECTED"
	case StatusSaved:
		head = "SAVED"
	case StatusExpired:
		head = "EXPIRED"
	default:
		return "PENDING"
	}
	return head + " - original draft has been processed."
}
