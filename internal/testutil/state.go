package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// StateStore is a map-backed repository.StateRepository that stores deep copies
type StateStore struct {
	mu     sync.Mutex
	states map[string][]byte
	saves  int

	SaveErr error
	LoadErr error
	// SaveErr applies once this many saves have succeeded
	SaveErrAfter int
}

// NewStateStore creates an empty store
func NewStateStore() *StateStore {
	return &StateStore{states: map[string][]byte{}}
}

func (s *StateStore) Save(ctx context.Context, st *triage.WorkflowState) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil && s.saves >= s.SaveErrAfter {
		return s.SaveErr
	}
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.states[st.UserID] = b
	s.saves++
	return nil
}

func (s *StateStore) Load(ctx context.Context, userID string) (*triage.WorkflowState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, false, s.LoadErr
	}
	b, ok := s.states[userID]
	if !ok {
		return nil, false, nil
	}
	var st triage.WorkflowState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, false, err
	}
	return &st, true, nil
}

func (s *StateStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// Saves returns how many successful saves happened
func (s *StateStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Publisher hands out approval requests without a broker behind it
type Publisher struct {
	mu        sync.Mutex
	Err       error
	ExpireErr error
	Published []triage.Draft
	Expired   []string
	requests  map[string]*approval.Request
	clock     *Clock
}

// NewPublisher creates a publisher stamping requests with clock
func NewPublisher(clock *Clock) *Publisher {
	return &Publisher{clock: clock, requests: map[string]*approval.Request{}}
}

func (p *Publisher) Publish(ctx context.Context, userID, runID string, draft triage.Draft) (*approval.Request, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	p.Published = append(p.Published, draft)
	id := "approval-" + draft.DraftRef
	req, err := approval.NewRequest(id, userID, runID, draft.Preview(), p.clock.Now(), 24*time.Hour)
	if err != nil {
		return nil, err
	}
	p.requests[id] = req
	return req, nil
}

// Expire marks a published request expired unless it was already resolved
func (p *Publisher) Expire(ctx context.Context, approvalID string) (*approval.Request, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ExpireErr != nil {
		return nil, p.ExpireErr
	}
	req, ok := p.requests[approvalID]
	if !ok {
		return nil, triage.ErrApprovalNotFound
	}
	p.Expired = append(p.Expired, approvalID)
	if req.IsPending() {
		_ = req.Expire(p.clock.Now())
	}
	return req, nil
}

// Resolve records a decision on a published request, as a click would
func (p *Publisher) Resolve(approvalID string, decision approval.Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.requests[approvalID]
	if !ok {
		return triage.ErrApprovalNotFound
	}
	return req.Resolve(decision, "test", p.clock.Now())
}

// Count returns how many drafts were published
func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Published)
}
