// Package memory holds in-process repositories used for single-process
// deployments and tests
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// ApprovalRepository keeps approval requests in a map
type ApprovalRepository struct {
	mu   sync.RWMutex
	reqs map[string]approval.Request
}

// NewApprovalRepository creates an empty repository
func NewApprovalRepository() *ApprovalRepository {
	return &ApprovalRepository{reqs: map[string]approval.Request{}}
}

// Create implements repository.ApprovalRepository
func (r *ApprovalRepository) Create(ctx context.Context, req *approval.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reqs[req.ID]; exists {
		return fmt.Errorf("approval %s already exists", req.ID)
	}
	r.reqs[req.ID] = clone(req)
	return nil
}

// Find implements repository.ApprovalRepository
func (r *ApprovalRepository) Find(ctx context.Context, id string) (*approval.Request, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.reqs[id]
	if !ok {
		return nil, false, nil
	}
	out := clone(&req)
	return &out, true, nil
}

// Update implements repository.ApprovalRepository
func (r *ApprovalRepository) Update(ctx context.Context, req *approval.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reqs[req.ID]; !exists {
		return fmt.Errorf("approval %s not found", req.ID)
	}
	r.reqs[req.ID] = clone(req)
	return nil
}

// ListPending implements repository.ApprovalRepository
func (r *ApprovalRepository) ListPending(ctx context.Context, userID string) ([]*approval.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*approval.Request{}
	for _, req := range r.reqs {
		if req.UserID != userID || !req.IsPending() {
			continue
		}
		c := clone(&req)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func clone(req *approval.Request) approval.Request {
	c := *req
	if req.ResolvedAt != nil {
		t := *req.ResolvedAt
		c.ResolvedAt = &t
	}
	return c
}
