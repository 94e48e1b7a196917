package repository

import (
	"context"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// ApprovalRepository manages approval requests issued by the broker
type ApprovalRepository interface {
	// Create persists a new request; the id must be unused
	Create(ctx context.Context, req *approval.Request) error

	// Find retrieves a request by id
	Find(ctx context.Context, id string) (req *approval.Request, found bool, err error)

	// Update overwrites an existing request
	Update(ctx context.Context, req *approval.Request) error

	// ListPending returns pending requests for a user, oldest first
	ListPending(ctx context.Context, userID string) ([]*approval.Request, error)
}
