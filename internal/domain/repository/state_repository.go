package repository

import (
	"context"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// StateRepository persists at most one workflow state per user
type StateRepository interface {
	// Save overwrites the state stored for state.UserID (last write wins)
	// Returns a STATE_TYPE_INVALID error for nil or ill-formed state
	Save(ctx context.Context, state *triage.WorkflowState) error

	// Load retrieves the state for a user
	// Returns found=false and no error when nothing is stored,
	// and a STATE_CORRUPT error when the stored record cannot be decoded
	Load(ctx context.Context, userID string) (state *triage.WorkflowState, found bool, err error)

	// Delete removes the stored state; deleting a missing state is not an error
	Delete(ctx context.Context, userID string) error
}
