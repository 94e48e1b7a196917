package output

import (
	"context"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// ApprovalChannel delivers interactive approval messages to a human
// Decisions come back asynchronously through the approval callback
type ApprovalChannel interface {
	// Request posts the interactive message and returns where it lives
	Request(ctx context.Context, msg ApprovalMessage) (approval.TransportRef, error)

	// Update replaces a posted message with a static status line
	Update(ctx context.Context, ref approval.TransportRef, statusLine string) error
}

// ApprovalMessage is everything a channel needs to render one approval request
type ApprovalMessage struct {
	ApprovalID string
	UserID     string
	Draft      approval.DraftPreview
	Choices    []approval.Decision
	ExpiresAt  time.Time
}
