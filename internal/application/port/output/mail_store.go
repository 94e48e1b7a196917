package output

import (
	"context"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// MaxUnreadResults caps a single unread listing
const MaxUnreadResults = 25

// MailStore is the interface for the user's mailbox
// Implementations may talk to a hosted provider or a local maildir
type MailStore interface {
	// ListUnread returns inbox messages matching the query, newest first
	ListUnread(ctx context.Context, q UnreadQuery) ([]triage.Message, error)

	// RecentInThread returns up to limit of the most recent messages in a thread
	RecentInThread(ctx context.Context, threadID string, limit int) ([]triage.Message, error)

	// CreateDraft stores a reply draft and returns its opaque reference
	CreateDraft(ctx context.Context, fields DraftFields) (string, error)

	// Send dispatches a stored draft
	Send(ctx context.Context, draftRef string) error

	// Save keeps a draft in the mailbox for later manual handling
	Save(ctx context.Context, draftRef string) error
}

// UnreadQuery narrows an unread listing
type UnreadQuery struct {
	MaxResults  int  // Capped at MaxUnreadResults
	UnreadOnly  bool // Only messages carrying the unread flag
	PrimaryOnly bool // Only the primary inbox category
}

// Limit returns the effective result cap
func (q UnreadQuery) Limit() int {
	if q.MaxResults <= 0 || q.MaxResults > MaxUnreadResults {
		return MaxUnreadResults
	}
	return q.MaxResults
}

// DraftFields describes a reply to be stored as a draft
type DraftFields struct {
	Sender    string
	Recipient string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string // Message id being answered
}
