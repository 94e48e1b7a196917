package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// MailStore is an in-memory output.MailStore for tests
type MailStore struct {
	mu sync.Mutex

	Unread  []triage.Message
	Threads map[string][]triage.Message

	ListErr   error
	ThreadErr error
	DraftErr  error
	SendErr   error
	SaveErr   error

	// FailDraftFor makes CreateDraft fail for replies to these message ids
	FailDraftFor map[string]bool

	Drafts map[string]output.DraftFields
	Sent   []string
	Saved  []string

	queries []output.UnreadQuery
	seq     int
}

// NewMailStore creates a mailbox holding the given unread messages
func NewMailStore(unread ...triage.Message) *MailStore {
	return &MailStore{
		Unread:       unread,
		Threads:      map[string][]triage.Message{},
		FailDraftFor: map[string]bool{},
		Drafts:       map[string]output.DraftFields{},
	}
}

func (m *MailStore) ListUnread(ctx context.Context, q output.UnreadQuery) ([]triage.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := m.Unread
	if len(out) > q.Limit() {
		out = out[:q.Limit()]
	}
	return append([]triage.Message(nil), out...), nil
}

func (m *MailStore) RecentInThread(ctx context.Context, threadID string, limit int) ([]triage.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ThreadErr != nil {
		return nil, m.ThreadErr
	}
	out := m.Threads[threadID]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]triage.Message(nil), out...), nil
}

func (m *MailStore) CreateDraft(ctx context.Context, fields output.DraftFields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DraftErr != nil {
		return "", m.DraftErr
	}
	if m.FailDraftFor[fields.InReplyTo] {
		return "", fmt.Errorf("draft rejected for %s", fields.InReplyTo)
	}
	m.seq++
	ref := fmt.Sprintf("draft-%d", m.seq)
	m.Drafts[ref] = fields
	return ref, nil
}

func (m *MailStore) Send(ctx context.Context, draftRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, draftRef)
	return nil
}

func (m *MailStore) Save(ctx context.Context, draftRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = append(m.Saved, draftRef)
	return nil
}

// SentCount returns how many drafts were sent
func (m *MailStore) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// Queries returns the unread queries received so far
func (m *MailStore) Queries() []output.UnreadQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]output.UnreadQuery(nil), m.queries...)
}

// Messages builds n unread messages m1..mn in thread t1..tn
func Messages(n int) []triage.Message {
	out := make([]triage.Message, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, triage.Message{
			ID:       fmt.Sprintf("m%d", i),
			ThreadID: fmt.Sprintf("t%d", i),
			From:     fmt.Sprintf("sender%d@example.com", i),
			To:       "me@example.com",
			Subject:  fmt.Sprintf("Question %d", i),
			Body:     fmt.Sprintf("Can you get back to me about item %d?", i),
			Unread:   true,
		})
	}
	return out
}
