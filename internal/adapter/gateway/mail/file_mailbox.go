// Package mail provides output.MailStore implementations
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
	"github.com/YoshitsuguKoike/inboxzero/internal/pkg/idgen"
)

// Draft states kept in DraftRecord.State
const (
	DraftStateOpen  = "draft"
	DraftStateSaved = "saved"
	DraftStateSent  = "sent"
)

// DraftRecord is a stored reply draft
type DraftRecord struct {
	Ref       string             `json:"ref"`
	Fields    output.DraftFields `json:"fields"`
	State     string             `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
}

// FileMailbox implements output.MailStore over a directory tree:
//
//	<root>/inbox/<id>.json   one triage.Message per file
//	<root>/drafts/<ref>.json drafts not yet sent
//	<root>/sent/<ref>.json   sent drafts
type FileMailbox struct {
	fs   afero.Fs
	root string
	now  func() time.Time

	mu sync.Mutex
}

var _ output.MailStore = (*FileMailbox)(nil)

// NewFileMailbox creates a mailbox rooted at root
func NewFileMailbox(fs afero.Fs, root string) *FileMailbox {
	return &FileMailbox{fs: fs, root: root, now: time.Now}
}

func (m *FileMailbox) dir(parts ...string) string {
	return filepath.Join(append([]string{m.root}, parts...)...)
}

// Deliver writes a message into the inbox, replacing one with the same id
func (m *FileMailbox) Deliver(ctx context.Context, msg triage.Message) error {
	if msg.ID == "" {
		return fmt.Errorf("message id is required")
	}
	if msg.ThreadID == "" {
		msg.ThreadID = msg.ID
	}
	return m.writeJSON(m.dir("inbox", msg.ID+".json"), msg)
}

// ListUnread implements output.MailStore
func (m *FileMailbox) ListUnread(ctx context.Context, q output.UnreadQuery) ([]triage.Message, error) {
	all, err := m.readMessages("inbox")
	if err != nil {
		return nil, err
	}

	out := []triage.Message{}
	for _, msg := range all {
		if q.UnreadOnly && !msg.Unread {
			continue
		}
		if q.PrimaryOnly && !isPrimary(msg) {
			continue
		}
		out = append(out, msg)
	}
	sortNewestFirst(out)
	if len(out) > q.Limit() {
		out = out[:q.Limit()]
	}
	return out, nil
}

// RecentInThread implements output.MailStore
func (m *FileMailbox) RecentInThread(ctx context.Context, threadID string, limit int) ([]triage.Message, error) {
	inbox, err := m.readMessages("inbox")
	if err != nil {
		return nil, err
	}
	sent, err := m.sentMessages()
	if err != nil {
		return nil, err
	}

	out := []triage.Message{}
	for _, msg := range append(inbox, sent...) {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateDraft implements output.MailStore
func (m *FileMailbox) CreateDraft(ctx context.Context, fields output.DraftFields) (string, error) {
	now := m.now()
	rec := DraftRecord{
		Ref:       "draft-" + idgen.NewID(now),
		Fields:    fields,
		State:     DraftStateOpen,
		CreatedAt: now,
	}
	if err := m.writeJSON(m.dir("drafts", rec.Ref+".json"), rec); err != nil {
		return "", err
	}
	return rec.Ref, nil
}

// Send implements output.MailStore. The draft moves to sent/ and the
// message it answers is marked read.
func (m *FileMailbox) Send(ctx context.Context, draftRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.Draft(draftRef)
	if err != nil {
		return err
	}
	now := m.now()
	rec.State = DraftStateSent
	rec.SentAt = &now

	if err := m.writeJSON(m.dir("sent", rec.Ref+".json"), rec); err != nil {
		return err
	}
	if err := m.fs.Remove(m.dir("drafts", rec.Ref+".json")); err != nil {
		return fmt.Errorf("remove sent draft %s: %w", rec.Ref, err)
	}
	if rec.Fields.InReplyTo != "" {
		m.markRead(rec.Fields.InReplyTo)
	}
	return nil
}

// Save implements output.MailStore
func (m *FileMailbox) Save(ctx context.Context, draftRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.Draft(draftRef)
	if err != nil {
		return err
	}
	rec.State = DraftStateSaved
	return m.writeJSON(m.dir("drafts", rec.Ref+".json"), rec)
}

// Draft reads an unsent draft
func (m *FileMailbox) Draft(ref string) (*DraftRecord, error) {
	if ref == "" || strings.ContainsAny(ref, `/\`) {
		return nil, fmt.Errorf("invalid draft ref %q", ref)
	}
	b, err := afero.ReadFile(m.fs, m.dir("drafts", ref+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("draft not found: %s", ref)
		}
		return nil, fmt.Errorf("read draft %s: %w", ref, err)
	}
	var rec DraftRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", ref, err)
	}
	return &rec, nil
}

func (m *FileMailbox) markRead(messageID string) {
	path := m.dir("inbox", messageID+".json")
	b, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return
	}
	var msg triage.Message
	if json.Unmarshal(b, &msg) != nil {
		return
	}
	msg.Unread = false
	_ = m.writeJSON(path, msg)
}

func (m *FileMailbox) readMessages(sub string) ([]triage.Message, error) {
	dir := m.dir(sub)
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	out := make([]triage.Message, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		b, err := afero.ReadFile(m.fs, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var msg triage.Message
		if err := json.Unmarshal(b, &msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// sentMessages renders sent drafts as thread messages
func (m *FileMailbox) sentMessages() ([]triage.Message, error) {
	dir := m.dir("sent")
	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	out := []triage.Message{}
	for _, e := range entries {
		b, err := afero.ReadFile(m.fs, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var rec DraftRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Name(), err)
		}
		msg := triage.Message{
			ID:       rec.Ref,
			ThreadID: rec.Fields.ThreadID,
			From:     rec.Fields.Sender,
			To:       rec.Fields.Recipient,
			Subject:  rec.Fields.Subject,
			Body:     rec.Fields.Body,
			Date:     rec.CreatedAt,
		}
		if rec.SentAt != nil {
			msg.Date = *rec.SentAt
		}
		out = append(out, msg)
	}
	return out, nil
}

func (m *FileMailbox) writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := afero.WriteFile(m.fs, path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// isPrimary excludes the provider's promotions/social/updates/forums tabs
func isPrimary(msg triage.Message) bool {
	for _, l := range msg.Labels {
		switch strings.ToUpper(l) {
		case "CATEGORY_PROMOTIONS", "CATEGORY_SOCIAL", "CATEGORY_UPDATES", "CATEGORY_FORUMS":
			return false
		}
	}
	return true
}

func sortNewestFirst(msgs []triage.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Date.Equal(msgs[j].Date) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Date.After(msgs[j].Date)
	})
}
