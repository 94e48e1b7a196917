// Package sqlite stores approval requests in SQLite
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/repository"
)

// Open opens the database at path and applies the schema
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)
	if err := NewMigrator(db).Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ApprovalRepositoryImpl implements repository.ApprovalRepository with SQLite
type ApprovalRepositoryImpl struct {
	db *sql.DB
}

var _ repository.ApprovalRepository = (*ApprovalRepositoryImpl)(nil)

// NewApprovalRepository creates a new SQLite-based approval repository
func NewApprovalRepository(db *sql.DB) *ApprovalRepositoryImpl {
	return &ApprovalRepositoryImpl{db: db}
}

const approvalColumns = `id, user_id, run_id, draft_ref, draft_sender, draft_recipient,
	draft_subject, draft_body, status, created_at, expires_at, resolved_at, resolved_by,
	transport_channel, transport_message_id`

// Create inserts a new request
func (r *ApprovalRepositoryImpl) Create(ctx context.Context, req *approval.Request) error {
	query := `INSERT INTO approval_requests (` + approvalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.RunID,
		req.Draft.DraftRef,
		req.Draft.Sender,
		req.Draft.Recipient,
		req.Draft.Subject,
		req.Draft.Body,
		string(req.Status),
		formatTime(req.CreatedAt),
		formatTime(req.ExpiresAt),
		formatTimePtr(req.ResolvedAt),
		req.ResolvedBy,
		req.Transport.Channel,
		req.Transport.MessageID,
	)
	if err != nil {
		return fmt.Errorf("insert approval request: %w", err)
	}
	return nil
}

// Find retrieves a request by id
func (r *ApprovalRepositoryImpl) Find(ctx context.Context, id string) (*approval.Request, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find approval request %s: %w", id, err)
	}
	return req, true, nil
}

// Update writes the mutable fields of an existing request
func (r *ApprovalRepositoryImpl) Update(ctx context.Context, req *approval.Request) error {
	query := `
		UPDATE approval_requests
		SET status = ?, resolved_at = ?, resolved_by = ?, transport_channel = ?, transport_message_id = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		string(req.Status),
		formatTimePtr(req.ResolvedAt),
		req.ResolvedBy,
		req.Transport.Channel,
		req.Transport.MessageID,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("update approval request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("approval request not found: %s", req.ID)
	}
	return nil
}

// ListPending returns a user's pending requests, oldest first
func (r *ApprovalRepositoryImpl) ListPending(ctx context.Context, userID string) ([]*approval.Request, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests
		WHERE user_id = ? AND status = ?
		ORDER BY created_at ASC, id ASC`,
		userID, string(approval.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("query pending approvals: %w", err)
	}
	defer rows.Close()

	out := []*approval.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(s scanner) (*approval.Request, error) {
	var (
		req        approval.Request
		status     string
		createdAt  string
		expiresAt  string
		resolvedAt sql.NullString
	)
	err := s.Scan(
		&req.ID,
		&req.UserID,
		&req.RunID,
		&req.Draft.DraftRef,
		&req.Draft.Sender,
		&req.Draft.Recipient,
		&req.Draft.Subject,
		&req.Draft.Body,
		&status,
		&createdAt,
		&expiresAt,
		&resolvedAt,
		&req.ResolvedBy,
		&req.Transport.Channel,
		&req.Transport.MessageID,
	)
	if err != nil {
		return nil, err
	}

	req.Status = approval.Status(status)
	if req.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if req.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	if resolvedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, resolvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse resolved_at: %w", err)
		}
		req.ResolvedAt = &t
	}
	return &req, nil
}

// formatTime keeps lexical order equal to chronological order
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
