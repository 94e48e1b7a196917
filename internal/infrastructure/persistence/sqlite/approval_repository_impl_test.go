package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

func newTestRepo(t *testing.T) *ApprovalRepositoryImpl {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "approvals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewApprovalRepository(db)
}

func TestApprovalRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2026, 7, 1, 9, 30, 15, 123456789, time.UTC)

	draft := approval.DraftPreview{
		DraftRef:  "draft-1",
		Sender:    "me@example.com",
		Recipient: "bob@example.com",
		Subject:   "Re: Launch",
		Body:      "Looks good.",
	}
	req, err := approval.NewRequest("A1", "U1", "R1", draft, now, 24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, req))
	assert.Error(t, repo.Create(ctx, req), "primary key violation")

	got, found, err := repo.Find(ctx, "A1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, draft, got.Draft)
	assert.Equal(t, approval.StatusPending, got.Status)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.True(t, now.Add(24*time.Hour).Equal(got.ExpiresAt))
	assert.Nil(t, got.ResolvedAt)

	got.Transport = approval.TransportRef{Channel: "ws:U1", MessageID: "A1"}
	require.NoError(t, repo.Update(ctx, got))
	require.NoError(t, got.Resolve(approval.DecisionSave, "U1", now.Add(time.Minute)))
	require.NoError(t, repo.Update(ctx, got))

	again, _, err := repo.Find(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusSaved, again.Status)
	assert.Equal(t, "U1", again.ResolvedBy)
	require.NotNil(t, again.ResolvedAt)
	assert.True(t, now.Add(time.Minute).Equal(*again.ResolvedAt))
	assert.Equal(t, "ws:U1", again.Transport.Channel)

	_, found, err = repo.Find(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	ghost, _ := approval.NewRequest("A9", "U1", "R1", draft, now, time.Hour)
	assert.Error(t, repo.Update(ctx, ghost))
}

func TestApprovalRepository_ListPending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"A2", "A1", "A3"} {
		user := "U1"
		if id == "A3" {
			user = "U2"
		}
		req, err := approval.NewRequest(id, user, "R1", approval.DraftPreview{DraftRef: "d-" + id}, base.Add(time.Duration(i)*time.Second), time.Hour)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, req))
	}

	done, _, err := repo.Find(ctx, "A1")
	require.NoError(t, err)
	require.NoError(t, done.Expire(base.Add(2*time.Hour)))
	require.NoError(t, repo.Update(ctx, done))

	pending, err := repo.ListPending(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "A2", pending[0].ID)

	pending, err = repo.ListPending(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, pending)
}
