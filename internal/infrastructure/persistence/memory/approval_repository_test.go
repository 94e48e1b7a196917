package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

func TestApprovalRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewApprovalRepository()
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	req, err := approval.NewRequest("A1", "U1", "R1", approval.DraftPreview{DraftRef: "d1"}, now, time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, req))
	assert.Error(t, repo.Create(ctx, req), "duplicate id")

	got, found, err := repo.Find(ctx, "A1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, *req, *got)

	// returned copies do not alias the stored record
	got.Status = approval.StatusApproved
	again, _, _ := repo.Find(ctx, "A1")
	assert.Equal(t, approval.StatusPending, again.Status)

	require.NoError(t, req.Resolve(approval.DecisionReject, "U1", now))
	require.NoError(t, repo.Update(ctx, req))
	again, _, _ = repo.Find(ctx, "A1")
	assert.Equal(t, approval.StatusRejected, again.Status)

	missing, _ := approval.NewRequest("A2", "U1", "R1", approval.DraftPreview{DraftRef: "d2"}, now, time.Hour)
	assert.Error(t, repo.Update(ctx, missing))

	_, found, err = repo.Find(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestApprovalRepository_ListPending(t *testing.T) {
	ctx := context.Background()
	repo := NewApprovalRepository()
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	for i, tc := range []struct{ id, user string }{{"A3", "U1"}, {"A1", "U1"}, {"A2", "U2"}} {
		req, err := approval.NewRequest(tc.id, tc.user, "R", approval.DraftPreview{DraftRef: "d"}, now.Add(time.Duration(i)*time.Minute), time.Hour)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, req))
	}

	pending, err := repo.ListPending(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "A3", pending[0].ID)
	assert.Equal(t, "A1", pending[1].ID)
}
