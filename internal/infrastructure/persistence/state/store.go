package state

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/repository"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// BlobStore is a flat key-value byte store
type BlobStore interface {
	// Get returns (nil, false, nil) when key is absent
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Store implements repository.StateRepository on top of a BlobStore.
// It does no locking; callers serialize per user.
type Store struct {
	blobs BlobStore
	now   func() time.Time
}

var _ repository.StateRepository = (*Store)(nil)

// NewStore creates a state store over blobs
func NewStore(blobs BlobStore) *Store {
	return &Store{blobs: blobs, now: time.Now}
}

// Save implements repository.StateRepository
func (s *Store) Save(ctx context.Context, st *triage.WorkflowState) error {
	raw, err := Encode(st, s.now())
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, st.UserID, raw); err != nil {
		return fmt.Errorf("write state for %s: %w", st.UserID, err)
	}
	return nil
}

// Load implements repository.StateRepository
func (s *Store) Load(ctx context.Context, userID string) (*triage.WorkflowState, bool, error) {
	raw, found, err := s.blobs.Get(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("read state for %s: %w", userID, err)
	}
	if !found {
		return nil, false, nil
	}
	st, err := Decode(raw)
	if err != nil {
		return nil, false, err
	}
	if st.UserID != userID {
		return nil, false, triage.ErrCorruption.WithMessage("record for %s holds state of %s", userID, st.UserID)
	}
	return st, true, nil
}

// Delete implements repository.StateRepository
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.blobs.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete state for %s: %w", userID, err)
	}
	return nil
}
