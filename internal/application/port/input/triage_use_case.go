package input

import (
	"context"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
)

// TriageUseCase defines the triggers a user or transport can fire
type TriageUseCase interface {
	// Start begins a fresh run, or re-enters an unfinished one at the publish gate
	Start(ctx context.Context, req dto.StartRequest) (*dto.TriageResult, error)

	// Decide applies a decision to the draft currently awaiting one
	Decide(ctx context.Context, req dto.DecideRequest) (*dto.TriageResult, error)

	// HandleCallback resolves an approval by id and resumes the owning run
	HandleCallback(ctx context.Context, req dto.CallbackRequest) (*dto.TriageResult, error)

	// Status returns the stored run for a user
	Status(ctx context.Context, userID string) (*dto.StateDTO, error)

	// Reset discards the stored run for a user
	Reset(ctx context.Context, userID string) error
}
