package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
)

type fakeTriage struct {
	mu    sync.Mutex
	users []string
	fail  map[string]error
}

func (f *fakeTriage) Start(ctx context.Context, req dto.StartRequest) (*dto.TriageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, req.UserID)
	if err := f.fail[req.UserID]; err != nil {
		return nil, err
	}
	return &dto.TriageResult{UserID: req.UserID, Status: dto.RunStatusPaused}, nil
}

func (f *fakeTriage) Decide(ctx context.Context, req dto.DecideRequest) (*dto.TriageResult, error) {
	return nil, nil
}

func (f *fakeTriage) HandleCallback(ctx context.Context, req dto.CallbackRequest) (*dto.TriageResult, error) {
	return nil, nil
}

func (f *fakeTriage) Status(ctx context.Context, userID string) (*dto.StateDTO, error) {
	return nil, nil
}

func (f *fakeTriage) Reset(ctx context.Context, userID string) error { return nil }

func TestRunOnce_StartsEveryUser(t *testing.T) {
	uc := &fakeTriage{fail: map[string]error{"U2": assert.AnError}}
	s := New(uc, "@every 1h", []string{"U1", "U2", "U3"}, 0, app.Discard)

	results := s.RunOnce(context.Background())

	assert.Equal(t, []string{"U1", "U2", "U3"}, uc.users)
	require.Len(t, results, 2)
	assert.Equal(t, "U1", results[0].UserID)
	assert.Equal(t, "U3", results[1].UserID)
}

func TestRunOnce_CancelledContext(t *testing.T) {
	uc := &fakeTriage{}
	s := New(uc, "@every 1h", []string{"U1", "U2"}, 0, app.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, s.RunOnce(ctx))
	assert.Empty(t, uc.users)
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name    string
		spec    string
		users   []string
		wantErr string
	}{
		{"valid", "@every 1h", []string{"U1"}, ""},
		{"standard cron", "*/5 * * * *", []string{"U1"}, ""},
		{"bad spec", "every tuesday", []string{"U1"}, "invalid schedule"},
		{"no users", "@every 1h", nil, "no users"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeTriage{}, tt.spec, tt.users, 0, app.Discard)
			err := s.Start()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Error(t, s.Start(), "second start must fail")
			s.Stop()
			s.Stop()
		})
	}
}
