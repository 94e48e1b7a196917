// Package scheduler starts triage runs for configured users on a cron schedule
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/input"
)

// Scheduler fires Start for every configured user each time the spec matches.
// A user whose run is paused is re-entered at the publish gate, so a tick
// never replaces a run that is waiting for a decision.
type Scheduler struct {
	triage  input.TriageUseCase
	spec    string
	users   []string
	timeout time.Duration
	logger  app.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a scheduler. timeout bounds a single tick; zero means no bound.
func New(triage input.TriageUseCase, spec string, users []string, timeout time.Duration, logger app.Logger) *Scheduler {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &Scheduler{
		triage:  triage,
		spec:    spec,
		users:   users,
		timeout: timeout,
		logger:  logger,
	}
}

// Start registers the cron entry and begins dispatching
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}
	if len(s.users) == 0 {
		return fmt.Errorf("no users configured for scheduled triage")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("[scheduler] started spec=%q users=%d", s.spec, len(s.users))
	return nil
}

// Stop shuts the cron runner down, waiting for a running tick to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron = nil
	s.logger.Info("[scheduler] stopped")
}

// RunOnce starts triage for each user in turn. A failure for one user is
// logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) []*dto.TriageResult {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	results := make([]*dto.TriageResult, 0, len(s.users))
	for _, userID := range s.users {
		if ctx.Err() != nil {
			s.logger.Warn("[scheduler] tick aborted before user=%s: %v", userID, ctx.Err())
			break
		}
		result, err := s.triage.Start(ctx, dto.StartRequest{UserID: userID})
		if err != nil {
			s.logger.Error("[scheduler] start failed user=%s: %v", userID, err)
			continue
		}
		s.logger.Info("[scheduler] user=%s status=%s drafts=%d", userID, result.Status, result.TotalDrafts)
		results = append(results, result)
	}
	return results
}
