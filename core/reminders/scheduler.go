package reminders

import (
	"context"
	"fmt"
	"time"

	"educontrol/config"
	"educontrol/core/store"
	"educontrol/core/utils"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically scans open incidents whose deadline has
// passed and records a reminder in the audit log so admins see them
// on the activity page. It also prunes expired sessions on the way.
type Scheduler struct {
	incidents store.IncidentsStore
	sessions  store.SessionsStore
	audit     store.AuditStore
	logger    *utils.Logger
	cron      *cron.Cron
	spec      string
}

func NewScheduler(cfg config.RemindersConfig, incidents store.IncidentsStore, sessions store.SessionsStore,
	audit store.AuditStore, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		incidents: incidents,
		sessions:  sessions,
		audit:     audit,
		logger:    logger,
		spec:      cfg.Spec,
	}
}

func (s *Scheduler) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("reminders schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Printf("reminders scheduler started spec=%q", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Errorf("reminders run: %v", err)
	}
}

// RunOnce performs a single scan. Exposed so tests and the CLI can
// trigger it without waiting for the cron tick.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := utils.NowUTC()
	overdue, err := s.incidents.ListOpenWithDeadlineBefore(ctx, now)
	if err != nil {
		return err
	}
	for i := range overdue {
		inc := &overdue[i]
		details := fmt.Sprintf("incident=%d deadline=%s", inc.ID, inc.Deadline.Format(time.RFC3339))
		if err := s.audit.Append(ctx, "system", "incidents.deadline.overdue", details); err != nil {
			return err
		}
	}
	if len(overdue) > 0 {
		s.logger.Printf("reminders: %d overdue incident(s)", len(overdue))
	}
	purged, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Printf("reminders: purged %d expired session(s)", purged)
	}
	return nil
}
