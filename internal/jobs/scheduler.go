package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Sweeper interface {
	Sweep(ctx context.Context, idle time.Duration) int
}

// Scheduler periodically sweeps idle workspaces so abandoned sessions do not
// keep their previews forever.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	interval time.Duration
	idle     time.Duration
	log      zerolog.Logger
}

func NewScheduler(sweeper Sweeper, interval, idle time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		interval: interval,
		idle:     idle,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.interval <= 0 || s.idle <= 0 {
		s.log.Info().Msg("workspace sweeping disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), s.sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.cron.Start()
	s.log.Info().Dur("interval", s.interval).Dur("idle", s.idle).Msg("workspace sweeper started")
	return nil
}

// Stop halts the schedule. The returned context is done once a running
// sweep has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) sweep() {
	removed := s.sweeper.Sweep(context.Background(), s.idle)
	s.log.Debug().Int("removed", removed).Msg("sweep finished")
}
