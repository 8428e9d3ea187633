package convert

import (
	"fmt"
	"log"
	"os"
	"time"

	"mediaconv/internal/domain/job"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically reclaims finished jobs: once a done job is older
// than the retention window, its artifact and record are removed. Failed
// jobs keep their (small) records for diagnostics unless a separate error
// retention window is configured. Queued and running jobs are never swept.
type Sweeper struct {
	store          JobStore
	logger         *log.Logger
	retention      time.Duration
	errorRetention time.Duration
	cron           *cron.Cron
}

// NewSweeper creates a retention sweeper. errorRetention of zero keeps
// failed jobs forever.
func NewSweeper(store JobStore, logger *log.Logger, retention, errorRetention time.Duration) *Sweeper {
	return &Sweeper{
		store:          store,
		logger:         logger,
		retention:      retention,
		errorRetention: errorRetention,
	}
}

// Start schedules sweep passes at the given interval.
func (s *Sweeper) Start(interval time.Duration) error {
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), s.Sweep); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Printf("sweeper: running every %s, retention %s", interval, s.retention)
	return nil
}

// Stop halts scheduled passes. An in-flight pass finishes.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// Sweep performs one retention pass.
func (s *Sweeper) Sweep() {
	now := time.Now()
	for _, j := range s.store.ListAll() {
		switch j.Status {
		case job.StatusDone:
			if now.Sub(j.UpdatedAt) < s.retention {
				continue
			}
			if j.OutputPath != "" {
				if err := os.Remove(j.OutputPath); err != nil && !os.IsNotExist(err) {
					s.logger.Printf("sweeper: artifact cleanup for %s failed: %v", j.ID, err)
				}
			}
			s.store.Remove(j.ID)
			s.logger.Printf("sweeper: reclaimed job %s", j.ID)
		case job.StatusError:
			if s.errorRetention <= 0 || now.Sub(j.UpdatedAt) < s.errorRetention {
				continue
			}
			s.store.Remove(j.ID)
			s.logger.Printf("sweeper: dropped failed job %s", j.ID)
		}
	}
}
