package scheduler

import (
	"context"
	"log"
	"time"
)

// Job is one scheduled run
type Job func(ctx context.Context) error

type Scheduler struct {
	job      Job
	interval time.Duration
	tick     func(time.Duration) (<-chan time.Time, func())
}

func New(job Job, interval time.Duration) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			ticker := time.NewTicker(d)
			return ticker.C, ticker.Stop
		},
	}
}

// Start runs the job immediately and then every interval until ctx is
// cancelled. A failed run is logged and does not stop the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	ticks, stop := s.tick(s.interval)
	defer stop()

	if err := s.job(ctx); err != nil {
		log.Printf("Error in initial run: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return ctx.Err()
		case <-ticks:
			if err := s.job(ctx); err != nil {
				log.Printf("Error in scheduled run: %v", err)
			}
		}
	}
}
