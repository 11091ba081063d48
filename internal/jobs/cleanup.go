package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionSweeper is implemented by the session service.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// CleanupJob periodically sweeps expired sessions. Lookups already self-heal
// on access; the sweep keeps the table and the disk from accumulating dead
// sessions nobody touches again.
type CleanupJob struct {
	sweeper  SessionSweeper
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(sweeper SessionSweeper, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *CleanupJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep expired sessions")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("swept expired sessions")
	}
}
