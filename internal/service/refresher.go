package service

import (
	"context"
	"log"
	"time"

	"github.com/CloserlookAI/demo-market-app-sub000/internal/adapter/agentclient"
)

// RunJobRefresher keeps the trace of background jobs current: it reads every
// non-terminal tracked job from the platform on each tick.
func (s *Service) RunJobRefresher(ctx context.Context, interval time.Duration) {
	if s.platform == nil {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshActiveJobs(ctx)
		}
	}
}

// refreshBatch is the number of jobs read from the platform per tick.
const refreshBatch = 20

func (s *Service) refreshActiveJobs(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	active, err := s.store.ListActiveJobs(sweepCtx, refreshBatch)
	if err != nil {
		log.Printf("WARN: job refresh sweep failed: %v", err)
		return
	}

	for _, rec := range active {
		// Touched before the read so a job that keeps failing moves to the
		// back of the rotation.
		if err := s.store.TouchJob(sweepCtx, rec.JobID); err != nil {
			log.Printf("WARN: failed to mark job %s checked: %v", rec.JobID, err)
		}
		job, err := s.platform.GetResponse(sweepCtx, rec.AgentName, rec.JobID)
		if err != nil {
			log.Printf("WARN: failed to refresh job %s: %v", rec.JobID, err)
			continue
		}
		s.observeStatus(sweepCtx, rec.JobID, job.Status)
		if job.Status.IsTerminal() {
			s.finishJob(sweepCtx, job, agentclient.ExtractFinalResponse(job))
		}
	}
}
