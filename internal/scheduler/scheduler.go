package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs jobs at fixed intervals. A job never overlaps with itself
// and a panic in one run does not stop later runs.
type Scheduler struct {
	cron  *cron.Cron
	chain cron.Chain
	log   *logrus.Entry

	// ctx is handed to jobs. It is set by Run before the cron is started.
	ctx context.Context
}

func New() *Scheduler {
	log := logrus.WithField("component", "scheduler")
	logger := cron.PrintfLogger(log)

	return &Scheduler{
		cron:  cron.New(cron.WithLogger(logger)),
		chain: cron.NewChain(cron.Recover(logger), cron.DelayIfStillRunning(logger)),
		log:   log,
		ctx:   context.Background(),
	}
}

// Every registers job to run every interval once the scheduler is running.
func (s *Scheduler) Every(name string, interval time.Duration, job func(ctx context.Context)) error {
	if interval < time.Second {
		return fmt.Errorf("job %s: interval %s is shorter than a second", name, interval)
	}

	log := s.log.WithField("job", name)
	s.cron.Schedule(cron.Every(interval), s.chain.Then(cron.FuncJob(func() {
		started := time.Now()
		log.Debug("Job started")
		job(s.ctx)
		log.Debugf("Job finished in %s", time.Since(started))
	})))

	log.Infof("Job scheduled every %s", interval)
	return nil
}

// Run starts the scheduler and blocks until ctx is done and running jobs return.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info("Scheduler started")

	<-ctx.Done()

	s.log.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}
