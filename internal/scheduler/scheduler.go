// Package scheduler runs a task on a cron schedule and tracks its status.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Task func(ctx context.Context) error

// Status is a snapshot of the task's most recent activity.
type Status struct {
	Running   bool   `json:"running"`
	LastRunAt string `json:"lastRunAt,omitempty"`
	LastOkAt  string `json:"lastOkAt,omitempty"`
	LastError string `json:"lastError,omitempty"`
	Next      string `json:"next,omitempty"`
}

type Scheduler struct {
	name string
	task Task
	c    *cron.Cron
	id   cron.EntryID

	mu     sync.Mutex
	status Status
	ctx    context.Context
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 6h"). Overlapping runs are skipped, panics are recovered. An empty
// spec leaves the task to RunNow only.
func New(name, spec string, task Task) (*Scheduler, error) {
	logger := cron.PrintfLogger(logrus.WithField("component", "scheduler"))
	s := &Scheduler{
		name: name,
		task: task,
		ctx:  context.Background(),
		c: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	if spec == "" {
		return s, nil
	}
	id, err := s.c.AddFunc(spec, func() { _ = s.RunNow(s.baseCtx()) })
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.id = id
	return s, nil
}

func (s *Scheduler) baseCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Start runs the schedule until ctx is done, then waits for a running task
// to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.c.Start()
	if s.id != 0 {
		logrus.Infof("[%s] scheduled, next run %s", s.name, s.c.Entry(s.id).Next.Format(time.RFC3339))
	}
	<-ctx.Done()
	<-s.c.Stop().Done()
}

// RunNow runs the task immediately and records the outcome.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.mu.Lock()
	s.status.Running = true
	s.status.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	s.mu.Unlock()

	err := s.task(ctx)

	s.mu.Lock()
	s.status.Running = false
	if err != nil {
		s.status.LastError = err.Error()
		logrus.Errorf("[%s] error: %v", s.name, err)
	} else {
		s.status.LastError = ""
		s.status.LastOkAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.mu.Unlock()
	return err
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.status
	s.mu.Unlock()
	if s.id == 0 {
		return st
	}
	if next := s.c.Entry(s.id).Next; !next.IsZero() {
		st.Next = next.UTC().Format(time.RFC3339)
	}
	return st
}
