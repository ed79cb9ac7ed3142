package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"StudyPlanner/internal/ports"
)

// CronScheduler drives recurring pipeline runs from a cron expression.
// Shutdown is driven solely through Stop; the owner decides when.
type CronScheduler struct {
	spec     string
	location *time.Location

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for the given cron expression and zone.
func NewCronScheduler(spec string, location *time.Location) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location}
}

// Start registers the job and begins the cron loop. The job also fires once
// immediately so a freshly started process produces a snapshot right away.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	if c.cron != nil {
		c.mu.Unlock()
		return nil
	}
	cr := cron.New(cron.WithLocation(c.location))
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now()) }); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}
	c.cron = cr
	c.mu.Unlock()

	job(time.Now())

	c.mu.Lock()
	if c.cron == cr {
		cr.Start()
	}
	c.mu.Unlock()

	return nil
}

// Stop halts the cron loop and waits for a running job to finish, or for the
// given context to expire. Safe to call more than once.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	stopCtx := cr.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	return nil
}
