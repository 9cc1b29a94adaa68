package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raikasdev/howareya/core/logger"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron runs a sweep on a fixed schedule. Overlapping fires are skipped.
type Cron struct {
	c        *cron.Cron
	schedule cron.Schedule
	runner   *Runner
	timeout  time.Duration
	log      logger.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewCron parses spec in the named time zone and registers the sweep.
func NewCron(cfg Config, runner *Runner, log logger.Logger) (*Cron, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	cfg.SetDefaults()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	sched, err := cronParser.Parse(cfg.Cron)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", cfg.Cron, err)
	}
	cl := cronLogger{log: log}
	c := &Cron{
		c: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		schedule: sched,
		runner:   runner,
		timeout:  cfg.RunTimeout(),
		log:      log,
		ctx:      context.Background(),
	}
	if _, err := c.c.AddFunc(cfg.Cron, c.fire); err != nil {
		return nil, fmt.Errorf("register sweep: %w", err)
	}
	return c, nil
}

// Next returns the first fire time after t.
func (c *Cron) Next(t time.Time) time.Time {
	return c.schedule.Next(t.In(c.c.Location()))
}

// Start runs the scheduler until ctx is done. The returned channel closes
// once the scheduler has stopped and any running sweep has returned.
func (c *Cron) Start(ctx context.Context) <-chan struct{} {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.c.Start()
	c.log.Infof("cron sweep scheduled, next run at %s", c.Next(time.Now()).Format(time.RFC3339))
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-c.c.Stop().Done()
		close(done)
	}()
	return done
}

func (c *Cron) fire() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	// A sweep is never cancelled halfway by shutdown, only by its own bound.
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	report, err := c.runner.Sweep(ctx, SourceCron)
	if err != nil {
		c.log.Errorf("cron sweep: %v", err)
		return
	}
	c.log.Infow("cron sweep done", map[string]any{
		"run_id": report.ID, "contacts": len(report.Results), "booked": len(report.Booked()),
	})
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct{ log logger.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debugw("cron: "+msg, kvFields(kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Errorf("cron: %s: %v %v", msg, err, kv)
}

func kvFields(kv []any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
