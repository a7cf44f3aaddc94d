package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"donor-crm/internal/core/ports"
	"donor-crm/internal/domain"
	"donor-crm/internal/metrics"
	"donor-crm/internal/pkg/logger"
	"donor-crm/internal/worker"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Config struct {
	Interval  time.Duration
	BatchSize int
	ClaimTTL  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = 5 * time.Minute
	}
	return c
}

// Coordinator drives due journey runs through the worker on a fixed interval.
// It is owned by the host process: Start and Stop may each be called any
// number of times.
type Coordinator struct {
	cfg    Config
	runs   ports.RunRepository
	worker *worker.Worker
	lock   ports.TickLock
	clock  ports.Clock
	log    *logger.Logger
	m      *metrics.Metrics

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewCoordinator(
	cfg Config,
	runs ports.RunRepository,
	w *worker.Worker,
	lock ports.TickLock,
	clock ports.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
) *Coordinator {
	return &Coordinator{
		cfg:    cfg.withDefaults(),
		runs:   runs,
		worker: w,
		lock:   lock,
		clock:  clock,
		log:    log.Component("coordinator"),
		m:      m,
	}
}

// Start schedules Tick every interval. Calling Start on a running
// coordinator does nothing.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	sched := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	schedule := fmt.Sprintf("@every %s", c.cfg.Interval)
	if _, err := sched.AddFunc(schedule, func() {
		if _, err := c.Tick(ctx); err != nil {
			c.log.Error("Scheduler tick failed", "error", err)
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule tick %q: %w", schedule, err)
	}

	sched.Start()
	c.cron = sched
	c.cancel = cancel
	c.log.Info("Coordinator started", "interval", c.cfg.Interval, "batch_size", c.cfg.BatchSize)
	return nil
}

// Stop cancels in-flight work and waits for a running tick to return.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	sched, cancel := c.cron, c.cancel
	c.cron, c.cancel = nil, nil
	c.mu.Unlock()

	if sched == nil {
		return
	}
	cancel()
	<-sched.Stop().Done()
	c.log.Info("Coordinator stopped")
}

func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cron != nil
}

// Tick processes one batch of due runs and returns how many were advanced.
// Per-run failures are logged and do not abort the batch.
func (c *Coordinator) Tick(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("donor-crm/coordinator").Start(ctx, "scheduler.tick")
	defer span.End()
	started := time.Now()

	release, ok, err := c.lock.TryAcquire(ctx, c.cfg.ClaimTTL)
	if err != nil {
		c.m.Tick("error", time.Since(started))
		span.RecordError(err)
		span.SetStatus(codes.Error, "tick lease")
		return 0, fmt.Errorf("acquire tick lease: %w", err)
	}
	if !ok {
		c.log.Debug("Tick lease held elsewhere, skipping")
		c.m.Tick("skipped", time.Since(started))
		return 0, nil
	}
	defer release()

	now := c.clock.Now()
	due, err := c.runs.FindDue(ctx, now, now.Add(-c.cfg.ClaimTTL), c.cfg.BatchSize)
	if err != nil {
		c.m.Tick("error", time.Since(started))
		span.RecordError(err)
		span.SetStatus(codes.Error, "find due runs")
		return 0, fmt.Errorf("find due runs: %w", err)
	}

	processed := 0
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		run := &due[i]
		status, err := c.worker.ProcessRun(ctx, run)
		switch {
		case errors.Is(err, domain.ErrClaimConflict):
			c.log.Debug("Run claimed elsewhere", "run_id", run.ID)
		case err != nil:
			c.log.Error("Failed to process run", "run_id", run.ID, "journey_id", run.JourneyID, "error", err)
		default:
			processed++
			c.log.Debug("Run advanced", "run_id", run.ID, "status", status)
		}
	}

	span.SetAttributes(
		attribute.Int("runs.due", len(due)),
		attribute.Int("runs.processed", processed),
	)
	c.m.Tick("ok", time.Since(started))
	if len(due) > 0 {
		c.log.Info("Tick finished", "due", len(due), "processed", processed)
	}
	return processed, nil
}
