package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"donor-crm/internal/api"
	"donor-crm/internal/config"
	"donor-crm/internal/coordinator"
	"donor-crm/internal/core/ports"
	"donor-crm/internal/core/postgres/repository"
	"donor-crm/internal/infrastructure/notify"
	infraredis "donor-crm/internal/infrastructure/redis"
	"donor-crm/internal/metrics"
	"donor-crm/internal/pkg/logger"
	"donor-crm/internal/report"
	"donor-crm/internal/service"
	"donor-crm/internal/worker"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type app struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redis       *redis.Client
	metrics     *metrics.Metrics
	coordinator *coordinator.Coordinator
	journeys    service.JourneyService
	reports     service.ReportService

	shutdownTracing func(context.Context) error
}

// newApp wires every component. On error whatever was already opened is closed.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	shutdown, err := metrics.SetupTracing(ctx, "donor-crm", cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.shutdownTracing = shutdown

	// 1. Database
	a.db, err = repository.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(a.db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// 2. Redis is optional: a single instance can run with the local lock
	var lock ports.TickLock = infraredis.LocalTickLock{}
	var bus ports.EventBus = infraredis.NoopEventBus{}
	if cfg.RedisAddr != "" {
		a.redis, err = infraredis.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		lock = infraredis.NewRedisTickLock(a.redis)
		bus = infraredis.NewRedisEventBus(a.redis)
	} else {
		log.Warn("REDIS_ADDR not set, using in-process tick lock")
	}

	// 3. Repositories
	journeyRepo := repository.NewJourneyRepository(a.db)
	runRepo := repository.NewRunRepository(a.db)
	contactRepo := repository.NewContactRepository(a.db)
	clock := ports.SystemClock{}

	// 4. Scheduler
	notifier := notify.New(log, cfg.SMTP, cfg.Twilio)
	w := worker.NewWorker(
		runRepo, journeyRepo, contactRepo, bus,
		worker.InitRegistry(notifier, cfg.Scheduler.SendTimeout),
		clock, log, a.metrics,
		worker.Options{MaxConsecutiveFailures: cfg.Scheduler.MaxConsecutiveFailures},
	)
	a.coordinator = coordinator.NewCoordinator(
		coordinator.Config{
			Interval:  cfg.Scheduler.Interval,
			BatchSize: cfg.Scheduler.BatchSize,
			ClaimTTL:  cfg.Scheduler.ClaimTTL,
		},
		runRepo, w, lock, clock, log, a.metrics,
	)

	// 5. Services
	a.journeys = service.NewJourneyService(journeyRepo, runRepo, contactRepo, clock, log, a.metrics)
	engine := report.NewEngine(
		repository.NewDonationRepository(a.db),
		contactRepo,
		repository.NewOrganizationRepository(a.db),
		repository.NewCampaignRepository(a.db),
		log, a.metrics,
		report.Options{DetailLimit: cfg.Report.DetailLimit, PreviewRows: cfg.Report.PreviewRows},
	)
	a.reports = service.NewReportService(repository.NewReportRepository(a.db), engine, log)

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Warn("Failed to flush traces", "error", err)
		}
	}
}

func serve(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Scheduler.Enabled {
		if err := a.coordinator.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer a.coordinator.Stop()
	}
	if a.redis != nil {
		go a.logRunEvents(ctx)
	}

	srv := &http.Server{
		Addr: a.cfg.HTTPAddr,
		Handler: api.NewRouter(api.RouterDeps{
			DB:       a.db,
			Journeys: a.journeys,
			Reports:  a.reports,
			Log:      a.log,
			Metrics:  a.metrics,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func tick(ctx context.Context, a *app) error {
	n, err := a.coordinator.Tick(ctx)
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	a.log.Info("Tick finished", "processed", n)
	return nil
}

// logRunEvents mirrors run transitions published by every instance.
func (a *app) logRunEvents(ctx context.Context) {
	events, err := infraredis.NewRedisEventBus(a.redis).SubscribeRunEvents(ctx)
	if err != nil {
		a.log.Warn("Run event subscription failed", "error", err)
		return
	}
	log := a.log.Component("run_events")
	for ev := range events {
		log.Debug("Run event", "run_id", ev.RunID, "journey_id", ev.JourneyID, "status", ev.Status)
	}
}
