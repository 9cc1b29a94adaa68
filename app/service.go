// Package app wires the booking service from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/raikasdev/howareya/config"
	"github.com/raikasdev/howareya/core/booking"
	coremetrics "github.com/raikasdev/howareya/core/metrics"
	coremon "github.com/raikasdev/howareya/core/monitoring"
	"github.com/raikasdev/howareya/infra/calcom"
	"github.com/raikasdev/howareya/infra/logger"
	"github.com/raikasdev/howareya/infra/metrics"
	"github.com/raikasdev/howareya/infra/monitoring"
	"github.com/raikasdev/howareya/infra/mqtt"
	"github.com/raikasdev/howareya/infra/store"
	"github.com/raikasdev/howareya/internal/eventbus"
	"github.com/raikasdev/howareya/trigger"
)

// Service owns every long-lived component of the booking service.
type Service struct {
	cfg    *config.Config
	Store  *store.SQLiteStore
	Client *calcom.Client
	Runner *trigger.Runner
	bus    *eventbus.Bus
	sink   coremetrics.MetricsSink
	log    logger.Logger
}

// Setup configures process-wide logging and error monitoring.
func Setup(cfg *config.Config) error {
	if err := logger.Configure(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	return nil
}

// OpenStore opens the configured SQLite database.
func OpenStore(cfg *config.Config) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

// NewCalClient builds the scheduling service client.
func NewCalClient(cfg *config.Config) *calcom.Client {
	return calcom.NewClient(cfg.CalCom, calcom.WithLogger(logger.New("calcom")))
}

// New creates a Service from the configuration. Setup must have run.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")
	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	client := NewCalClient(cfg)
	bus := eventbus.New()
	orch := booking.NewOrchestrator(cfg.Booking, st, st, client,
		booking.WithLogger(logger.New("booking")),
		booking.WithBus(bus),
	)
	return &Service{
		cfg:    cfg,
		Store:  st,
		Client: client,
		Runner: trigger.NewRunner(st, orch, logger.New("trigger")),
		bus:    bus,
		sink:   sink,
		log:    log,
	}, nil
}

// Run starts the triggers and blocks until ctx is canceled or the HTTP
// server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collectorDone := metrics.StartEventCollector(ctx, s.bus, s.sink)

	cron, err := trigger.NewCron(s.cfg.Trigger, s.Runner, logger.New("cron"))
	if err != nil {
		return err
	}
	cronDone := cron.Start(ctx)

	if s.cfg.Trigger.MQTT != nil {
		t, err := mqtt.NewTrigger(ctx, *s.cfg.Trigger.MQTT, s.Runner.Handler(trigger.SourceMQTT))
		if err != nil {
			cancel()
			<-cronDone
			<-collectorDone
			return fmt.Errorf("mqtt trigger: %w", err)
		}
		t.ForwardOutcomes(ctx, s.bus)
		defer t.Disconnect()
	}

	srv := trigger.NewServer(s.cfg.Trigger, s.Runner, logger.New("http"))
	err = srv.Start(ctx)
	cancel()
	<-cronDone
	<-collectorDone
	s.log.Infof("service stopped")
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	coremetrics.Close(s.sink)
	coremon.Flush(s.cfg.Sentry.FlushTimeout())
	return s.Store.Close()
}
