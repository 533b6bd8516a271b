package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"

	"icried/internal/amqp"
	"icried/internal/cli"
	apphttp "icried/internal/http"
	applog "icried/internal/log"
	"icried/internal/metrics"
	"icried/internal/services"
	"icried/internal/worker"
)

func main() {
	logger := cli.SetupLogger(slog.LevelInfo)
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel())

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	clock := clockwork.NewRealClock()

	j, store, err := cli.OpenJournal(ctx, logger.WithComponent(applog.ComponentStorage), cfg)
	if err != nil {
		logger.Error("Failed to open journal", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svcOpts := []services.ServiceOption{services.WithMetrics(m)}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			amqp.WithBreakerStateHook(func(_, to gobreaker.State) {
				m.SetBreakerState(applog.ComponentAMQP, int(to))
			}))
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", applog.FieldError, err)
		} else {
			svcOpts = append(svcOpts, services.WithPublisher(amqpClient))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	svc := services.NewJournalService(j, svcOpts...)

	remote, err := cli.OpenCloud(ctx, logger.WithComponent(applog.ComponentCloud), cfg, func(state int) {
		m.SetBreakerState(applog.ComponentCloud, state)
	})
	if err != nil {
		logger.Error("Failed to open cloud store", applog.FieldError, err, "cloud_backend", cfg.CloudBackend)
		os.Exit(1)
	}

	srvOpts := []apphttp.Option{
		apphttp.WithLogger(logger.WithComponent(applog.ComponentHTTP)),
		apphttp.WithMetrics(m, reg),
		apphttp.WithClock(clock),
		apphttp.WithLocation(cfg.Location()),
		apphttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	if store.Pinger != nil {
		srvOpts = append(srvOpts, apphttp.WithPinger(store.Pinger))
	}

	var processor *services.SyncProcessor
	if remote.Enabled() {
		syncWorker := worker.NewSyncWorker(j, remote.Store, worker.WithClock(clock), worker.WithMetrics(m))
		srvOpts = append(srvOpts, apphttp.WithSyncer(syncWorker))

		// With a broker configured, icried-sync decides when passes run and
		// requests them through POST /api/sync. Either way every pass runs
		// here, against the only journal writing to the store.
		if amqpClient == nil {
			processor = services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
				Interval:   cfg.SyncInterval,
				RunOnStart: true,
				Timeout:    2 * time.Minute,
			}, clock)
			if err := processor.Start(ctx); err != nil {
				logger.Error("Failed to start sync processor", applog.FieldError, err)
				os.Exit(1)
			}
		} else {
			logger.Info("Scheduled sync delegated to icried-sync", "interval", cfg.SyncInterval)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, srvOpts...)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		logger.Info("Starting icried server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"cloud_backend", cfg.CloudBackend,
			"amqp_enabled", amqpClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			stop()
		}
	}()

	<-ctx.Done()

	cli.RunCleanup(logger, 30*time.Second,
		srv.Shutdown,
		func(ctx context.Context) error {
			if processor == nil {
				return nil
			}
			return processor.Stop(ctx)
		},
		func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		},
		func(context.Context) error { return store.Cleanup() },
	)
	logger.Info("Server stopped gracefully")
}
