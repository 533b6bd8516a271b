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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"icried/internal/amqp"
	"icried/internal/cli"
	applog "icried/internal/log"
	"icried/internal/metrics"
	"icried/internal/services"
)

func main() {
	logger := cli.SetupLogger(slog.LevelInfo)
	cli.LoadEnvFile(logger)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel()).WithComponent(applog.ComponentSync)

	logger.Info("Starting icried-sync", "api_url", cfg.APIURL)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	clock := clockwork.NewRealClock()

	// The API process owns the journal; this process only schedules passes
	// and relays change notifications to it.
	processor := services.NewSyncProcessor(
		services.NewRemoteSyncer(cfg.APIURL, nil),
		services.SyncProcessorConfig{
			Interval:   cfg.SyncInterval,
			RunOnStart: true,
			Timeout:    4 * time.Minute,
		},
		clock,
	)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", applog.FieldError, err)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			amqp.WithBreakerStateHook(func(_, to gobreaker.State) {
				m.SetBreakerState(applog.ComponentAMQP, int(to))
			}))
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on periodic sync", applog.FieldError, err)
		} else {
			go func() {
				err := amqpClient.ConsumeJournalChanges(ctx, processor.HandleJournalChanged)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", applog.FieldError, err)
				}
			}()
		}
	} else {
		logger.Info("No AMQP_URL provided, relying on periodic sync", "interval", cfg.SyncInterval)
	}

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving metrics", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", applog.FieldError, err)
		}
	}()

	<-ctx.Done()

	cli.RunCleanup(logger, 30*time.Second,
		processor.Stop,
		metricsSrv.Shutdown,
		func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		},
	)
	logger.Info("icried-sync stopped")
}

func metricsMux(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
