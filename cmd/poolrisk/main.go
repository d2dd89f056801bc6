package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"PoolRisk/internal/config"
	"PoolRisk/internal/core"
	"PoolRisk/internal/event"
	"PoolRisk/internal/ingestion"
	"PoolRisk/internal/observability"
	"PoolRisk/internal/server"
	"PoolRisk/internal/state"
)

const (
	componentNATS      = "nats"
	componentProcessor = "processor"
	componentServer    = "server"

	directChanSize = 256
)

func main() {
	log := observability.NewLogger("poolrisk")
	log.Info().Msg("PoolRisk starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// --- Context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	healthChecker := observability.NewHealthChecker(componentNATS, componentProcessor, componentServer)

	// --- Engine and state ---
	engine, err := core.NewEngine(cfg.Engine.CacheSize, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("create engine")
	}
	store := state.NewSnapshotStore()

	// --- NATS ---
	nc, js, err := ingestion.ConnectNATS(cfg.NATS.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect NATS")
	}
	defer nc.Close()
	log.Info().Str("url", cfg.NATS.URL).Msg("NATS connected")

	if cfg.NATS.EnsureStreams {
		if err := ingestion.EnsureStreams(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure input streams")
		}
		if err := ingestion.EnsureReportStream(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure report stream")
		}
	}

	// --- Channels ---
	rawChan := make(chan ingestion.RawEvent, cfg.NATS.RawChanSize)
	directChan := make(chan event.Event, directChanSize)
	publishChan := make(chan ingestion.ReportEnvelope, cfg.Reporter.PublishChanSize)

	// --- Reporter and processor ---
	var out chan<- ingestion.ReportEnvelope
	if cfg.Reporter.Enabled {
		out = publishChan
	}
	reporter := ingestion.NewReporter(engine, store, cfg.Options(), out, metrics, log.With().Str("component", "reporter").Logger())
	subjects := ingestion.DefaultSubjects()
	processor := ingestion.NewProcessor(store, subjects, metrics, log.With().Str("component", "processor").Logger(), reporter.MarkDirty)

	subscriber := ingestion.NewNATSSubscriber(js, rawChan, log.With().Str("component", "subscriber").Logger())
	if err := subscriber.Subscribe(ctx, subjects); err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}
	healthChecker.SetReady(componentNATS, true)

	publisher := ingestion.NewReportPublisher(js, publishChan, metrics, log.With().Str("component", "publisher").Logger())

	// --- gRPC + HTTP gateway ---
	grpcServer := server.NewGRPCServer(cfg.Server.GRPCAddr, cfg.Server.HTTPAddr, &server.ServerDeps{
		Engine:        engine,
		Store:         store,
		Ingest:        ingestion.NewDirectIngestService(directChan),
		Defaults:      cfg.Options(),
		HealthChecker: healthChecker,
		Metrics:       metrics,
		Log:           log.With().Str("component", "server").Logger(),
	})

	// --- Start goroutines ---
	errChan := make(chan error, 8)

	// 1. Snapshot processor: NATS and direct ingest into the store
	go func() {
		healthChecker.SetReady(componentProcessor, true)
		errChan <- wrap("processor", processor.Run(ctx, rawChan, directChan))
	}()

	// 2. Reporter: re-evaluate dirty pools
	go func() {
		errChan <- wrap("reporter", reporter.Run(ctx))
	}()

	// 3. Report publisher
	go func() {
		errChan <- wrap("publisher", publisher.Run(ctx))
	}()

	// 4. gRPC server
	go func() {
		errChan <- wrap("grpc", grpcServer.StartGRPC(ctx))
	}()

	// 5. HTTP/JSON gateway
	go func() {
		errChan <- wrap("http", grpcServer.StartHTTPGateway(ctx))
	}()

	// 6. Prometheus metrics server
	go func() {
		errChan <- wrap("metrics", serveMetrics(ctx, cfg.Server.MetricsAddr, log))
	}()

	// 7. Channel depth sampling
	go sampleChannels(ctx, metrics, rawChan, directChan, publishChan)

	healthChecker.SetReady(componentServer, true)

	log.Info().
		Str("grpc", cfg.Server.GRPCAddr).
		Str("http", cfg.Server.HTTPAddr).
		Str("metrics", cfg.Server.MetricsAddr).
		Bool("reports", cfg.Reporter.Enabled).
		Msg("PoolRisk ready")

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("goroutine failed, shutting down")
		}
	}

	// --- Graceful shutdown ---
	for _, c := range []string{componentNATS, componentProcessor, componentServer} {
		healthChecker.SetReady(c, false)
	}
	subscriber.Stop()
	cancel()

	// Let servers finish their shutdown handshakes
	time.Sleep(500 * time.Millisecond)

	stats := engine.CacheStats()
	log.Info().
		Uint64("cache_hits", stats.Hits).
		Uint64("cache_misses", stats.Misses).
		Msg("PoolRisk shutdown complete")
}

// wrap tags a goroutine's exit error. Context cancellation is a clean
// exit and maps to nil.
func wrap(name string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func serveMetrics(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		srv.Shutdown(shutCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func sampleChannels(
	ctx context.Context,
	metrics *observability.Metrics,
	raw chan ingestion.RawEvent,
	direct chan event.Event,
	publish chan ingestion.ReportEnvelope,
) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetChannelMetrics("raw", len(raw), cap(raw))
			metrics.SetChannelMetrics("direct", len(direct), cap(direct))
			metrics.SetChannelMetrics("publish", len(publish), cap(publish))
		}
	}
}
