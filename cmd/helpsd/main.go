// Package main implements the entry point for helpsd, the translation-helps
// content platform daemon. It wires the tiered cache, catalog resolver and
// content fetcher over NATS JetStream, runs the extraction pipeline against
// the storage event stream, and exposes the diagnostic HTTP surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/klappy/translation-helps-core/catalog"
	"github.com/klappy/translation-helps-core/config"
	"github.com/klappy/translation-helps-core/fetcher"
	"github.com/klappy/translation-helps-core/health"
	"github.com/klappy/translation-helps-core/index"
	"github.com/klappy/translation-helps-core/metric"
	"github.com/klappy/translation-helps-core/natsclient"
	"github.com/klappy/translation-helps-core/pipeline"
	"github.com/klappy/translation-helps-core/pkg/breaker"
	"github.com/klappy/translation-helps-core/service"
	"github.com/klappy/translation-helps-core/smartcache"
	"github.com/klappy/translation-helps-core/storage/objectstore"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "helpsd"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()

	natsClient, err := connectNATS(ctx, cfg, logger, registry.Metrics, monitor)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer cancel()
		if err := natsClient.Close(closeCtx); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}()

	platform, err := buildPlatform(ctx, cfg, natsClient, logger, registry)
	if err != nil {
		return err
	}
	defer platform.stop(cliCfg.ShutdownTimeout, logger)

	server, err := service.NewServer(cfg.Diag.Addr, config.NewSafeConfig(cfg), monitor,
		service.WithReindexer(platform.reindexer),
		service.WithMetricsRegistry(registry),
		service.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create diagnostic server: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("start diagnostic server: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(stopCtx); err != nil {
			logger.Warn("diagnostic server stop failed", "error", err)
		}
	}()

	return runUntilSignal(ctx, platform, natsClient, monitor, logger)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting translation-helps content platform",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// loadConfiguration loads and validates the layered configuration
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// slogAdapter bridges slog into the natsclient logger interface
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Printf(format string, v ...any) {
	a.logger.Info(fmt.Sprintf(format, v...))
}

func (a *slogAdapter) Errorf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a *slogAdapter) Debugf(format string, v ...any) {
	a.logger.Debug(fmt.Sprintf(format, v...))
}

// connectNATS creates the NATS client with health and metrics hooks and
// establishes the connection.
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *metric.Metrics,
	monitor *health.Monitor,
) (*natsclient.Client, error) {
	var client *natsclient.Client

	opts := []natsclient.ClientOption{
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait.Std()),
		natsclient.WithLogger(&slogAdapter{logger: logger.With("subsystem", "nats")}),
		natsclient.WithReconnectCallback(func() {
			metrics.RecordNATSReconnect()
		}),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			metrics.RecordNATSStatus(healthy)
			if client != nil {
				monitor.Update("nats", health.FromConnection("nats", *client.GetStatus()))
			}
		}),
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(strings.Join(cfg.NATS.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	monitor.Update("nats", health.FromConnection("nats", *client.GetStatus()))
	return client, nil
}

// platform bundles the wired content-supply components. The resolver and
// fetcher are the embedding surface for callers of this module; the daemon
// itself drives the pipeline and diagnostics.
type platform struct {
	cache     *smartcache.SmartCache
	memTier   *smartcache.MemoryTier
	resolver  *catalog.Resolver
	fetcher   *fetcher.Fetcher
	index     *index.MemoryIndex
	breakers  []*breaker.Breaker
	unzip     *pipeline.UnzipWorker
	indexer   *pipeline.IndexWorker
	runner    *pipeline.Runner
	reindexer *pipeline.Reindexer
}

// buildPlatform provisions JetStream resources and wires every component:
// KV tier behind the smart cache, cache behind catalog and fetcher, object
// store behind the pipeline, pipeline into the index.
func buildPlatform(
	ctx context.Context,
	cfg *config.Config,
	natsClient *natsclient.Client,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
) (*platform, error) {
	metrics := registry.Metrics

	kv, err := natsClient.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Cache.Bucket,
		Description: "shared cache tier",
	})
	if err != nil {
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	objBucket, err := natsClient.CreateObjectStoreBucket(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Pipeline.ObjectBucket,
		Description: "archives and extracted content",
	})
	if err != nil {
		return nil, fmt.Errorf("create content bucket: %w", err)
	}

	if _, err := natsClient.CreateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Pipeline.Stream,
		Subjects:  []string{cfg.Pipeline.Subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	}); err != nil {
		return nil, fmt.Errorf("create storage event stream: %w", err)
	}

	consumer, err := natsClient.CreateConsumer(ctx, cfg.Pipeline.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Pipeline.Consumer,
		FilterSubject: cfg.Pipeline.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline consumer: %w", err)
	}

	memTier, err := smartcache.NewMemoryTier(ctx, cfg.Cache.MemoryTTL.Std(), cfg.Cache.CleanupInterval.Std())
	if err != nil {
		return nil, fmt.Errorf("create memory tier: %w", err)
	}
	cache, err := smartcache.New(
		[]smartcache.Tier{memTier, smartcache.NewNATSTier(kv)},
		smartcache.WithLogger(logger),
		smartcache.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("create smart cache: %w", err)
	}

	breakerOpts := []breaker.Option{
		breaker.WithFailureThreshold(cfg.Origin.Breaker.FailureThreshold),
		breaker.WithResetTimeout(cfg.Origin.Breaker.ResetTimeout.Std()),
		breaker.WithMetrics(registry),
	}
	originBreaker := breaker.New("origin-api", breakerOpts...)
	archiveBreaker := breaker.New("archive-fetch", breakerOpts...)

	originClient, err := catalog.NewOriginClient(cfg.Origin.BaseURL,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Origin.RequestTimeout.Std()}),
		catalog.WithRateLimit(cfg.Origin.RateLimit, cfg.Origin.RateBurst),
		catalog.WithSearchLimit(cfg.Origin.SearchLimit),
		catalog.WithBreaker(originBreaker),
		catalog.WithClientLogger(logger),
		catalog.WithClientMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("create origin client: %w", err)
	}

	resolver, err := catalog.NewResolver(cache, originClient, logger)
	if err != nil {
		return nil, fmt.Errorf("create catalog resolver: %w", err)
	}

	contentFetcher, err := fetcher.New(cfg.Origin.BaseURL, cache,
		fetcher.WithBreaker(archiveBreaker),
		fetcher.WithLogger(logger),
		fetcher.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("create content fetcher: %w", err)
	}

	store, err := objectstore.New(objBucket,
		objectstore.WithNotifications(natsClient, cfg.Pipeline.Subject),
		objectstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}

	searchIndex := index.NewMemoryIndex()

	unzip, err := pipeline.NewUnzipWorker(store, pipeline.DefaultIndexingPolicy(), cfg.Pipeline.Concurrency, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("create unzip worker: %w", err)
	}
	indexer, err := pipeline.NewIndexWorker(store, searchIndex, cfg.Pipeline.Concurrency, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("create index worker: %w", err)
	}
	if err := unzip.Start(ctx); err != nil {
		return nil, fmt.Errorf("start unzip worker: %w", err)
	}
	if err := indexer.Start(ctx); err != nil {
		return nil, fmt.Errorf("start index worker: %w", err)
	}

	router, err := pipeline.NewRouter(unzip, indexer,
		pipeline.WithRouterLogger(logger),
		pipeline.WithRouterMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("create pipeline router: %w", err)
	}

	runner, err := pipeline.NewRunner(consumer, router, cfg.Pipeline.BatchSize, cfg.Pipeline.MaxWait.Std(), logger)
	if err != nil {
		return nil, fmt.Errorf("create pipeline runner: %w", err)
	}

	reindexer, err := pipeline.NewReindexer(store, indexer, logger)
	if err != nil {
		return nil, fmt.Errorf("create reindexer: %w", err)
	}

	return &platform{
		cache:     cache,
		memTier:   memTier,
		resolver:  resolver,
		fetcher:   contentFetcher,
		index:     searchIndex,
		breakers:  []*breaker.Breaker{originBreaker, archiveBreaker},
		unzip:     unzip,
		indexer:   indexer,
		runner:    runner,
		reindexer: reindexer,
	}, nil
}

// stop drains the pipeline workers and releases the in-process cache tier.
func (p *platform) stop(timeout time.Duration, logger *slog.Logger) {
	if err := p.unzip.Stop(timeout); err != nil {
		logger.Warn("unzip worker stop failed", "error", err)
	}
	if err := p.indexer.Stop(timeout); err != nil {
		logger.Warn("index worker stop failed", "error", err)
	}
	p.memTier.Close()
}

// runUntilSignal drives the pipeline and health refresh until SIGINT/SIGTERM.
func runUntilSignal(
	ctx context.Context,
	p *platform,
	natsClient *natsclient.Client,
	monitor *health.Monitor,
	logger *slog.Logger,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- p.runner.Run(signalCtx)
	}()

	go refreshHealth(signalCtx, p, natsClient, monitor)

	logger.Info("platform started", "documents", p.index.Size())

	select {
	case <-signalCtx.Done():
		logger.Info("received shutdown signal")
	case err := <-runnerDone:
		if err != nil && signalCtx.Err() == nil {
			return fmt.Errorf("pipeline runner exited: %w", err)
		}
	}
	return nil
}

// refreshHealth keeps the health monitor current with connection and breaker
// state for the /healthz endpoint.
func refreshHealth(ctx context.Context, p *platform, natsClient *natsclient.Client, monitor *health.Monitor) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			monitor.Update("nats", health.FromConnection("nats", *natsClient.GetStatus()))
			for _, b := range p.breakers {
				monitor.Update("breaker:"+b.Name(), health.FromBreaker(b.Snapshot()))
			}
		}
	}
}
