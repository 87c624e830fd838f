package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anchorline/anchor-engine/internal/alert"
	"github.com/anchorline/anchor-engine/internal/circuitbreaker"
	"github.com/anchorline/anchor-engine/internal/config"
	"github.com/anchorline/anchor-engine/internal/engine/poller"
	"github.com/anchorline/anchor-engine/internal/engine/submitter"
	"github.com/anchorline/anchor-engine/internal/engine/watcher"
	"github.com/anchorline/anchor-engine/internal/fee"
	"github.com/anchorline/anchor-engine/internal/multisig"
	"github.com/anchorline/anchor-engine/internal/notifier"
	"github.com/anchorline/anchor-engine/internal/rails/dev"
	"github.com/anchorline/anchor-engine/internal/registry"
	"github.com/anchorline/anchor-engine/internal/stellar"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/anchorline/anchor-engine/internal/store/postgres"
	redispkg "github.com/anchorline/anchor-engine/internal/store/redis"
	"github.com/anchorline/anchor-engine/internal/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting anchor-engine",
		"horizon", cfg.Horizon.URL,
		"fee_policy", cfg.Fee.Policy,
		"batch_size", cfg.Engine.BatchSize,
	)

	// Initialize OpenTelemetry tracing
	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(context.Background(), "anchor-engine", tracingEndpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	// Connect to PostgreSQL
	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		if err := db.RunMigrations(dir); err != nil {
			logger.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	// Notification sinks. The Redis stream is optional: without it only the
	// webhook callback fires.
	sinks := []notifier.Sink{notifier.NewWebhookSink(cfg.Notifier.CallbackTimeout)}
	if cfg.Redis.URL != "" {
		stream, err := redispkg.NewStream(cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer stream.Close()
		sinks = append(sinks, notifier.NewStreamSink(stream, cfg.Notifier.StreamKey))
	}
	dispatcher := notifier.NewDispatcher(logger, sinks...)

	// Repositories. Every transaction write goes through the notifying
	// decorator so status changes always reach the business.
	var txs store.TransactionStore = postgres.NewTransactionRepo(db)
	txs = notifier.NewNotifyingStore(txs, dispatcher)
	assetRepo := postgres.NewAssetRepo(db)
	channelRepo := postgres.NewChannelAccountRepo(db)
	cursorRepo := postgres.NewCursorRepo(db)

	// Seed cipher and asset registry.
	var cipher *registry.SeedCipher
	if cfg.Security.SeedEncryptionKey != "" {
		cipher, err = registry.NewSeedCipher(cfg.Security.SeedEncryptionKey)
		if err != nil {
			logger.Error("invalid seed encryption key", "error", err)
			os.Exit(1)
		}
	}
	assets := registry.New(assetRepo, cipher, cfg.Engine.RegistryRefresh, logger)
	if err := assets.Load(context.Background()); err != nil {
		logger.Error("failed to load asset registry", "error", err)
		os.Exit(1)
	}

	// Horizon client.
	horizon := stellar.NewHorizonClient(cfg.Horizon.URL, logger)
	if cfg.Horizon.RequestsPerSecond > 0 {
		horizon.SetRateLimiter(stellar.NewLimiter(cfg.Horizon.RequestsPerSecond, int(cfg.Horizon.RequestsPerSecond)))
	}
	builder := stellar.NewPaymentBuilder(assets, cfg.Horizon.NetworkPassphrase)

	// Alert channels.
	var alerters []alert.Alerter
	if cfg.Alert.SlackWebhookURL != "" {
		alerters = append(alerters, alert.NewSlackAlerter(cfg.Alert.SlackWebhookURL))
	}
	if cfg.Alert.WebhookURL != "" {
		alerters = append(alerters, alert.NewWebhookAlerter(cfg.Alert.WebhookURL))
	}
	var alerter alert.Alerter = &alert.NoopAlerter{}
	if len(alerters) > 0 {
		alerter = alert.NewMultiAlerter(cfg.Alert.Cooldown, logger, alerters...)
	}

	fees, err := fee.NewCalculator(fee.Policy(cfg.Fee.Policy))
	if err != nil {
		logger.Error("invalid fee policy", "error", err)
		os.Exit(1)
	}

	// TODO: replace dev rails with the production rail wiring once the
	// banking integration service is ready.
	railImpl := dev.New()
	logger.Warn("development rails in use, payouts settle instantly")

	manager := multisig.NewManager(horizon, channelRepo, txs, railImpl, logger)
	breaker := circuitbreaker.New(circuitbreaker.Config{})
	sub := submitter.New(txs, channelRepo, horizon, builder, manager, assets, breaker, logger)

	// Context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// Health check server
	g.Go(func() error {
		return runHealthServer(gCtx, cfg.Server.HealthPort, logger)
	})

	// Workers
	g.Go(func() error {
		return assets.Run(gCtx)
	})
	g.Go(func() error {
		w := watcher.New(horizon, txs, cursorRepo, assets, fees, alerter, logger)
		return w.Run(gCtx)
	})
	g.Go(func() error {
		p := poller.NewDepositPoller(txs, railImpl, assets, fees, cfg.Engine.DepositPollInterval, cfg.Engine.BatchSize, logger)
		return p.Run(gCtx)
	})
	g.Go(func() error {
		e := poller.NewExecutor(txs, railImpl, sub, cfg.Engine.ExecutorInterval, cfg.Engine.BatchSize, logger)
		return e.Run(gCtx)
	})
	g.Go(func() error {
		p := poller.NewOutgoingPoller(txs, railImpl, cfg.Engine.OutgoingPollInterval, cfg.Engine.BatchSize, logger)
		return p.Run(gCtx)
	})
	g.Go(func() error {
		p := poller.NewTrustlinePoller(txs, horizon, assets, sub, cfg.Engine.TrustlinePollInterval, cfg.Engine.BatchSize, logger)
		return p.Run(gCtx)
	})

	// Signal handler
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("engine exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("engine shut down gracefully")
}

func runHealthServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()

	logger.Info("health server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
