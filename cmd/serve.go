package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/events"
	httpapi "storefront/internal/http"
	"storefront/internal/repository"
	"storefront/internal/seed"
	"storefront/internal/service"
	"storefront/internal/telemetry"
)

// stores bundles the repositories of one backend.
type stores struct {
	catalog   repository.CatalogRepository
	customers repository.CustomerRepository
	carts     repository.CartRepository
	orders    repository.OrderRepository
	tx        repository.TxManager
	health    func(ctx context.Context) error
	close     func()
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.Store == config.StorePostgres {
		pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns))
		if err != nil {
			return nil, err
		}
		return &stores{
			catalog: pg, customers: pg, carts: pg, orders: pg, tx: pg,
			health: pg.Ping,
			close:  pg.Close,
		}, nil
	}
	mem := repository.NewMemoryStore()
	return &stores{
		catalog:   mem,
		customers: mem,
		carts:     repository.NewMemoryCarts(mem),
		orders:    repository.NewMemoryOrders(mem),
		tx:        repository.NewMemoryTx(mem),
		health:    func(context.Context) error { return nil },
		close:     func() {},
	}, nil
}

func serve(c *cli.Context) error {
	cfg := config.FromCLI(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "storefront", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()
	metrics := telemetry.NewMetrics()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()
	log.Info("storage ready", zap.String("store", cfg.Store))

	notifier := service.NewNotifier(log, cfg.NotifyTimeout)
	notifier.Register("log", events.NewLogReceiver(log))
	notifier.Register("metrics", events.NewMetricsReceiver(metrics))

	var cartCache service.CartCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			// reads fall through to storage while redis is down
			log.Warn("redis unreachable, cart cache degraded", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cc := cache.NewCartCache(client, cfg.CartCacheTTL)
		cartCache = cc
		notifier.Register("cart-cache", cc)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(
			events.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic),
			cfg.KafkaTopic,
			events.BreakerSettings("kafka-"+cfg.KafkaTopic, 5, 30*time.Second, log),
			log,
		)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("kafka writer close failed", zap.Error(err))
			}
		}()
		notifier.Register("kafka", events.NewCountingReceiver(publisher, metrics))
	}

	catalog := service.NewCatalogService(st.catalog)
	customers := service.NewCustomerService(st.customers)
	carts := service.NewCartService(st.carts, st.catalog, cartCache, log)
	orders := service.NewOrderService(st.customers, st.carts, st.orders, st.tx, notifier, log)

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		stats, err := seed.Apply(ctx, f, catalog, customers, log)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		log.Info("seed applied",
			zap.Int("collections", stats.Collections),
			zap.Int("products", stats.Products),
			zap.Int("reviews", stats.Reviews),
			zap.Int("customers", stats.Customers),
		)
	}

	srv := httpapi.NewServer(carts, orders, customers, catalog, httpapi.Options{
		Logger:         log,
		Metrics:        metrics,
		RequestTimeout: cfg.RequestTimeout,
		Health:         st.health,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(srv.Engine(), "storefront"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		log.Error("shutdown error", zap.Error(err))
		return err
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg := config.FromCLI(c)
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "migrations applied")
	return nil
}
