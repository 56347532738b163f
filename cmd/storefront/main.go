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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/rmjobsites-storefront/api/routes"
	"github.com/angelmondragon/rmjobsites-storefront/internal/account"
	"github.com/angelmondragon/rmjobsites-storefront/internal/auth"
	"github.com/angelmondragon/rmjobsites-storefront/internal/cart"
	"github.com/angelmondragon/rmjobsites-storefront/internal/catalog"
	"github.com/angelmondragon/rmjobsites-storefront/internal/checkout"
	"github.com/angelmondragon/rmjobsites-storefront/internal/payments"
	"github.com/angelmondragon/rmjobsites-storefront/internal/payments/squarefield"
	"github.com/angelmondragon/rmjobsites-storefront/internal/pricing"
	"github.com/angelmondragon/rmjobsites-storefront/internal/requests"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/config"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/db"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/kv"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/metrics"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/migrate"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/redis"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/square"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

const (
	serviceName   = "storefront"
	purgeInterval = 15 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"storage": cfg.Storage.NormalizedDriver(),
	})

	store, purge, err := openStorage(ctx, cfg, logg)
	requireResource(ctx, logg, "storage", err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewStorefront(reg)

	authStore, err := auth.NewStore(store, cfg.Auth.SessionTTL, logg)
	requireResource(ctx, logg, "session store", err)

	client := storefront.NewClient(
		storefront.WithBaseURL(cfg.API.BaseURL),
		storefront.WithTimeout(cfg.API.Timeout),
		storefront.WithBreaker(storefront.BreakerSettings{
			ConsecutiveFailures: cfg.API.BreakerFailures,
			Cooldown:            cfg.API.BreakerCooldown,
			HalfOpenRequests:    cfg.API.BreakerHalfOpenN,
		}),
		storefront.WithTokenSource(authStore.Token),
		storefront.WithMetrics(m),
		storefront.WithLogger(logg),
	)

	authService, err := auth.NewService(client, authStore, logg)
	requireResource(ctx, logg, "auth service", err)

	catalogService, err := catalog.NewService(client, logg)
	requireResource(ctx, logg, "catalog service", err)
	searcher, err := catalog.NewSearcher(catalogService.Search, cfg.Checkout.SearchDebounce, cfg.Checkout.SearchLimit, logg)
	requireResource(ctx, logg, "search", err)
	defer searcher.Close()

	cartStore, err := cart.NewStore(store, logg)
	requireResource(ctx, logg, "cart store", err)
	shoppingCart, err := cart.New(cartStore)
	requireResource(ctx, logg, "cart", err)
	shoppingCart.Hydrate(ctx)

	gateway, err := pricing.NewGateway(client, logg, m)
	requireResource(ctx, logg, "pricing gateway", err)

	containers := squarefield.NewContainers()
	var providerOpts []squarefield.Option
	if cfg.Square.AccessToken != "" {
		squareClient, err := square.NewClient(ctx, cfg.Square, logg)
		requireResource(ctx, logg, "square", err)
		providerOpts = append(providerOpts, squarefield.WithLocationVerifier(squareClient))
	}
	provider, err := squarefield.NewProvider(containers, logg, providerOpts...)
	requireResource(ctx, logg, "payment provider", err)
	paymentField, err := payments.NewController(provider, logg, m)
	requireResource(ctx, logg, "payment field", err)

	orchestrator, err := checkout.NewOrchestrator(checkout.Deps{
		Cart:            shoppingCart,
		Pricer:          gateway,
		Payments:        paymentField,
		API:             client,
		Logger:          logg,
		Metrics:         m,
		CardContainerID: cfg.Checkout.CardContainerID,
	})
	requireResource(ctx, logg, "checkout", err)
	defer orchestrator.Exit()

	accountService, err := account.NewService(client, authService, logg)
	requireResource(ctx, logg, "account service", err)
	requestsService, err := requests.NewService(client, authService, logg)
	requireResource(ctx, logg, "requests service", err)

	ready := map[string]kv.Pinger{}
	if pinger, ok := store.(kv.Pinger); ok {
		ready["storage"] = pinger
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			Gatherer:   reg,
			Ready:      ready,
			Sessions:   authService,
			Auth:       authService,
			Catalog:    catalogService,
			Search:     searcher,
			Cart:       shoppingCart,
			Badge:      cartStore,
			Checkout:   orchestrator,
			Containers: containers,
			Account:    accountService,
			Requests:   requestsService,
		}),
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(gctx, "starting storefront server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		logg.Info(ctx, "shutting down storefront server")
		return server.Shutdown(shutdownCtx)
	})
	if purge != nil {
		group.Go(func() error {
			runPurge(gctx, logg, purge)
			return nil
		})
	}

	runErr := group.Wait()
	if err := multierr.Combine(runErr, store.Close()); err != nil {
		logg.Error(ctx, "storefront stopped with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "storefront stopped")
}

// openStorage builds the key-value backend for the configured driver. SQL backends
// also return a purge function for expired rows.
func openStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger) (kv.Store, func(context.Context) (int64, error), error) {
	switch cfg.Storage.NormalizedDriver() {
	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		client, err := db.New(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("running migrations: %w", err), client.Close())
		}
		store := db.NewKVStore(client)
		return store, store.PurgeExpired, nil
	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		return kv.NewMemory(), nil, nil
	}
}

func runPurge(ctx context.Context, logg *logger.Logger, purge func(context.Context) (int64, error)) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := purge(ctx)
			if err != nil {
				logg.Error(ctx, "purging expired entries failed", err)
				continue
			}
			if removed > 0 {
				logg.Info(logg.WithField(ctx, "removed", removed), "purged expired entries")
			}
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
