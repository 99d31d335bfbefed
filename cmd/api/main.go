package main

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-cart-checkout/internal/config"
	"github.com/ariefcatur/go-cart-checkout/internal/httpx"
	kafkax "github.com/ariefcatur/go-cart-checkout/internal/kafka"
	"github.com/ariefcatur/go-cart-checkout/internal/memstore"
	"github.com/ariefcatur/go-cart-checkout/internal/metrics"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/postgres"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed, err := config.LoadCatalog(cfg.CatalogSeed)
	if err != nil {
		log.Error("catalog seed", "err", err)
		os.Exit(1)
	}

	// Storage
	var store orders.Beginner
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on exit")
		if len(seed) == 0 {
			seed = []orders.Product{
				{ID: 1, Name: "Kopi Arabica 250g", Price: decimal.RequireFromString("10.00"), Stock: 100},
				{ID: 2, Name: "Teh Melati 100g", Price: decimal.RequireFromString("5.00"), Stock: 100},
			}
		}
		ms := memstore.New()
		for _, p := range seed {
			ms.PutProduct(p)
		}
		store = ms
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("db migrate", "err", err)
			os.Exit(1)
		}
		if err := postgres.SeedCatalog(ctx, db, seed); err != nil {
			log.Error("db seed", "err", err)
			os.Exit(1)
		}
		log.Info("catalog seeded", "products", len(seed))
		store = &postgres.Store{DB: db, LockTimeout: cfg.LockTimeout}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	reg := prometheus.NewRegistry()
	svc := orders.NewService(store,
		orders.WithPublisher(kafkax.OrderEvents{Producer: prod}),
		orders.WithLogger(log),
		orders.WithObserver(metrics.NewRecorder(reg)),
		orders.WithProducerName(cfg.ServiceName),
		orders.WithStrictTransitions(cfg.StrictTransitions),
	)

	router := httpx.NewRouter(reg)
	(&httpx.CartHandler{Cart: orders.NewCartStore(store, log)}).Register(router)
	(&httpx.OrdersHandler{Service: svc, Cache: redisx.NewStatusCache(rdb), Logger: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		// in-flight checkouts may wait up to LOCK_TIMEOUT on a row lock
		sctx, cancel := context.WithTimeout(context.Background(), cfg.LockTimeout+10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error("server", "err", err)
	}

	// handler yang masih jalan setelah ini dapat ErrProducerClosed, bukan panic
	prod.Close()
	prod.WaitClosed() // flush & close writer
}
