package main

import (
	"context"
	"github.com/ariefcatur/go-cart-checkout/internal/config"
	kafkax "github.com/ariefcatur/go-cart-checkout/internal/kafka"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/projector"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &projector.Service{
		Cache:       redisx.NewStatusCache(rdb),
		ServiceName: cfg.ServiceName + "-projector",
		Logger:      log,
	}

	topics := []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, topics, cfg.ProjectorWorkers, log)

	log.Info("projector consumer started",
		"group", cfg.ProjectorGroup, "topics", topics, "workers", cfg.ProjectorWorkers)
	if err := cons.Start(ctx, svc.HandleMessage); err != nil {
		log.Error("consumer exit", "err", err)
		os.Exit(1)
	}
	log.Info("projector stopped")
}
