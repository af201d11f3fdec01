package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/storefront-orders/internal/config"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/logx"
	"github.com/ariefcatur/storefront-orders/internal/notify"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logx.New(logx.Options{Service: cfg.ServiceName + "-notifier", Env: cfg.AppEnv, Level: cfg.LogLevel})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis unreachable, continuing without fast path", "err", err)
	}

	var sender notify.Sender = notify.LogSender{Log: log}
	if cfg.NotifyWebhookURL != "" {
		sender = notify.NewHTTPSender(cfg.NotifyWebhookURL, cfg.GatewayTimeout)
	}

	// Service
	svc := &notify.Service{
		Sender:      sender,
		Dedup:       redisx.NewConsumerDedup(rdb),
		ServiceName: cfg.NotifyGroup,
		Log:         log,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroup, orders.TopicOrderLifecycle, cfg.NotifyWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("notifier consumer started", "group", cfg.NotifyGroup, "topic", orders.TopicOrderLifecycle, "workers", cfg.NotifyWorkers)
		if err := cons.Start(ctx, svc.HandleLifecycle); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done
}
