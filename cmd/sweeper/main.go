package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/storefront-orders/internal/cart"
	"github.com/ariefcatur/storefront-orders/internal/config"
	"github.com/ariefcatur/storefront-orders/internal/fulfillment"
	"github.com/ariefcatur/storefront-orders/internal/gateway/pix"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/logx"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/ariefcatur/storefront-orders/internal/sweeper"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := config.Load()

	interval := flag.Duration("interval", cfg.SweepInterval, "loop with this interval; 0 runs a single sweep (for an external scheduler)")
	flag.Parse()

	log := logx.New(logx.Options{Service: cfg.ServiceName + "-sweeper", Env: cfg.AppEnv, Level: cfg.LogLevel})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		return 1
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis unreachable, continuing without fast path", "err", err)
	}

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 256, log)
	prod.Start(context.Background())
	defer func() {
		prod.Close()
		prod.WaitClosed()
	}()

	repo := &orders.Repo{DB: db}
	sw := &sweeper.Sweeper{
		Orders:  repo,
		Gateway: pix.New(cfg.PixAPIURL, cfg.PixAPIKey, cfg.GatewayTimeout),
		Fulfill: &fulfillment.Service{
			Orders:    repo,
			Settle:    &fulfillment.Store{DB: db},
			Cart:      &cart.Reconciler{Store: &cart.Repo{DB: db}, Redis: rdb, Log: log},
			Publisher: prod,
			Cache:     &redisx.StatusCache{RDB: rdb},
			Producer:  cfg.ServiceName + "-sweeper",
			Log:       log,
		},
		Concurrency: cfg.SweepConcurrency,
		BatchSize:   cfg.SweepBatchSize,
		Log:         log,
	}

	if *interval <= 0 {
		if _, err := sw.Tick(ctx); err != nil {
			log.Error("sweep failed", "err", err)
			return 1
		}
		return 0
	}

	log.Info("sweeper started", "interval", interval.String())
	_ = sw.Run(ctx, *interval)
	log.Info("sweeper stopped")
	return 0
}
