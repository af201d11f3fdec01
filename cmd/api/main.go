package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/storefront-orders/internal/billing"
	"github.com/ariefcatur/storefront-orders/internal/cart"
	"github.com/ariefcatur/storefront-orders/internal/checkout"
	"github.com/ariefcatur/storefront-orders/internal/config"
	"github.com/ariefcatur/storefront-orders/internal/fulfillment"
	"github.com/ariefcatur/storefront-orders/internal/gateway/card"
	"github.com/ariefcatur/storefront-orders/internal/gateway/pix"
	"github.com/ariefcatur/storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/logx"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/ariefcatur/storefront-orders/internal/storefront"
	"github.com/ariefcatur/storefront-orders/internal/webhook"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(logx.Options{Service: cfg.ServiceName, Env: cfg.AppEnv, Level: cfg.LogLevel})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		return 1
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Warn("redis unreachable, continuing without fast path", "err", err)
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderLifecycle, 1024, log)
	prod.Start(ctx)

	// Repo & services
	repo := &orders.Repo{DB: db}
	store := &storefront.Store{DB: db}
	cache := &redisx.StatusCache{RDB: rdb}
	reconciler := &cart.Reconciler{Store: &cart.Repo{DB: db}, Redis: rdb, Log: log}

	fulfill := &fulfillment.Service{
		Orders:    repo,
		Settle:    &fulfillment.Store{DB: db},
		Cart:      reconciler,
		Publisher: prod,
		Cache:     cache,
		Producer:  cfg.ServiceName,
		Log:       log,
	}

	pixClient := pix.New(cfg.PixAPIURL, cfg.PixAPIKey, cfg.GatewayTimeout)
	cardClient := card.New(cfg.CardAPIURL, cfg.CardAPIKey, cfg.GatewayTimeout)
	orchestrator := &checkout.Orchestrator{
		Addresses: store,
		Rates:     store,
		Profiles:  store,
		Catalog:   store,
		Cart:      reconciler,
		Adapters: map[orders.PaymentMethod]billing.Adapter{
			orders.PaymentPix: &billing.PixAdapter{
				Orders:        repo,
				Catalog:       store,
				Gateway:       pixClient,
				ReturnURL:     cfg.PublicBaseURL + "/cart",
				CompletionURL: cfg.PublicBaseURL + "/orders",
				Log:           log,
			},
			orders.PaymentCard: &billing.CardAdapter{
				Catalog:    store,
				Gateway:    cardClient,
				SuccessURL: cfg.PublicBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
				CancelURL:  cfg.PublicBaseURL + "/cart",
				Currency:   "brl",
				Log:        log,
			},
		},
		Log: log,
	}

	router := httpx.NewRouter(log)
	(&httpx.CheckoutHandler{Checkout: orchestrator, Cart: reconciler, Log: log}).Register(router)
	(&httpx.OrdersHandler{
		Orders:     repo,
		Cache:      cache,
		Operator:   fulfill,
		AdminToken: cfg.AdminToken,
		Log:        log,
	}).Register(router)

	seen := redisx.NewWebhookSeen(rdb)
	httpx.MountWebhooks(router,
		&webhook.PixHandler{Secret: cfg.PixWebhookSecret, Fulfill: fulfill, Seen: seen, Log: log},
		&webhook.CardHandler{Secret: cfg.CardWebhookSecret, Fulfill: fulfill, Seen: seen, Log: log},
	)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	listenErr := make(chan error, 1)
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	code := 0
	select {
	case <-sig:
		log.Info("shutting down...")
	case err := <-listenErr:
		log.Error("listen", "err", err)
		code = 1
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
	return code
}
