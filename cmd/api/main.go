package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/cart"
	"github.com/acougue-online/storefront/internal/catalog"
	"github.com/acougue-online/storefront/internal/cep"
	"github.com/acougue-online/storefront/internal/config"
	"github.com/acougue-online/storefront/internal/httpx"
	kafkax "github.com/acougue-online/storefront/internal/kafka"
	"github.com/acougue-online/storefront/internal/logging"
	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/postgres"
	"github.com/acougue-online/storefront/internal/redisx"
	"github.com/acougue-online/storefront/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()

	// Kafka producers
	prodCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
	prodCreated.Start(ctx)
	prodStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger)
	prodStatus.Start(ctx)

	// status channel plumbing: local hub fed by the shared Redis channel
	hub := stream.NewHub()
	notifier := &stream.RedisNotifier{RDB: rdb, Logger: logger}
	go func() {
		if err := stream.RunRedisBridge(ctx, rdb, hub, logger); err != nil {
			logger.Error("redis bridge exit", zap.Error(err))
		}
	}()

	// stores & services
	catalogRepo := &catalog.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}

	cartSvc := &cart.Service{Store: cartRepo, Catalog: catalogRepo, Logger: logger}
	checkout := &orders.Checkout{
		Tx:      &postgres.TxManager{Pool: db},
		Catalog: catalogRepo,
		Carts:   cartRepo,
		Orders:  orderRepo,
		Notify:  notifier,
		Events:  prodCreated,
		Service: cfg.ServiceName,
		Logger:  logger,
	}
	statuses := &orders.StatusService{
		Orders:  orderRepo,
		Notify:  notifier,
		Events:  prodStatus,
		Service: cfg.ServiceName,
		Logger:  logger,
	}
	sessions := &auth.SessionStore{RDB: rdb, TTL: cfg.SessionTTL}
	cepClient := cep.NewClient(cfg.CEPBaseURL, rdb, logger)

	// routing: the SSE stream has no request timeout, everything else does
	router := httpx.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(15 * time.Second))
		r.Use(httpx.Sessions(sessions))
		(&httpx.CatalogHandler{Catalog: catalogRepo, Logger: logger}).Register(r)
		(&httpx.CartHandler{Carts: cartSvc, Logger: logger}).Register(r)
		(&httpx.OrdersHandler{Checkout: checkout, Store: orderRepo, Redis: rdb, Logger: logger}).Register(r)
		(&httpx.AdminHandler{Statuses: statuses, Redis: rdb, Logger: logger}).Register(r)
		(&httpx.AddressHandler{CEP: cepClient, Logger: logger}).Register(r)
	})
	(&httpx.StreamHandler{Hub: hub, Orders: orderRepo, Logger: logger}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prodCreated.Close() // close inbox -> flush & close writer
	prodStatus.Close()
	cancel() // stop producer loops and the redis bridge
	prodCreated.WaitClosed()
	prodStatus.WaitClosed()
}
