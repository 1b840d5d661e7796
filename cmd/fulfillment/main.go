package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/config"
	"github.com/acougue-online/storefront/internal/fulfillment"
	kafkax "github.com/acougue-online/storefront/internal/kafka"
	"github.com/acougue-online/storefront/internal/logging"
	"github.com/acougue-online/storefront/internal/orders"
	"github.com/acougue-online/storefront/internal/postgres"
	"github.com/acougue-online/storefront/internal/redisx"
	"github.com/acougue-online/storefront/internal/stream"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.ServiceName+"-fulfillment")
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

	// Producers: reserved, rejected and status-changed each get their own topic
	pOK := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockReserved, 1024, logger)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockRejected, 1024, logger)
	pRJ.Start(ctx)
	pST := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger)
	pST.Start(ctx)

	statuses := &orders.StatusService{
		Orders:  &orders.Repo{DB: db},
		Notify:  &stream.RedisNotifier{RDB: rdb, Logger: logger},
		Events:  pST,
		Service: cfg.ServiceName + "-fulfillment",
		Logger:  logger,
	}

	svc := &fulfillment.Service{
		Reservations:   &orders.ReservationRepo{DB: db},
		Statuses:       statuses,
		Redis:          rdb,
		ProducerOK:     pOK,
		ProducerReject: pRJ,
		ServiceName:    cfg.ServiceName + "-fulfillment",
		Logger:         logger,
	}

	group := getenv("FULFILLMENT_GROUP", "fulfillment-svc")
	workers := mustAtoi(os.Getenv("FULFILLMENT_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCreated, workers, logger)

	go func() {
		logger.Info("fulfillment consumer started",
			zap.String("group", group),
			zap.String("topic", orders.TopicOrderCreated),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// cancellations need their reserved stock back
	consStatus := kafkax.NewConsumer(cfg.KafkaBrokers, group+"-release", orders.TopicOrderStatusChanged, workers, logger)
	go func() {
		if err := consStatus.Start(ctx, svc.HandleStatusChanged); err != nil {
			logger.Error("release consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pOK.Close()
	pRJ.Close()
	pST.Close()
	pOK.WaitClosed()
	pRJ.WaitClosed()
	pST.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
