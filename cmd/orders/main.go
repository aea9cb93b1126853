package main

import (
	"log"

	"ticketing/internal/api"
	"ticketing/internal/app"
	"ticketing/internal/auth"
	"ticketing/internal/broker"
	"ticketing/internal/models"
	"ticketing/internal/redisclient"
	"ticketing/internal/service"
	"ticketing/internal/store"
	"ticketing/internal/util"
	"ticketing/internal/worker"
)

func main() {
	cfg, shutdown := app.Init("orders")
	defer shutdown()

	logger := util.GetLogger()
	logger.Info("Starting orders service")

	db, dbReady, closeDB, err := app.OpenStore(cfg, store.OrdersSchema)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeDB()

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(broker.NewWriter(cfg.Kafka.Brokers))
	defer producer.Close()
	logger.Info("Kafka producer initialized")

	orderService := service.NewOrderService(
		db,
		db,
		redisClient,
		broker.NewPublisher[models.OrderCreatedEvent](producer),
		broker.NewPublisher[models.OrderCancelledEvent](producer),
		cfg.Business.OrderExpiration,
	)

	ordersWorker := worker.NewOrdersWorker(
		broker.KafkaReaders(cfg.Kafka.Brokers),
		db,
		broker.WithAckWait(cfg.Kafka.AckWait),
	)
	expirationWorker := worker.NewExpirationWorker(redisClient, orderService, cfg.Business.ExpirationInterval)

	handler := api.NewHandler(auth.NewIssuer(cfg.Auth.JWTKey, cfg.Auth.TokenTTL), map[string]api.Checker{
		"database": dbReady,
		"redis":    redisClient.Ping,
	})
	router, group := app.NewRouter(cfg, handler)
	api.NewOrdersHandler(orderService).Register(group)

	app.Serve(cfg, router, []app.Background{ordersWorker, expirationWorker}, func() {
		if err := ordersWorker.Stop(); err != nil {
			logger.Sugar().Warnf("Error stopping orders worker: %v", err)
		}
	})
}
