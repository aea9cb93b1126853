package main

import (
	"log"

	"ticketing/internal/api"
	"ticketing/internal/app"
	"ticketing/internal/auth"
	"ticketing/internal/broker"
	"ticketing/internal/models"
	"ticketing/internal/service"
	"ticketing/internal/store"
	"ticketing/internal/util"
	"ticketing/internal/worker"
)

func main() {
	cfg, shutdown := app.Init("tickets")
	defer shutdown()

	logger := util.GetLogger()
	logger.Info("Starting tickets service")

	db, dbReady, closeDB, err := app.OpenStore(cfg, store.TicketsSchema)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeDB()

	producer := broker.NewProducer(broker.NewWriter(cfg.Kafka.Brokers))
	defer producer.Close()
	logger.Info("Kafka producer initialized")

	ticketCreated := broker.NewPublisher[models.TicketCreatedEvent](producer)
	ticketUpdated := broker.NewPublisher[models.TicketUpdatedEvent](producer)

	ticketService := service.NewTicketService(db, ticketCreated, ticketUpdated)

	ticketsWorker := worker.NewTicketsWorker(
		broker.KafkaReaders(cfg.Kafka.Brokers),
		db,
		ticketUpdated,
		broker.WithAckWait(cfg.Kafka.AckWait),
	)

	handler := api.NewHandler(auth.NewIssuer(cfg.Auth.JWTKey, cfg.Auth.TokenTTL), map[string]api.Checker{
		"database": dbReady,
	})
	router, group := app.NewRouter(cfg, handler)
	api.NewTicketsHandler(ticketService).Register(group)

	app.Serve(cfg, router, []app.Background{ticketsWorker}, func() {
		if err := ticketsWorker.Stop(); err != nil {
			logger.Sugar().Warnf("Error stopping tickets worker: %v", err)
		}
	})
}
