package main

import (
	"courtbook/internal/bookings/events"
	bookingshandler "courtbook/internal/bookings/handler"
	bookingsrepository "courtbook/internal/bookings/repository"
	bookingsservice "courtbook/internal/bookings/service"
	bookingsvalidator "courtbook/internal/bookings/validator"
	facilitiesrepository "courtbook/internal/facilities/repository"
	facilitiesservice "courtbook/internal/facilities/service"
	facilitiesvalidator "courtbook/internal/facilities/validator"
	"courtbook/pkg/app"
	"courtbook/pkg/config"
	"courtbook/pkg/kafka"
	kafka_config "courtbook/pkg/kafka/config"
	kafka_middleware "courtbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	publisher, producer := initPublisher(cfg)
	if producer != nil {
		defer producer.Close()
	}

	bookingService := initServices(cfg, publisher)
	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, bookingshandler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) bookingsservice.BookingService {
	facilityRepo := facilitiesrepository.NewMongoFacilityRepository(cfg)
	facilityService := facilitiesservice.NewFacilityService(
		facilityRepo,
		facilitiesvalidator.NewFacilityValidator(cfg.Log),
		cfg,
	)

	bookingService := bookingsservice.NewBookingService(
		bookingsrepository.NewMongoBookingRepository(cfg),
		bookingsrepository.NewSlotLockRepository(cfg),
		bookingsvalidator.NewBookingValidator(cfg.Log),
		facilityService,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	if !cfg.BookingEventsEnabled {
		cfg.Log.Info("Booking event publishing disabled")
		return events.NoopPublisher{}, nil
	}

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.MetricsProducerMiddleware(kafka_middleware.NewMetrics()))
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Booking event publishing enabled", "topic", cfg.BookingEventsTopic)
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log), producer
}
