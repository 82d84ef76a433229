package main

import (
	"fmt"

	"spacedesk/internal/reservations/events"
	"spacedesk/internal/reservations/expiry"
	"spacedesk/internal/reservations/repository"
	"spacedesk/internal/reservations/service"
	"spacedesk/internal/reservations/validator"
	"spacedesk/pkg/config"
	"spacedesk/pkg/kafka"
	kafka_config "spacedesk/pkg/kafka/config"
	kafka_middleware "spacedesk/pkg/kafka/middleware"
)

type components struct {
	repo      repository.ReservationRepository
	index     expiry.Index
	publisher events.Publisher
	service   service.ReservationService
}

func buildComponents(cfg *config.Config) (*components, error) {
	publisher, err := newPublisher(cfg)
	if err != nil {
		return nil, err
	}

	repo := newRepository(cfg)
	index := newIndex(cfg)
	reservationService := service.NewReservationService(
		repo,
		index,
		validator.NewReservationValidator(cfg.MaxReservationTTL, cfg.Log),
		publisher,
		cfg,
	)

	cfg.Log.Info("Reservation service initialized",
		"store_driver", cfg.StoreDriver,
		"expiry_driver", cfg.ExpiryDriver,
		"events_enabled", cfg.EventsEnabled,
	)
	return &components{
		repo:      repo,
		index:     index,
		publisher: publisher,
		service:   reservationService,
	}, nil
}

func newRepository(cfg *config.Config) repository.ReservationRepository {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return repository.NewPostgresReservationRepository(cfg)
	case config.StoreMemory:
		cfg.Log.Warn("Using in-memory reservation store, data is lost on restart")
		return repository.NewMemoryReservationRepository()
	default:
		return repository.NewMongoReservationRepository(cfg)
	}
}

func newIndex(cfg *config.Config) expiry.Index {
	if cfg.ExpiryDriver == config.ExpiryMemory {
		return expiry.NewMemoryIndex(cfg.Log)
	}
	return expiry.NewRedisIndex(cfg.Client.Redis, cfg.RedisDB, cfg.RedisConfigureNotifications, cfg.Log)
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if !cfg.EventsEnabled {
		return events.NewNopPublisher(), nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid kafka configuration: %w", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	return events.NewKafkaPublisher(producer, ServiceName), nil
}
