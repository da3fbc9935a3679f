package main

import (
	"context"
	"time"

	"quote-broadcaster/src/config"
	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/publisher"
	"quote-broadcaster/src/storage"
)

// -----------------------------------------------------------------------------

// setupDatabase opens the catalog store and seeds the configured instruments.
func setupDatabase(conf *config.Config, appLogger *logger.Logger) (interfaces.IInstrumentStore, error) {
	var db interfaces.IInstrumentStore
	var err error

	switch conf.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(conf.MConfig, appLogger.Named("PostgresDB"))
	default:
		db, err = storage.NewSQLiteDB(conf.MConfig, appLogger.Named("SQLiteDB"))
	}
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		return nil, err
	}
	if err := db.SeedInstruments(conf.Catalog); err != nil {
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupPublisher connects the enabled brokers. Brokers that fail to connect
// are logged and skipped; the scheduler never waits on them.
func setupPublisher(cfg models.MPublisherConfig, appLogger *logger.Logger) *publisher.AsyncPublisher {
	var brokers []interfaces.IPublisher

	if cfg.NATS.Enabled {
		np := publisher.NewNATSPublisher(&cfg.NATS, appLogger.Named("NATSPublisher"))
		if err := np.Connect(); err != nil {
			appLogger.Error("NATS publisher disabled: %v", err)
		} else {
			brokers = append(brokers, np)
		}
	}

	if cfg.Redis.Enabled {
		rp := publisher.NewRedisPublisher(&cfg.Redis, appLogger.Named("RedisPublisher"))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rp.Connect(ctx)
		cancel()
		if err != nil {
			appLogger.Error("Redis publisher disabled: %v", err)
			rp.Close()
		} else {
			brokers = append(brokers, rp)
		}
	}

	if len(brokers) == 0 {
		return nil
	}

	multi := publisher.NewMultiPublisher(brokers...)
	appLogger.Info("Publishing fresh quotes to %s", multi.Name())
	return publisher.NewAsyncPublisher(multi, cfg.QueueSize, appLogger.Named("Publisher"))
}
