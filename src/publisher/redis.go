package publisher

import (
	"context"
	"fmt"
	"time"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes payloads on <prefix>:<topic> channels and keeps the
// last payload of each topic under latest:<prefix>:<topic>.
type RedisPublisher struct {
	client    *redis.Client
	prefix    string
	latestTTL time.Duration
	logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisPublisher(config *models.MRedisPublisherConfig, logger *logger.Logger) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisPublisher{
		client:    client,
		prefix:    config.ChannelPrefix,
		latestTTL: 24 * time.Hour,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------

// Connect verifies the server is reachable.
func (rp *RedisPublisher) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rp.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	rp.logger.Info("Connected to Redis at %s", rp.client.Options().Addr)
	return nil
}

// -----------------------------------------------------------------------------

func (rp *RedisPublisher) Name() string {
	return "redis"
}

// -----------------------------------------------------------------------------

func (rp *RedisPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	channel := rp.channel(topic)

	pipe := rp.client.Pipeline()
	pipe.Publish(ctx, channel, data)
	pipe.Set(ctx, "latest:"+channel, data, rp.latestTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (rp *RedisPublisher) Close() error {
	return rp.client.Close()
}

func (rp *RedisPublisher) channel(topic string) string {
	if rp.prefix != "" {
		return rp.prefix + ":" + topic
	}
	return topic
}
