package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"

	"github.com/nats-io/nats.go"
)

// NATSPublisher sends payloads on NATS core subjects <prefix>.<symbol>.<duration>.
type NATSPublisher struct {
	config *models.MNATSPublisherConfig
	logger *logger.Logger

	mu        sync.RWMutex
	nc        *nats.Conn
	connected bool
}

// -----------------------------------------------------------------------------

func NewNATSPublisher(config *models.MNATSPublisherConfig, logger *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		config: config,
		logger: logger,
	}
}

// -----------------------------------------------------------------------------

// Connect dials the server. Reconnects are handled by the client library.
func (np *NATSPublisher) Connect() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc != nil && np.nc.IsConnected() {
		return nil
	}

	opts := []nats.Option{
		nats.Name(np.config.ClientID),
		nats.Timeout(5 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ClosedHandler(func(nc *nats.Conn) {
			np.logger.Error("NATS connection closed")
			np.setConnected(false)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			np.logger.Warning("NATS disconnected, attempting reconnect: %v", err)
			np.setConnected(false)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			np.logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
			np.setConnected(true)
		}),
	}

	nc, err := nats.Connect(np.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("nats connection failed: %w", err)
	}
	np.nc = nc
	np.connected = nc.IsConnected()
	np.logger.Info("Connected to NATS at %s", np.config.URL)
	return nil
}

// -----------------------------------------------------------------------------

func (np *NATSPublisher) Name() string {
	return "nats"
}

// -----------------------------------------------------------------------------

// Publish is fire-and-forget on NATS core.
func (np *NATSPublisher) Publish(_ context.Context, topic string, data []byte) error {
	np.mu.RLock()
	nc, connected := np.nc, np.connected
	np.mu.RUnlock()

	if nc == nil || !connected {
		return fmt.Errorf("nats client not connected")
	}
	return nc.Publish(np.subject(topic), data)
}

// -----------------------------------------------------------------------------

func (np *NATSPublisher) Close() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc == nil || np.nc.IsClosed() {
		return nil
	}
	if err := np.nc.Drain(); err != nil {
		np.nc.Close()
	}
	np.connected = false
	np.logger.Info("NATS connection closed successfully")
	return nil
}

// -----------------------------------------------------------------------------

// setConnected runs on NATS callback goroutines.
func (np *NATSPublisher) setConnected(status bool) {
	np.mu.Lock()
	np.connected = status
	np.mu.Unlock()
}

func (np *NATSPublisher) subject(topic string) string {
	if np.config.SubjectPrefix != "" {
		return np.config.SubjectPrefix + "." + topic
	}
	return topic
}
