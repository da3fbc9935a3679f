package publisher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"quote-broadcaster/src/interfaces"
	"quote-broadcaster/src/logger"
)

// ErrQueueFull is returned when the async queue cannot take another message.
var ErrQueueFull = errors.New("publish queue full")

type message struct {
	topic string
	data  []byte
}

// -----------------------------------------------------------------------------

// AsyncPublisher decouples callers from broker latency: Publish only enqueues,
// a single goroutine forwards to the wrapped publisher in order.
type AsyncPublisher struct {
	inner   interfaces.IPublisher
	logger  *logger.Logger
	timeout time.Duration

	queue   chan message
	dropped atomic.Int64

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

// -----------------------------------------------------------------------------

func NewAsyncPublisher(inner interfaces.IPublisher, size int, logger *logger.Logger) *AsyncPublisher {
	if size <= 0 {
		size = 256
	}
	p := &AsyncPublisher{
		inner:   inner,
		logger:  logger,
		timeout: 5 * time.Second,
		queue:   make(chan message, size),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

// -----------------------------------------------------------------------------

func (p *AsyncPublisher) loop() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.inner.Publish(ctx, msg.topic, msg.data); err != nil {
			p.logger.Warning("Publish %s via %s failed: %v", msg.topic, p.inner.Name(), err)
		}
		cancel()
	}
}

// -----------------------------------------------------------------------------

func (p *AsyncPublisher) Name() string {
	return p.inner.Name()
}

// -----------------------------------------------------------------------------

// Publish never blocks. A full queue drops the message.
func (p *AsyncPublisher) Publish(_ context.Context, topic string, data []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("publisher closed")
	}

	select {
	case p.queue <- message{topic: topic, data: data}:
		return nil
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.logger.Warning("Publish queue of %s full, %d messages dropped so far", p.inner.Name(), n)
		}
		return ErrQueueFull
	}
}

// Dropped is the number of messages discarded on a full queue.
func (p *AsyncPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// -----------------------------------------------------------------------------

// Close flushes queued messages then closes the wrapped publisher.
func (p *AsyncPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		<-p.done
		err = p.inner.Close()
	})
	return err
}
