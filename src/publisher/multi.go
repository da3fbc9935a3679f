package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quote-broadcaster/src/interfaces"
)

// MultiPublisher fans one message out to several brokers.
type MultiPublisher struct {
	publishers []interfaces.IPublisher
}

func NewMultiPublisher(publishers ...interfaces.IPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// -----------------------------------------------------------------------------

func (m *MultiPublisher) Name() string {
	names := make([]string, len(m.publishers))
	for i, p := range m.publishers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// Len is the number of wrapped publishers.
func (m *MultiPublisher) Len() int {
	return len(m.publishers)
}

// -----------------------------------------------------------------------------

// Publish tries every broker; a failing one does not skip the rest.
func (m *MultiPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, topic, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// -----------------------------------------------------------------------------

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
