package quotes

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"quote-broadcaster/src/logger"
	"quote-broadcaster/src/models"
)

var errClosed = errors.New("connection closed")

func quietLogger() *logger.Logger {
	return logger.NewLoggerWithWriter(io.Discard, "QuotesTest")
}

// -----------------------------------------------------------------------------

type historyCall struct {
	Symbol, Period, Interval string
}

// fakeProvider returns canned bars and records calls. A non-nil gate blocks
// History until a value is received or ctx is done.
type fakeProvider struct {
	mu    sync.Mutex
	bars  []models.MBar
	err   error
	panic bool
	gate  chan struct{}
	calls []historyCall
	count atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) History(ctx context.Context, symbol, period, interval string) ([]models.MBar, error) {
	p.count.Add(1)
	p.mu.Lock()
	p.calls = append(p.calls, historyCall{symbol, period, interval})
	bars, err, boom, gate := p.bars, p.err, p.panic, p.gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if boom {
		panic("provider exploded")
	}
	return bars, err
}

func (p *fakeProvider) setBars(bars []models.MBar) {
	p.mu.Lock()
	p.bars = bars
	p.mu.Unlock()
}

func (p *fakeProvider) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakeProvider) callsFor(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Symbol == symbol {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------

// fakeSubscriber collects pushed payloads.
type fakeSubscriber struct {
	id     string
	mu     sync.Mutex
	got    [][]byte
	fail   bool
	boom   bool
	pushed chan []byte
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id, pushed: make(chan []byte, 64)}
}

func (s *fakeSubscriber) ID() string { return s.id }

func (s *fakeSubscriber) Push(data []byte) error {
	s.mu.Lock()
	fail, boom := s.fail, s.boom
	s.mu.Unlock()
	if boom {
		panic("subscriber exploded")
	}
	if fail {
		return errClosed
	}
	s.mu.Lock()
	s.got = append(s.got, data)
	s.mu.Unlock()
	s.pushed <- data
	return nil
}

func (s *fakeSubscriber) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.got))
	copy(out, s.got)
	return out
}

func (s *fakeSubscriber) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func (s *fakeSubscriber) setBoom(v bool) {
	s.mu.Lock()
	s.boom = v
	s.mu.Unlock()
}

// waitPush returns the next pushed payload or nil after timeout.
func (s *fakeSubscriber) waitPush(timeout time.Duration) []byte {
	select {
	case data := <-s.pushed:
		return data
	case <-time.After(timeout):
		return nil
	}
}

// -----------------------------------------------------------------------------

func sampleBars(start time.Time) []models.MBar {
	return []models.MBar{
		{Time: start, Open: 99, High: 101, Low: 98, Close: 100, Volume: 10},
		{Time: start.Add(24 * time.Hour), Open: 100, High: 106, Low: 97, Close: 105, Volume: 20},
	}
}
