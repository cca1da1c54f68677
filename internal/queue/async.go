package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ErrQueueFull is returned when the in-memory buffer cannot take another event.
var ErrQueueFull = errors.New("event buffer full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// Sink is the synchronous side of an AsyncPublisher, normally a *Publisher.
type Sink interface {
	Publish(ctx context.Context, ev ReservationEvent) error
}

// AsyncPublisher buffers events and hands them to a Sink from a single
// goroutine, so request handlers never wait on the broker.
type AsyncPublisher struct {
	sink    Sink
	logger  hclog.Logger
	timeout time.Duration
	ch      chan ReservationEvent
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncPublisher(sink Sink, buffer int, logger hclog.Logger) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AsyncPublisher{
		sink:    sink,
		logger:  logger.Named("async"),
		timeout: 5 * time.Second,
		ch:      make(chan ReservationEvent, buffer),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish enqueues the event without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, ev ReservationEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.ch <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer p.wg.Done()
	for ev := range p.ch {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.sink.Publish(ctx, ev); err != nil {
			p.logger.Warn("event lost", "event_id", ev.EventID, "type", ev.Type, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the buffer has drained.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()
	p.wg.Wait()
}
