package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events []ReservationEvent
	block  chan struct{}
	err    error
}

func (s *memorySink) Publish(_ context.Context, ev ReservationEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func TestAsyncPublisherDeliversInOrderAndDrainsOnClose(t *testing.T) {
	sink := &memorySink{}
	p := NewAsyncPublisher(sink, 8, hclog.NewNullLogger())
	for i := 1; i <= 5; i++ {
		require.NoError(t, p.Publish(context.Background(), NewReservationEvent(ReservationConfirmed, uint64(i), 1, nil)))
	}
	p.Close()

	require.Len(t, sink.events, 5)
	for i, ev := range sink.events {
		assert.Equal(t, uint64(i+1), ev.ReservationID)
	}
	assert.ErrorIs(t, p.Publish(context.Background(), ReservationEvent{}), ErrClosed)
	p.Close()
}

func TestAsyncPublisherReportsFullBuffer(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	p := NewAsyncPublisher(sink, 1, hclog.NewNullLogger())

	// The worker takes the first event and blocks on it; the second fills
	// the buffer, so at most two are accepted.
	var full error
	for i := 0; i < 3 && full == nil; i++ {
		full = p.Publish(context.Background(), ReservationEvent{})
	}
	assert.ErrorIs(t, full, ErrQueueFull)

	close(sink.block)
	p.Close()
}

func TestAsyncPublisherSurvivesSinkErrors(t *testing.T) {
	sink := &memorySink{err: errors.New("broker down")}
	p := NewAsyncPublisher(sink, 4, hclog.NewNullLogger())
	require.NoError(t, p.Publish(context.Background(), ReservationEvent{}))
	require.NoError(t, p.Publish(context.Background(), ReservationEvent{}))
	p.Close()
	assert.Len(t, sink.events, 2)
}
