package ingest

import (
	"context"
	"errors"
	"sync"
)

// ErrReceiverClosed is returned by a send on an Output whose consumer end
// has been closed.
var ErrReceiverClosed = errors.New("receiver closed")

// Output is a bounded single-consumer channel between the pipeline and one
// downstream subscriber. The consumer signals that it is gone by calling
// Close; a later send fails instead of blocking forever. A full buffer
// applies backpressure to the sender.
type Output[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once
}

// NewOutput creates an Output with the given buffer capacity.
func NewOutput[T any](capacity int) *Output[T] {
	return &Output[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
}

// Recv returns the channel the consumer reads from.
func (o *Output[T]) Recv() <-chan T {
	return o.ch
}

// Close marks the consumer end as gone. Safe to call more than once.
// Values already buffered remain readable from Recv.
func (o *Output[T]) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
	})
}

// Send delivers v to the consumer, blocking while the buffer is full.
// It fails with ErrReceiverClosed once the consumer end is closed, or with
// the context's error on cancellation.
func (o *Output[T]) Send(ctx context.Context, v T) error {
	// Checked up front so a consumer closed before the send is reported
	// deterministically even when buffer space is available.
	select {
	case <-o.done:
		return ErrReceiverClosed
	default:
	}

	select {
	case o.ch <- v:
		return nil
	case <-o.done:
		return ErrReceiverClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
