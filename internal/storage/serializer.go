package storage

import (
	"context"
	"sync"
	"sync/atomic"
)

// Serializer runs mutations one at a time, in the order they were submitted.
//
// Each submission appends a completion channel to a chain: it waits for its
// predecessor's channel to close, runs, then closes its own. The zero value is
// ready to use.
type Serializer struct {
	mu   sync.Mutex
	tail chan struct{}

	// pending counts submitted operations that have not released their turn.
	pending atomic.Int64
}

// Do runs fn once every previously submitted operation has completed and
// returns fn's error.
//
// If ctx is done while the operation is still queued, fn is not run and
// ctx.Err() is returned; the turn is still handed to the next operation once
// the predecessor finishes. A running fn is never interrupted.
func (s *Serializer) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	s.mu.Lock()
	prev := s.tail
	s.tail = done
	s.mu.Unlock()
	s.pending.Add(1)

	release := func() {
		s.pending.Add(-1)
		close(done)
	}
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				release()
			}()
			return ctx.Err()
		}
	}
	defer release()
	return fn()
}

// Exclusive is Do for operations that produce a value.
func Exclusive[T any](ctx context.Context, s *Serializer, fn func() (T, error)) (T, error) {
	var out T
	err := s.Do(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
