package telegram

import (
	"context"
	"sync"
)

// sequencer runs tasks for the same key in submission order while letting
// different keys proceed concurrently. Each key gets its own worker
// goroutine feeding off a buffered queue; workers exit when ctx ends.
type sequencer struct {
	mu     sync.Mutex
	queues map[int64]chan func()
}

func newSequencer() *sequencer {
	return &sequencer{queues: make(map[int64]chan func())}
}

func (s *sequencer) Do(ctx context.Context, key int64, task func()) {
	s.mu.Lock()
	q, ok := s.queues[key]
	if !ok {
		q = make(chan func(), 64)
		s.queues[key] = q
		go drain(ctx, q)
	}
	s.mu.Unlock()

	select {
	case q <- task:
	case <-ctx.Done():
	}
}

func drain(ctx context.Context, q chan func()) {
	for {
		select {
		case task := <-q:
			task()
		case <-ctx.Done():
			return
		}
	}
}
