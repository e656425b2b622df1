package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not finish")
	}
}

func TestSequencerPreservesPerKeyOrder(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newSequencer()

	const n = 100
	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		s.Do(ctx, 7, func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	waitOrFail(t, &wg)

	require.Len(t, got, n)
	for i := range n {
		assert.Equal(t, i, got[i], "same-key tasks must run in submission order")
	}
}

func TestSequencerKeysRunIndependently(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newSequencer()

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	// key 1 blocks until key 2's task has run; completion proves the
	// keys do not share a worker
	s.Do(ctx, 1, func() {
		defer wg.Done()
		<-release
	})
	s.Do(ctx, 2, func() {
		defer wg.Done()
		close(release)
	})
	waitOrFail(t, &wg)
}

func TestSequencerIntentThenDestinationOrder(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newSequencer()

	var mu sync.Mutex
	var steps []string
	var wg sync.WaitGroup
	wg.Add(2)
	s.Do(ctx, 42, func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond) // a slow ledger call
		mu.Lock()
		steps = append(steps, "withdraw")
		mu.Unlock()
	})
	s.Do(ctx, 42, func() {
		defer wg.Done()
		mu.Lock()
		steps = append(steps, "destination")
		mu.Unlock()
	})
	waitOrFail(t, &wg)

	assert.Equal(t, []string{"withdraw", "destination"}, steps)
}
