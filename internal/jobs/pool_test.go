package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_RunsSubmittedWork(t *testing.T) {
	p := NewPool(2, 4)
	p.Start()
	defer p.Stop()

	var ran atomic.Bool
	err := p.Do(context.Background(), func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, ran.Load())
}

func TestPool_PropagatesTaskError(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	defer p.Stop()

	boom := errors.New("boom")
	err := p.Do(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestPool_ConcurrentSubmissions(t *testing.T) {
	p := NewPool(4, 8)
	p.Start()
	defer p.Stop()

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func(ctx context.Context) error {
				count.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(32), count.Load())
}

func TestPool_CancelledBeforeSubmission(t *testing.T) {
	p := NewPool(1, 0)
	p.Start()
	defer p.Stop()

	// Occupy the only worker so the next submission has to wait.
	release := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestPool_StopUnblocksQueuedWork(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()

	// Occupy the only worker so the next task sits in the queue.
	release := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	queued := make(chan error, 1)
	go func() {
		queued <- p.Do(context.Background(), func(ctx context.Context) error { return nil })
	}()
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case err := <-queued:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("queued Do did not return after Stop")
	}

	close(release)
	<-stopped
}

func TestPool_DoAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	p.Stop()

	err := p.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}
