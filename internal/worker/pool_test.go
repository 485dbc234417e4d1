package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := NewPool(3)
	var count atomic.Int64

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			count.Add(1)
		}))
	}
	p.Wait()

	assert.Equal(t, int64(20), count.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	var active, peak atomic.Int64

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			now := active.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
		}))
	}
	p.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestPoolSubmitCancelled(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.Submit(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	p.Wait()
}
