package expiry

import (
	"context"
	"errors"
	"spacedesk/pkg/logger"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_ProcessesAllQueued(t *testing.T) {
	var processed atomic.Int64
	target := ListenerFunc(func(ctx context.Context, id int64) error {
		processed.Add(1)
		return nil
	})

	d := NewDispatcher(target, 3, 100, logger.NewNop())
	d.Start()

	for id := int64(1); id <= 50; id++ {
		require.NoError(t, d.OnExpire(context.Background(), id))
	}
	d.Stop()

	assert.Equal(t, int64(50), processed.Load())
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	d := NewDispatcher(ListenerFunc(func(context.Context, int64) error { return nil }), 1, 1, logger.NewNop())
	d.Start()
	d.Stop()
	d.Stop()

	err := d.OnExpire(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDispatcherStopped)
}

func TestDispatcher_WorkerErrorsDoNotStopProcessing(t *testing.T) {
	var processed atomic.Int64
	target := ListenerFunc(func(ctx context.Context, id int64) error {
		processed.Add(1)
		if id%2 == 0 {
			return errors.New("store unavailable")
		}
		return nil
	})

	d := NewDispatcher(target, 2, 10, logger.NewNop())
	d.Start()
	for id := int64(1); id <= 6; id++ {
		require.NoError(t, d.OnExpire(context.Background(), id))
	}
	d.Stop()

	assert.Equal(t, int64(6), processed.Load())
}

func TestDispatcher_FullQueueHonorsContext(t *testing.T) {
	block := make(chan struct{})
	target := ListenerFunc(func(ctx context.Context, id int64) error {
		<-block
		return nil
	})

	d := NewDispatcher(target, 1, 1, logger.NewNop())
	d.Start()
	defer func() {
		close(block)
		d.Stop()
	}()

	require.NoError(t, d.OnExpire(context.Background(), 1))
	assert.Eventually(t, func() bool {
		return d.QueueLength() == 0
	}, time.Second, 5*time.Millisecond, "worker should pick up the first notification")
	require.NoError(t, d.OnExpire(context.Background(), 2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.OnExpire(ctx, 3), context.DeadlineExceeded)
}
