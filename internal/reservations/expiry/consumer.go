package expiry

import (
	"context"
	"spacedesk/pkg/logger"
	"time"
)

const (
	DefaultRetryBackoff = 500 * time.Millisecond
	MaxRetryBackoff     = 30 * time.Second

	// A subscription that stayed up this long resets the backoff.
	DefaultStableSubscription = time.Minute
)

// Consumer keeps a subscription to the index open and feeds elapsed markers
// through a Dispatcher. A dropped subscription is re-established with
// exponential backoff.
type Consumer struct {
	index       Index
	dispatcher  *Dispatcher
	backoff     time.Duration
	stableAfter time.Duration
	log         *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumer(index Index, target Listener, workers, queueSize int, log *logger.Logger) *Consumer {
	log = log.With("component", "expiry")
	return &Consumer{
		index:       index,
		dispatcher:  NewDispatcher(target, workers, queueSize, log),
		backoff:     DefaultRetryBackoff,
		stableAfter: DefaultStableSubscription,
		log:         log,
	}
}

func (c *Consumer) Start() {
	c.dispatcher.Start()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	backoff := c.backoff
	for {
		started := time.Now()
		err := c.index.Listen(ctx, c.dispatcher)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) >= c.stableAfter {
			backoff = c.backoff
		}
		c.log.Error("Expiry subscription lost, retrying", "error", err, "retry_in", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, MaxRetryBackoff)
	}
}

// Stop ends the subscription, then drains queued notifications. Waiting for
// the subscription loop is bounded by ctx.
func (c *Consumer) Stop(ctx context.Context) {
	if c.cancel == nil {
		return
	}
	c.cancel()

	select {
	case <-c.done:
	case <-ctx.Done():
		c.log.Warn("Expiry subscription did not stop in time", "error", ctx.Err())
	}
	c.dispatcher.Stop()
	c.log.Info("Expiry consumer stopped")
}
