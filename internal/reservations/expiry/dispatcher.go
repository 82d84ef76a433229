package expiry

import (
	"context"
	"errors"
	"spacedesk/pkg/logger"
	"sync"
)

var ErrDispatcherStopped = errors.New("expiry dispatcher stopped")

type notification struct {
	ctx context.Context
	id  int64
}

// Dispatcher hands expiry notifications to a fixed pool of workers so slow
// store writes never stall the subscription loop. It is itself a Listener.
type Dispatcher struct {
	target  Listener
	workers int
	jobs    chan notification
	log     *logger.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(target Listener, workers, queueSize int, log *logger.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		target:  target,
		workers: workers,
		jobs:    make(chan notification, queueSize),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) Start() {
	d.log.Info("Starting expiry dispatcher", "workers", d.workers, "queue_size", cap(d.jobs))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// OnExpire queues the notification. It blocks while the queue is full, until
// ctx is cancelled or the dispatcher stops.
func (d *Dispatcher) OnExpire(ctx context.Context, id int64) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherStopped
	}

	select {
	case d.jobs <- notification{ctx: context.WithoutCancel(ctx), id: id}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.ctx.Done():
		return ErrDispatcherStopped
	}
}

// Stop rejects new notifications and waits for queued ones to be processed.
func (d *Dispatcher) Stop() {
	d.cancel()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("Expiry dispatcher stopped")
}

func (d *Dispatcher) QueueLength() int {
	return len(d.jobs)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for n := range d.jobs {
		if err := d.target.OnExpire(n.ctx, n.id); err != nil {
			d.log.Error("Failed to process expiry notification",
				"worker_id", id,
				"reservation_id", n.id,
				"error", err,
			)
		}
	}
}
