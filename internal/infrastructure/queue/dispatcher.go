package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bankingapp/user-service/internal/core/ports"
)

const (
	defaultWorkers        = 4
	channelBuffer         = 256
	defaultPublishTimeout = 5 * time.Second
)

// Sink delivers one event to its destination.
type Sink interface {
	Publish(ctx context.Context, event ports.UserRegisteredEvent) error
}

// Dispatcher implements ports.EventPublisher. Events are routed to a fixed
// set of workers by hashing the email, so events for one account are
// delivered in order. Enqueueing never blocks the caller: when a shard is
// full the event is dropped and logged.
type Dispatcher struct {
	workers []chan ports.UserRegisteredEvent
	sink    Sink
	log     zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink Sink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.UserRegisteredEvent, numWorkers),
		sink:    sink,
		log:     log.With().Str("component", "event_dispatcher").Logger(),
		timeout: defaultPublishTimeout,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.UserRegisteredEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit when ctx is cancelled
// or after Stop has drained their queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// PublishUserRegistered enqueues event on the worker owning its email.
func (d *Dispatcher) PublishUserRegistered(_ context.Context, event ports.UserRegisteredEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().Int64("user_id", event.UserID).Msg("dispatcher stopped, event dropped")
		return
	}

	select {
	case d.workers[d.shardIndex(event.Email)] <- event:
	default:
		d.log.Warn().Int64("user_id", event.UserID).Msg("event queue full, event dropped")
	}
}

// Stop refuses new events, lets workers drain what is queued and waits for
// them to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps an email deterministically to a worker index.
func (d *Dispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.UserRegisteredEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, event ports.UserRegisteredEvent) {
	pubCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sink.Publish(pubCtx, event); err != nil {
		d.log.Error().Err(err).
			Int64("user_id", event.UserID).
			Int("worker_id", id).
			Msg("event publish failed")
	}
}
