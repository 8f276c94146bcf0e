package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lodgfy-booking/internal/domain"

	"go.uber.org/zap"
)

// Observer receives reservation events after the producing transaction committed.
type Observer interface {
	Name() string
	OnReservationEvent(ctx context.Context, ev domain.ReservationEvent) error
}

// Publisher is what the lifecycle engine talks to. Publish never blocks.
type Publisher interface {
	Publish(ev domain.ReservationEvent)
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) Publish(domain.ReservationEvent) {}

// Dispatcher fans events out to observers from a bounded queue.
// When the queue is full the event is dropped and logged.
type Dispatcher struct {
	queue       chan domain.ReservationEvent
	observers   []Observer
	workers     int
	sinkTimeout time.Duration
	logger      *zap.Logger

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func NewDispatcher(queueSize, workers int, sinkTimeout time.Duration, logger *zap.Logger, observers ...Observer) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if sinkTimeout <= 0 {
		sinkTimeout = 5 * time.Second
	}
	return &Dispatcher{
		queue:       make(chan domain.ReservationEvent, queueSize),
		observers:   observers,
		workers:     workers,
		sinkTimeout: sinkTimeout,
		logger:      logger,
	}
}

var _ Publisher = (*Dispatcher)(nil)

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	d.logger.Info("Event dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
		zap.Int("observers", len(d.observers)),
	)
}

func (d *Dispatcher) Publish(ev domain.ReservationEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("Event dispatcher closed, dropping event",
			zap.String("event_id", ev.EventID),
			zap.String("kind", string(ev.Kind)),
		)
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		d.logger.Warn("Event queue full, dropping event",
			zap.String("event_id", ev.EventID),
			zap.String("kind", string(ev.Kind)),
			zap.String("reservation_id", ev.Reservation.ReservationID),
		)
	}
}

// Stop closes the queue and waits for queued events to drain or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info("Event dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event dispatcher drain: %w", ctx.Err())
	}
}

// Dropped events lost to a full queue.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		for _, o := range d.observers {
			d.deliver(o, ev)
		}
	}
}

func (d *Dispatcher) deliver(o Observer, ev domain.ReservationEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Observer panicked",
				zap.String("observer", o.Name()),
				zap.String("event_id", ev.EventID),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
	defer cancel()
	if err := o.OnReservationEvent(ctx, ev); err != nil {
		d.logger.Error("Observer failed",
			zap.String("observer", o.Name()),
			zap.String("event_id", ev.EventID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}
