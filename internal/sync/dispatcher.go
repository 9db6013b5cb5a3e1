package sync

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"omnichan/backend/internal/facebook"
	"omnichan/backend/pkg/logger"
)

var (
	dispatchedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_dispatched_total",
		Help: "Webhook events accepted onto the dispatch queue",
	}, []string{"kind"})
	droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_dropped_total",
		Help: "Webhook events dropped because the dispatch queue was full",
	})
	failedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_failed_total",
		Help: "Webhook events whose processing returned an error",
	})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webhook_dispatch_queue_depth",
		Help: "Events waiting on the dispatch queue",
	})
)

// Dispatcher decouples webhook acknowledgment from event processing: the
// HTTP handler enqueues and returns, a fixed worker pool drains the queue.
// The queue is bounded; under sustained overload new events are dropped and
// counted rather than holding the platform's request open. Processing errors
// are logged here and never reach the already-acknowledged HTTP response.
type Dispatcher struct {
	engine  *Engine
	queue   chan facebook.Event
	workers int
	timeout time.Duration
	wg      sync.WaitGroup
	log     *logger.Logger

	closeOnce sync.Once
}

// DispatcherConfig sizes the queue and worker pool
type DispatcherConfig struct {
	QueueSize int
	Workers   int
	// Timeout bounds the processing of one event
	Timeout time.Duration
}

func NewDispatcher(engine *Engine, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Dispatcher{
		engine:  engine,
		queue:   make(chan facebook.Event, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		log:     log,
	}
}

// Start launches the worker pool
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Info("Event dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// Enqueue hands an event to the worker pool without blocking. Returns false
// when the queue is full; the event is dropped and the platform will not be
// asked to retry it.
func (d *Dispatcher) Enqueue(ev facebook.Event) bool {
	select {
	case d.queue <- ev:
		dispatchedEvents.WithLabelValues(kindLabel(ev.Kind)).Inc()
		queueDepth.Set(float64(len(d.queue)))
		return true
	default:
		droppedEvents.Inc()
		d.log.Warn("Dispatch queue full, dropping event",
			"kind", kindLabel(ev.Kind),
			"page_id", ev.PageID)
		return false
	}
}

// Close stops accepting events and waits for in-flight processing to finish
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// Pending reports the current queue depth, used by the health checker
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.queue {
		queueDepth.Set(float64(len(d.queue)))
		d.process(id, ev)
	}
}

func (d *Dispatcher) process(workerID int, ev facebook.Event) {
	defer func() {
		if r := recover(); r != nil {
			failedEvents.Inc()
			d.log.Error("Panic while processing event",
				"worker", workerID,
				"kind", kindLabel(ev.Kind),
				"page_id", ev.PageID,
				"panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.engine.ProcessEvent(ctx, ev); err != nil {
		failedEvents.Inc()
		d.log.Error("Event processing failed",
			"worker", workerID,
			"kind", kindLabel(ev.Kind),
			"page_id", ev.PageID,
			"sender_id", ev.SenderID,
			"error", err)
	}
}

func kindLabel(k facebook.EventKind) string {
	switch k {
	case facebook.EventIncomingMessage:
		return "message"
	case facebook.EventReadReceipt:
		return "read"
	case facebook.EventDeliveryReceipt:
		return "delivery"
	default:
		return "unknown"
	}
}
