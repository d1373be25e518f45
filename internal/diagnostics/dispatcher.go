package diagnostics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/debtbook/internal/metrics"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// Dispatcher hands records to a Sink on a background worker.
// Log never blocks: when the queue is full the record is dropped.
type Dispatcher struct {
	sink         Sink
	enabled      bool
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Record

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize sets the number of records buffered before Log starts dropping.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Record, n)
		}
	}
}

// WithWriteTimeout bounds each Sink.Write call.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.writeTimeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher for sink. Call Start to begin delivery.
func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:         sink,
		enabled:      true,
		writeTimeout: defaultWriteTimeout,
		queue:        make(chan Record, defaultQueueSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDisabled returns a dispatcher that discards every record.
func NewDisabled() *Dispatcher {
	d := NewDispatcher(nopSink{}, WithQueueSize(1))
	d.enabled = false
	return d
}

// Enabled reports whether records are persisted.
func (d *Dispatcher) Enabled() bool {
	return d.enabled
}

// Start launches the worker. Calling Start more than once is a no-op.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

// Log enqueues r without blocking. ID and Timestamp are filled in when empty.
func (d *Dispatcher) Log(r Record) {
	if !d.enabled {
		return
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.DiagnosticsRecords.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case d.queue <- r:
	default:
		metrics.DiagnosticsRecords.WithLabelValues("dropped").Inc()
		slog.Warn("Diagnostics queue full, dropping record",
			"category", r.Category,
			"request_id", r.RequestID,
		)
	}
}

// Close stops accepting records, drains the queue, and closes the sink.
// It is safe to call more than once.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		d.Start()
		<-d.done

		if c, ok := d.sink.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for r := range d.queue {
		d.write(r)
	}
}

func (d *Dispatcher) write(r Record) {
	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			metrics.DiagnosticsRecords.WithLabelValues("failed").Inc()
			slog.Warn("Diagnostics sink panicked", "panic", fmt.Sprint(p), "category", r.Category)
		}
	}()

	if err := d.sink.Write(ctx, r); err != nil {
		metrics.DiagnosticsRecords.WithLabelValues("failed").Inc()
		slog.Warn("Failed to write diagnostic record",
			"category", r.Category,
			"request_id", r.RequestID,
			"error", err,
		)
		return
	}
	metrics.DiagnosticsRecords.WithLabelValues("written").Inc()
}
