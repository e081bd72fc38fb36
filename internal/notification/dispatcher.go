package notification

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned by Enqueue when the dispatcher is saturated.
var ErrQueueFull = errors.New("notification queue full")

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("notification dispatcher closed")

// Failure reports a message that could not be delivered.
type Failure struct {
	Message Message
	Err     error
}

// Dispatcher delivers messages on worker goroutines so callers never wait on
// the email backend.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration

	mu       sync.RWMutex
	closed   bool
	queue    chan Message
	failures chan Failure
	wg       sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of size queueSize.
func NewDispatcher(notifier Notifier, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		notifier: notifier,
		timeout:  15 * time.Second,
		queue:    make(chan Message, queueSize),
		failures: make(chan Failure, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Enqueue schedules message for delivery without blocking.
func (d *Dispatcher) Enqueue(message Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failures exposes delivery failures. Failures are dropped when nobody drains
// the channel.
func (d *Dispatcher) Failures() <-chan Failure {
	return d.failures
}

// Close stops accepting messages and waits for queued ones to be delivered or
// for ctx to expire. The failure channel is closed once workers exit.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(d.failures)
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for message := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.notifier.Send(ctx, message)
		cancel()
		if err == nil {
			continue
		}
		select {
		case d.failures <- Failure{Message: message, Err: err}:
		default:
		}
	}
}
