package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrPublisherClosed = errors.New("event publisher closed")
	ErrBufferFull      = errors.New("event buffer full")
)

const (
	DefaultAsyncBuffer  = 256
	DefaultAsyncTimeout = 10 * time.Second
)

type AsyncOptions struct {
	Buffer  int
	Timeout time.Duration
	Logger  *slog.Logger
}

// AsyncPublisher hands events to a background worker so callers never wait
// on the broker. Events that cannot be delivered are logged and dropped.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

func NewAsyncPublisher(next Publisher, opts AsyncOptions) *AsyncPublisher {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultAsyncBuffer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAsyncTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &AsyncPublisher{
		next:    next,
		timeout: opts.Timeout,
		log:     opts.Logger,
		queue:   make(chan Event, opts.Buffer),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish enqueues event without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *AsyncPublisher) run() {
	defer p.wg.Done()
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.Publish(ctx, event); err != nil {
			p.log.Warn("dropping checkout event", "type", event.Type, "key", event.Key(), "error", err)
		}
		cancel()
	}
}

// Close delivers what is already queued, then closes the underlying publisher.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.next.Close()
}
