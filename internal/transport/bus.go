package transport

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 64

type envelope struct {
	req      Request
	deferred *Deferred
}

// Bus delivers requests to a Router one at a time, in arrival order. A
// handler runs to completion before the next request starts, so a clear
// sent after a highlight is always applied after it.
type Bus struct {
	router *Router
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan envelope
	stop   chan struct{}
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger attaches a logger.
func WithBusLogger(l *zap.Logger) BusOption {
	return func(b *Bus) { b.log = l }
}

// WithQueueSize sets how many requests may wait before senders block.
func WithQueueSize(n int) BusOption {
	return func(b *Bus) { b.queue = make(chan envelope, n) }
}

// NewBus starts serving router. Handlers run with a context derived from
// ctx that is canceled by Close.
func NewBus(ctx context.Context, router *Router, opts ...BusOption) *Bus {
	b := &Bus{
		router: router,
		log:    zap.NewNop(),
		queue:  make(chan envelope, defaultQueueSize),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.loop()
	return b
}

func (b *Bus) loop() {
	defer b.wg.Done()
	for {
		// stop wins over queued work
		select {
		case <-b.stop:
			b.drain()
			return
		default:
		}

		select {
		case <-b.stop:
			b.drain()
			return
		case env := <-b.queue:
			resp := b.router.Dispatch(b.ctx, env.req)
			env.deferred.Resolve(resp)
		}
	}
}

// drain rejects whatever was queued when the bus stopped.
func (b *Bus) drain() {
	for {
		select {
		case env := <-b.queue:
			env.deferred.Reject(ErrUnavailable)
		default:
			return
		}
	}
}

// Send queues req and returns its pending response.
func (b *Bus) Send(ctx context.Context, req Request) (*Deferred, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrUnavailable
	}

	d := NewDeferred(req.ID)
	select {
	case b.queue <- envelope{req: req, deferred: d}:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Call sends a request and waits for its response, decoding the payload
// into out when out is non-nil. A handler failure is a *RemoteError.
func (b *Bus) Call(ctx context.Context, kind Kind, payload, out any) error {
	req, err := NewRequest(kind, payload)
	if err != nil {
		return err
	}
	d, err := b.Send(ctx, req)
	if err != nil {
		return err
	}
	resp, err := d.Wait(ctx)
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return &RemoteError{Kind: kind, ID: req.ID, Message: resp.Error}
	}
	return resp.Decode(out)
}

// Notify sends a request without waiting for the response.
func (b *Bus) Notify(ctx context.Context, kind Kind, payload any) error {
	req, err := NewRequest(kind, payload)
	if err != nil {
		return err
	}
	d, err := b.Send(ctx, req)
	if err != nil {
		return err
	}
	go func() {
		<-d.Done()
		if d.resp.Error != "" {
			b.log.Debug("notification failed", zap.String("kind", string(kind)), zap.String("error", d.resp.Error))
		}
	}()
	return nil
}

// Close stops the bus, cancels the running handler and rejects queued
// requests with ErrUnavailable. It is safe to call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.stop)
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
}
