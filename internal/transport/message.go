package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUnavailable means the channel is closed or the receiver is gone.
	// Fire-and-forget callers ignore it. Request/response callers surface it.
	ErrUnavailable = errors.New("transport unavailable")
	// ErrUnknownKind is answered for a kind with no handler.
	ErrUnknownKind = errors.New("unknown request kind")
)

// Request is one kind-tagged message.
type Request struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewRequest marshals payload into a request with a fresh correlation id.
// A nil payload sends none.
func NewRequest(kind Kind, payload any) (Request, error) {
	req := Request{ID: uuid.NewString(), Kind: kind}
	if payload == nil {
		return req, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	req.Payload = b
	return req, nil
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (r Request) Decode(v any) error {
	if len(r.Payload) == 0 || string(r.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", r.Kind, err)
	}
	return nil
}

// Response answers the request with the same ID. Error is set instead of
// Payload when the handler failed.
type Response struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Decode unmarshals the payload into v.
func (r Response) Decode(v any) error {
	if v == nil || len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}

// RemoteError is a handler failure reported back to the caller.
type RemoteError struct {
	Kind    Kind
	ID      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Deferred is the pending response to one request. It is settled at most
// once; later Resolve or Reject calls report false and change nothing.
type Deferred struct {
	id   string
	once sync.Once
	done chan struct{}
	resp Response
	err  error
}

// NewDeferred creates a pending response for correlation id.
func NewDeferred(id string) *Deferred {
	return &Deferred{id: id, done: make(chan struct{})}
}

// ID is the correlation id.
func (d *Deferred) ID() string { return d.id }

// Resolve settles d with resp.
func (d *Deferred) Resolve(resp Response) bool {
	return d.settle(resp, nil)
}

// Reject settles d with err.
func (d *Deferred) Reject(err error) bool {
	return d.settle(Response{ID: d.id}, err)
}

func (d *Deferred) settle(resp Response, err error) bool {
	settled := false
	d.once.Do(func() {
		d.resp, d.err = resp, err
		close(d.done)
		settled = true
	})
	return settled
}

// Done is closed once d is settled.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Wait blocks until d is settled or ctx ends.
func (d *Deferred) Wait(ctx context.Context) (Response, error) {
	select {
	case <-d.done:
		return d.resp, d.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
