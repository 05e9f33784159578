package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Handler answers one request. A nil result sends an empty response.
type Handler func(ctx context.Context, req Request) (any, error)

// Router maps kinds to handlers. Register everything before serving: the map
// is not guarded.
type Router struct {
	handlers map[Kind]Handler
	log      *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{handlers: make(map[Kind]Handler), log: log}
}

// Handle registers h for kind, replacing any previous handler.
func (r *Router) Handle(kind Kind, h Handler) {
	r.handlers[kind] = h
}

// Handles reports whether kind has a handler.
func (r *Router) Handles(kind Kind) bool {
	_, ok := r.handlers[kind]
	return ok
}

// On registers a handler whose payload is decoded into P first.
func On[P any](r *Router, kind Kind, fn func(ctx context.Context, p P) (any, error)) {
	r.Handle(kind, func(ctx context.Context, req Request) (any, error) {
		var p P
		if err := req.Decode(&p); err != nil {
			return nil, err
		}
		return fn(ctx, p)
	})
}

// Dispatch runs the handler for req and always returns a response. Handler
// panics become error responses.
func (r *Router) Dispatch(ctx context.Context, req Request) (resp Response) {
	resp.ID = req.ID

	h, ok := r.handlers[req.Kind]
	if !ok {
		resp.Error = fmt.Sprintf("%v: %s", ErrUnknownKind, req.Kind)
		return resp
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("handler panicked", zap.String("kind", string(req.Kind)), zap.Any("panic", p))
			resp.Payload = nil
			resp.Error = fmt.Sprintf("internal error handling %s", req.Kind)
		}
	}()

	result, err := h(ctx, req)
	if err != nil {
		r.log.Debug("handler failed", zap.String("kind", string(req.Kind)), zap.String("id", req.ID), zap.Error(err))
		resp.Error = err.Error()
		return resp
	}
	if result == nil {
		return resp
	}
	b, err := json.Marshal(result)
	if err != nil {
		resp.Error = fmt.Sprintf("marshal %s response: %v", req.Kind, err)
		return resp
	}
	resp.Payload = b
	return resp
}
