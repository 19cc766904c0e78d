package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

type (
	// Handler processes jobs of a single kind
	Handler interface {
		Kind() Kind
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	// HandlerFunc handles a decoded payload of type T
	HandlerFunc[T Payload] func(ctx context.Context, payload T) error
)

// NewHandler binds fn to the kind reported by T.
// Payloads that fail to decode are permanent failures since retrying cannot fix them.
func NewHandler[T Payload](fn HandlerFunc[T]) Handler {
	var payload T
	return &typedHandler[T]{
		kind:    payload.Kind(),
		handler: fn,
	}
}

type typedHandler[T Payload] struct {
	kind    Kind
	handler HandlerFunc[T]
}

func (h *typedHandler[T]) Kind() Kind {
	return h.kind
}

func (h *typedHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return Permanent(fmt.Errorf("failed to decode %s payload: %w", h.kind, err))
	}
	return h.handler(ctx, t)
}
