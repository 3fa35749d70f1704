// Package middleware provides a generic Service/Layer composition kernel
// plus the concrete cross-cutting behaviors (retry, rate limiting, logging,
// caching, conversation-state) built on top of it.
//
// Grounded on the teacher's middleware.LanguageModelMiddleware: a
// struct-of-function-fields that wraps a provider.LanguageModel, composed
// by WrapLanguageModel in reverse order so the last middleware in the slice
// ends up wrapped directly around the leaf model. This package keeps that
// composition algorithm but generalizes the wrapped type with Go generics,
// the way tower-rs's Service/Layer/ServiceBuilder generalize a concrete
// request handler.
package middleware

import "context"

// Service handles a single request of type Req, producing a Res.
type Service[Req, Res any] interface {
	Handle(ctx context.Context, req Req) (Res, error)
}

// ServiceFunc adapts a plain function to a Service.
type ServiceFunc[Req, Res any] func(ctx context.Context, req Req) (Res, error)

func (f ServiceFunc[Req, Res]) Handle(ctx context.Context, req Req) (Res, error) {
	return f(ctx, req)
}

// Layer wraps a Service with additional behavior, producing a new Service.
type Layer[Req, Res any] interface {
	Wrap(next Service[Req, Res]) Service[Req, Res]
}

// LayerFunc adapts a plain function to a Layer.
type LayerFunc[Req, Res any] func(next Service[Req, Res]) Service[Req, Res]

func (f LayerFunc[Req, Res]) Wrap(next Service[Req, Res]) Service[Req, Res] {
	return f(next)
}

// Identity is a Layer that passes requests straight through unmodified.
func Identity[Req, Res any]() Layer[Req, Res] {
	return LayerFunc[Req, Res](func(next Service[Req, Res]) Service[Req, Res] {
		return next
	})
}

// Stack composes layers around a leaf Service. Layers are applied in
// reverse declaration order, so Stack(leaf, a, b, c) builds
// a(b(c(leaf))) — the last layer in the list wraps directly around leaf,
// matching the teacher's WrapLanguageModel composition order.
func Stack[Req, Res any](leaf Service[Req, Res], layers ...Layer[Req, Res]) Service[Req, Res] {
	svc := leaf
	for i := len(layers) - 1; i >= 0; i-- {
		svc = layers[i].Wrap(svc)
	}
	return svc
}

// ServiceBuilder accumulates layers to apply to a leaf Service, outermost
// first, mirroring tower's ServiceBuilder ergonomics over the Stack
// function above.
type ServiceBuilder[Req, Res any] struct {
	layers []Layer[Req, Res]
}

func NewServiceBuilder[Req, Res any]() *ServiceBuilder[Req, Res] {
	return &ServiceBuilder[Req, Res]{}
}

// Layer appends l inside every layer added before it (closest to the leaf
// so far) and returns the builder for chaining.
func (b *ServiceBuilder[Req, Res]) Layer(l Layer[Req, Res]) *ServiceBuilder[Req, Res] {
	b.layers = append(b.layers, l)
	return b
}

// Build wraps leaf with every layer added so far.
func (b *ServiceBuilder[Req, Res]) Build(leaf Service[Req, Res]) Service[Req, Res] {
	return Stack(leaf, b.layers...)
}
