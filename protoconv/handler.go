package protoconv

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// HandlerFunc is a user-supplied conversion function. It receives the full
// source message and the in-progress destination message, after the auto-copy
// pass has completed, and is expected to populate the destination fields that
// correspond to the source fields its handler was registered for. The engine
// does not verify afterwards that it did so; that is the caller's obligation.
//
// Returning a non-nil error aborts the conversion and the error is propagated
// to the Convert caller wrapped in a *HandlerError.
type HandlerFunc func(src, dst proto.Message) error

// Handler pairs a conversion function with the source fields it claims.
// Every field named in Fields is excluded from automatic conversion.
type Handler struct {
	Fields  []protoreflect.Name
	Convert HandlerFunc
}

type options struct {
	ignored  []protoreflect.Name
	handlers []Handler
}

// Option configures a converter under construction.
type Option func(*options)

// WithIgnoredFields excludes the named source fields from conversion
// entirely: they are neither auto-copied nor passed to any handler, even if
// they would otherwise auto-convert.
func WithIgnoredFields(names ...protoreflect.Name) Option {
	return func(o *options) {
		o.ignored = append(o.ignored, names...)
	}
}

// WithHandler registers fn as the conversion function for the named source
// fields. Handlers run after the auto-copy pass, in registration order.
func WithHandler(fn HandlerFunc, fields ...protoreflect.Name) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, Handler{Fields: fields, Convert: fn})
	}
}

// WithHandlers registers pre-built handlers, in order. It is equivalent to a
// WithHandler call per element.
func WithHandlers(handlers ...Handler) Option {
	return func(o *options) {
		o.handlers = append(o.handlers, handlers...)
	}
}
