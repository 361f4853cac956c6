package protoconv

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/protoconv/protoconv/internal"
)

// Converter copies field values from messages of one type onto freshly
// allocated messages of another type. Converters are created with
// NewConverter and are immutable once constructed: a single Converter may be
// shared freely across goroutines, provided registered handler functions are
// themselves safe for concurrent use.
type Converter struct {
	srcType  protoreflect.MessageType
	dstType  protoreflect.MessageType
	auto     []autoField
	handlers []Handler
}

// NewConverter builds a converter from src to dst. It fails with a
// *SchemaMismatchError unless every field of the source type is either
// auto-convertible to a destination field of the same name, claimed by
// exactly one registered handler, or ignored. This is the only way to obtain
// a Converter; no converter that failed validation is ever observable.
//
// Both generated and dynamic message types work: pass
// (&foopb.Foo{}).ProtoReflect().Type() for a generated type, or a type
// obtained from a compiled schema set (see the protoschema package).
func NewConverter(src, dst protoreflect.MessageType, opts ...Option) (*Converter, error) {
	if src == nil || dst == nil {
		return nil, errors.New("protoconv: source and destination message types must be non-nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	plan, err := validate(src.Descriptor(), dst.Descriptor(), &o)
	if err != nil {
		return nil, err
	}
	return &Converter{
		srcType:  src,
		dstType:  dst,
		auto:     plan,
		handlers: o.handlers,
	}, nil
}

// Source returns the descriptor of the converter's source message type.
func (c *Converter) Source() protoreflect.MessageDescriptor {
	return c.srcType.Descriptor()
}

// Dest returns the descriptor of the converter's destination message type.
func (c *Converter) Dest() protoreflect.MessageDescriptor {
	return c.dstType.Descriptor()
}

// Convert builds a new destination message from src. Auto-convertible fields
// are copied first, in the source type's declaration order, then handlers run
// in registration order against the in-progress destination. The source
// message is never mutated.
//
// If a handler fails, Convert returns a nil message and a *HandlerError
// wrapping the handler's error; the partially populated destination is
// discarded.
func (c *Converter) Convert(src proto.Message) (proto.Message, error) {
	srcRefl := src.ProtoReflect()
	srcDesc := srcRefl.Descriptor()
	if got, want := srcDesc.FullName(), c.srcType.Descriptor().FullName(); got != want {
		return nil, fmt.Errorf("protoconv: cannot convert %s: converter expects source type %s", got, want)
	}

	dst := c.dstType.New()
	sameDesc := srcDesc == c.srcType.Descriptor()
	for _, af := range c.auto {
		sfd := af.src
		if !sameDesc {
			// Same type name from a different descriptor pool (e.g. a schema
			// compiled at runtime). Re-resolve the field against the message's
			// own descriptor.
			sfd = srcDesc.Fields().ByName(af.src.Name())
			if sfd == nil || !sameShape(sfd, af.src) {
				return nil, fmt.Errorf("protoconv: source message's definition of %s.%s does not match the converter's",
					srcDesc.FullName(), af.src.Name())
			}
		}
		if !srcRefl.Has(sfd) {
			continue
		}
		if err := copyField(srcRefl, sfd, dst, af.dst, af.mode); err != nil {
			return nil, fmt.Errorf("protoconv: converting field %q: %w", sfd.Name(), err)
		}
	}

	for _, h := range c.handlers {
		if err := h.Convert(src, dst.Interface()); err != nil {
			return nil, &HandlerError{Fields: h.Fields, Err: err}
		}
	}
	return dst.Interface(), nil
}

// sameShape reports whether a field re-resolved from another descriptor pool
// matches the converter's view of the same field: identical kind and
// cardinality, and for message, enum, and map fields the same referenced type
// names. Shape alone is not enough; a pool may reuse a field name for a
// different message or enum type.
func sameShape(a, b protoreflect.FieldDescriptor) bool {
	if a.Kind() != b.Kind() || a.IsList() != b.IsList() || a.IsMap() != b.IsMap() {
		return false
	}
	if a.IsMap() {
		if a.MapKey().Kind() != b.MapKey().Kind() {
			return false
		}
		return sameShape(a.MapValue(), b.MapValue())
	}
	switch {
	case internal.IsMessageKind(a.Kind()):
		return a.Message().FullName() == b.Message().FullName()
	case a.Kind() == protoreflect.EnumKind:
		return a.Enum().FullName() == b.Enum().FullName()
	default:
		return true
	}
}

// ConvertAll converts every message in srcs concurrently and returns the
// results in the same positions as their inputs. The first conversion error
// cancels the remaining work and is returned; no partial results are
// returned alongside an error.
func (c *Converter) ConvertAll(ctx context.Context, srcs []proto.Message) ([]proto.Message, error) {
	out := make([]proto.Message, len(srcs))
	grp, ctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		i, src := i, src
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst, err := c.Convert(src)
			if err != nil {
				return err
			}
			out[i] = dst
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
