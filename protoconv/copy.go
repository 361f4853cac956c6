package protoconv

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/protoconv/protoconv/internal"
)

// copyField copies one auto-convertible field from src to dst, element-wise
// for repeated fields (preserving order) and entry-wise for map fields.
func copyField(src protoreflect.Message, sfd protoreflect.FieldDescriptor, dst protoreflect.Message, dfd protoreflect.FieldDescriptor, mode copyMode) error {
	switch {
	case sfd.IsMap():
		srcMap := src.Get(sfd).Map()
		dstMap := dst.Mutable(dfd).Map()
		svd := sfd.MapValue()
		var rangeErr error
		srcMap.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
			nv, err := convertValue(v, svd, mode, func() protoreflect.Message {
				return dstMap.NewValue().Message()
			})
			if err != nil {
				rangeErr = err
				return false
			}
			dstMap.Set(k, nv)
			return true
		})
		return rangeErr
	case sfd.IsList():
		srcList := src.Get(sfd).List()
		dstList := dst.Mutable(dfd).List()
		for i, length := 0, srcList.Len(); i < length; i++ {
			nv, err := convertValue(srcList.Get(i), sfd, mode, func() protoreflect.Message {
				return dstList.NewElement().Message()
			})
			if err != nil {
				return err
			}
			dstList.Append(nv)
		}
		return nil
	default:
		nv, err := convertValue(src.Get(sfd), sfd, mode, func() protoreflect.Message {
			return dst.NewField(dfd).Message()
		})
		if err != nil {
			return err
		}
		dst.Set(dfd, nv)
		return nil
	}
}

// convertValue produces a value assignable to the destination from a single
// source element value. For message values, newMsg allocates the fresh
// destination message to populate, so that the same logic serves singular
// fields, list elements, and map entries.
func convertValue(v protoreflect.Value, sfd protoreflect.FieldDescriptor, mode copyMode, newMsg func() protoreflect.Message) (protoreflect.Value, error) {
	switch {
	case mode == copyPack:
		a, err := anypb.New(v.Message().Interface())
		if err != nil {
			return protoreflect.Value{}, err
		}
		m := newMsg()
		writeAny(m, a)
		return protoreflect.ValueOfMessage(m), nil
	case internal.IsMessageKind(sfd.Kind()):
		m := newMsg()
		if err := mergeMessage(m, v.Message()); err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfMessage(m), nil
	case sfd.Kind() == protoreflect.BytesKind:
		// Don't alias the source's backing array.
		return protoreflect.ValueOfBytes(append([]byte(nil), v.Bytes()...)), nil
	default:
		return v, nil
	}
}

// mergeMessage deep-copies src into dst. When both sides share a descriptor
// it defers to proto.Merge; otherwise the two messages carry the same type
// name compiled into different descriptor pools, and the copy round-trips
// the wire form, which is how protobuf defines cross-pool equivalence.
func mergeMessage(dst, src protoreflect.Message) error {
	if dst.Descriptor() == src.Descriptor() {
		proto.Merge(dst.Interface(), src.Interface())
		return nil
	}
	data, err := proto.Marshal(src.Interface())
	if err != nil {
		return err
	}
	return proto.Unmarshal(data, dst.Interface())
}

// writeAny stores a's contents into m, which must be a google.protobuf.Any
// message but may be dynamic rather than a generated *anypb.Any.
func writeAny(m protoreflect.Message, a *anypb.Any) {
	if concrete, ok := m.Interface().(*anypb.Any); ok {
		concrete.TypeUrl = a.TypeUrl
		concrete.Value = a.Value
		return
	}
	fields := m.Descriptor().Fields()
	m.Set(fields.ByName("type_url"), protoreflect.ValueOfString(a.TypeUrl))
	m.Set(fields.ByName("value"), protoreflect.ValueOfBytes(a.Value))
}
