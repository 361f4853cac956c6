package protoconv

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/protoconv/protoconv/internal"
)

// copyMode describes how an auto-convertible value moves from source to
// destination.
type copyMode int

const (
	// copyPlain copies the value as-is; message values are deep-copied.
	// Any-to-Any fields use this mode too, since google.protobuf.Any on both
	// sides satisfies the type identity rule like any other message type.
	copyPlain copyMode = iota
	// copyPack packs a concrete message value into a google.protobuf.Any
	// destination, element-wise for repeated and map fields.
	copyPack
)

// autoField is one entry of the auto-copy plan computed at construction.
type autoField struct {
	src  protoreflect.FieldDescriptor
	dst  protoreflect.FieldDescriptor
	mode copyMode
}

// classify walks every field of the source type and either adds it to the
// auto-copy plan or reports it as unresolved. Fields in the ignored and
// handled sets are accounted for and skipped. Unresolved names are returned
// in declaration order.
func classify(src, dst protoreflect.MessageDescriptor, ignored, handled map[protoreflect.Name]bool) (plan []autoField, unresolved []protoreflect.Name) {
	fields := src.Fields()
	for i, length := 0, fields.Len(); i < length; i++ {
		fld := fields.Get(i)
		name := fld.Name()
		if ignored[name] || handled[name] {
			continue
		}
		// Members of a real oneof are never auto-converted: which branch is
		// active varies per message, so copying them silently is unsafe.
		// Synthetic oneofs (proto3 explicit presence) don't count.
		if oo := fld.ContainingOneof(); oo != nil && !oo.IsSynthetic() {
			unresolved = append(unresolved, name)
			continue
		}
		dfld := dst.Fields().ByName(name)
		mode, ok := autoMode(fld, dfld)
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}
		plan = append(plan, autoField{src: fld, dst: dfld, mode: mode})
	}
	return plan, unresolved
}

// autoMode decides whether a source field auto-converts into the destination
// field of the same name, and if so how. A nil dfld means the destination
// declares no such field.
func autoMode(sfld, dfld protoreflect.FieldDescriptor) (copyMode, bool) {
	if dfld == nil {
		return 0, false
	}
	if sfld.IsMap() != dfld.IsMap() || sfld.IsList() != dfld.IsList() {
		return 0, false
	}
	if sfld.IsMap() {
		if sfld.MapKey().Kind() != dfld.MapKey().Kind() {
			return 0, false
		}
		return valueMode(sfld.MapValue(), dfld.MapValue())
	}
	return valueMode(sfld, dfld)
}

// valueMode applies the type compatibility rules to a single value type. For
// repeated fields this is the element type and for map fields the map value
// type; cardinality has already been checked by autoMode.
func valueMode(s, d protoreflect.FieldDescriptor) (copyMode, bool) {
	sk, dk := s.Kind(), d.Kind()
	if internal.IsMessageKind(sk) && internal.IsMessageKind(dk) {
		srcAny := internal.IsAnyMessage(s.Message())
		dstAny := internal.IsAnyMessage(d.Message())
		switch {
		case srcAny && dstAny:
			return copyPlain, true
		case srcAny:
			// Any into a concrete type is never automatic: the boxed type is
			// not statically known to match the destination.
			return 0, false
		case dstAny:
			return copyPack, true
		case s.Message().FullName() == d.Message().FullName():
			return copyPlain, true
		default:
			return 0, false
		}
	}
	if sk != dk {
		return 0, false
	}
	if sk == protoreflect.EnumKind && s.Enum().FullName() != d.Enum().FullName() {
		return 0, false
	}
	return copyPlain, true
}
