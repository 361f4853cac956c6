// Package protoconv converts between protobuf message types that are mostly,
// but not exactly, identical in shape. It replaces hand-written field-by-field
// copy code between near-duplicate message types (such as storage-layer and
// API-layer representations of the same entity) while still forcing every
// structural difference between the two types to be explicitly acknowledged.
//
// A converter is built from a source and a destination message type. At
// construction, every field of the source type is classified as one of:
//
//   - Auto: the destination declares a field with the same name, kind,
//     cardinality, and (for message and enum fields) the same type, so the
//     value is copied without user involvement. A concrete message field may
//     also auto-convert into a google.protobuf.Any field of the same name and
//     cardinality, in which case each value is packed.
//   - Handled: the field was claimed by a handler registered via WithHandler
//     or WithHandlers. The handler is responsible for populating whatever
//     destination fields correspond to it.
//   - Ignored: the field was named in WithIgnoredFields and is excluded from
//     conversion entirely.
//
// If any source field fits none of these categories, NewConverter fails with
// a *SchemaMismatchError naming the unresolved fields. There is no way to
// obtain a converter that has not passed this check. Two rules here are
// deliberate and non-obvious:
//
//   - Members of a oneof are never auto-converted, even when a matching
//     destination field exists. Which branch of the union is active is a
//     per-message property, so silently copying members is unsafe; each
//     member must be handled or ignored.
//   - A google.protobuf.Any field never auto-converts into a concrete message
//     field. The boxed type is not statically known to match, and a
//     conversion that could fail at runtime on some messages is rejected at
//     construction instead. Handlers can use UnpackAny for the checked,
//     explicit version.
//
// Converting a message allocates a fresh destination, performs the auto-copy
// pass, then invokes handlers in registration order. The source message is
// never mutated, and a constructed Converter is immutable, so a single
// converter may be used from any number of goroutines.
//
// # Converting nested types
//
// When a nested message field's source and destination types differ in
// identity, the engine does not recurse automatically. Build a separate
// converter for the nested pair and delegate to it from a handler:
//
//	inner, err := protoconv.NewConverter(innerSrcType, innerDstType)
//	if err != nil { ... }
//	outer, err := protoconv.NewConverter(outerSrcType, outerDstType,
//		protoconv.WithHandler(func(src, dst proto.Message) error {
//			v := src.ProtoReflect().Get(detailField).Message()
//			converted, err := inner.Convert(v.Interface())
//			if err != nil {
//				return err
//			}
//			dst.ProtoReflect().Set(dstDetailField, protoreflect.ValueOfMessage(converted.ProtoReflect()))
//			return nil
//		}, "detail"))
//
// For repeated or map fields, apply the nested converter per element. Note
// that composing converters into a reference cycle across message types is a
// caller error; the engine performs no cycle detection.
package protoconv
