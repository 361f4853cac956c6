package protoconv

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/protoconv/protoconv/protoschema"
)

const anySource = `
syntax = "proto3";
package anytest;

import "google/protobuf/any.proto";

message Payload {
  string id = 1;
  int64 total = 2;
}

message Src {
  Payload payload = 1;
  repeated Payload items = 2;
  map<string, Payload> by_key = 3;
  google.protobuf.Any raw = 4;
}

message Dst {
  google.protobuf.Any payload = 1;
  repeated google.protobuf.Any items = 2;
  map<string, google.protobuf.Any> by_key = 3;
  google.protobuf.Any raw = 4;
}

message AnyHolder {
  google.protobuf.Any raw = 1;
}

message PayloadHolder {
  Payload raw = 1;
}
`

func compileAnySet(t *testing.T) *protoschema.Set {
	t.Helper()
	set, err := protoschema.Compile(context.Background(), map[string]string{"any_test.proto": anySource})
	require.NoError(t, err)
	return set
}

func anyMessageType(t *testing.T, set *protoschema.Set, name protoreflect.FullName) protoreflect.MessageType {
	t.Helper()
	mt, err := set.MessageType(name)
	require.NoError(t, err)
	return mt
}

func newPayload(t *testing.T, mt protoreflect.MessageType, id string, total int64) protoreflect.Message {
	t.Helper()
	m := mt.New()
	m.Set(fieldByName(t, m.Descriptor(), "id"), protoreflect.ValueOfString(id))
	m.Set(fieldByName(t, m.Descriptor(), "total"), protoreflect.ValueOfInt64(total))
	return m
}

func TestMessageIntoAnyRoundTrip(t *testing.T) {
	set := compileAnySet(t)
	srcType := anyMessageType(t, set, "anytest.Src")
	dstType := anyMessageType(t, set, "anytest.Dst")
	payloadType := anyMessageType(t, set, "anytest.Payload")

	conv, err := NewConverter(srcType, dstType, WithIgnoredFields("raw"))
	require.NoError(t, err)

	src := srcType.New()
	md := src.Descriptor()
	src.Set(fieldByName(t, md, "payload"), protoreflect.ValueOfMessage(newPayload(t, payloadType, "p-1", 7)))

	items := src.Mutable(fieldByName(t, md, "items")).List()
	items.Append(protoreflect.ValueOfMessage(newPayload(t, payloadType, "i-1", 1)))
	items.Append(protoreflect.ValueOfMessage(newPayload(t, payloadType, "i-2", 2)))

	byKey := src.Mutable(fieldByName(t, md, "by_key")).Map()
	byKey.Set(protoreflect.ValueOfString("k").MapKey(), protoreflect.ValueOfMessage(newPayload(t, payloadType, "m-1", 3)))

	dst, err := conv.Convert(src.Interface())
	require.NoError(t, err)
	dstRefl := dst.ProtoReflect()

	// Unpacking each packed value as the source's concrete type must yield
	// the source value.
	unpack := func(v protoreflect.Value) proto.Message {
		msg, err := UnpackAnyNew(v.Message().Interface(), set.AsResolver())
		require.NoError(t, err)
		return msg
	}
	got := unpack(dstRefl.Get(fieldByName(t, dstRefl.Descriptor(), "payload")))
	require.Empty(t, cmp.Diff(newPayload(t, payloadType, "p-1", 7).Interface(), got, protocmp.Transform()))

	gotItems := dstRefl.Get(fieldByName(t, dstRefl.Descriptor(), "items")).List()
	require.Equal(t, 2, gotItems.Len())
	require.Empty(t, cmp.Diff(newPayload(t, payloadType, "i-1", 1).Interface(), unpack(gotItems.Get(0)), protocmp.Transform()))
	require.Empty(t, cmp.Diff(newPayload(t, payloadType, "i-2", 2).Interface(), unpack(gotItems.Get(1)), protocmp.Transform()))

	gotByKey := dstRefl.Get(fieldByName(t, dstRefl.Descriptor(), "by_key")).Map()
	require.Equal(t, 1, gotByKey.Len())
	require.Empty(t, cmp.Diff(newPayload(t, payloadType, "m-1", 3).Interface(),
		unpack(gotByKey.Get(protoreflect.ValueOfString("k").MapKey())), protocmp.Transform()))
}

func TestAnyPassThroughPreservesTypeAndBytes(t *testing.T) {
	set := compileAnySet(t)
	srcType := anyMessageType(t, set, "anytest.Src")
	dstType := anyMessageType(t, set, "anytest.Dst")
	payloadType := anyMessageType(t, set, "anytest.Payload")

	conv, err := NewConverter(srcType, dstType,
		WithIgnoredFields("payload", "items", "by_key"))
	require.NoError(t, err)

	boxed, err := PackAny(newPayload(t, payloadType, "boxed", 11).Interface())
	require.NoError(t, err)

	src := srcType.New()
	src.Set(fieldByName(t, src.Descriptor(), "raw"), protoreflect.ValueOfMessage(boxed.ProtoReflect()))

	dst, err := conv.Convert(src.Interface())
	require.NoError(t, err)

	got, err := AsAny(dst.ProtoReflect().Get(fieldByName(t, dst.ProtoReflect().Descriptor(), "raw")).Message().Interface())
	require.NoError(t, err)
	require.Equal(t, boxed.TypeUrl, got.TypeUrl)
	require.Equal(t, boxed.Value, got.Value)
}

func TestAnyIntoConcreteIsRejected(t *testing.T) {
	set := compileAnySet(t)
	holderType := anyMessageType(t, set, "anytest.AnyHolder")
	payloadHolderType := anyMessageType(t, set, "anytest.PayloadHolder")

	// The boxed type cannot be checked statically, so this must be handled
	// or ignored, never auto-converted.
	_, err := NewConverter(holderType, payloadHolderType)
	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, []protoreflect.Name{"raw"}, mismatch.Fields)

	// The explicit, checked form works via a handler.
	srcRaw := fieldByName(t, holderType.Descriptor(), "raw")
	dstRaw := fieldByName(t, payloadHolderType.Descriptor(), "raw")
	conv, err := NewConverter(holderType, payloadHolderType,
		WithHandler(func(src, dst proto.Message) error {
			payload := dst.ProtoReflect().NewField(dstRaw).Message()
			if err := UnpackAny(src.ProtoReflect().Get(srcRaw).Message().Interface(), payload.Interface()); err != nil {
				return err
			}
			dst.ProtoReflect().Set(dstRaw, protoreflect.ValueOfMessage(payload))
			return nil
		}, "raw"))
	require.NoError(t, err)

	payloadType := anyMessageType(t, set, "anytest.Payload")
	boxed, err := PackAny(newPayload(t, payloadType, "p-9", 9).Interface())
	require.NoError(t, err)
	src := holderType.New()
	src.Set(srcRaw, protoreflect.ValueOfMessage(boxed.ProtoReflect()))

	dst, err := conv.Convert(src.Interface())
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(newPayload(t, payloadType, "p-9", 9).Interface(),
		dst.ProtoReflect().Get(dstRaw).Message().Interface(), protocmp.Transform()))
}

func TestUnpackAnyTypeMismatch(t *testing.T) {
	set := compileAnySet(t)
	payloadType := anyMessageType(t, set, "anytest.Payload")
	holderType := anyMessageType(t, set, "anytest.AnyHolder")

	boxed, err := PackAny(newPayload(t, payloadType, "p", 1).Interface())
	require.NoError(t, err)

	into := holderType.New().Interface()
	err = UnpackAny(boxed, into)
	var mismatch *DynamicTypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, boxed.TypeUrl, mismatch.TypeURL)
	require.Equal(t, protoreflect.FullName("anytest.AnyHolder"), mismatch.Want)
}

func TestUnpackAnyFromHandlerSurfacesMismatch(t *testing.T) {
	set := compileAnySet(t)
	holderType := anyMessageType(t, set, "anytest.AnyHolder")
	payloadHolderType := anyMessageType(t, set, "anytest.PayloadHolder")

	srcRaw := fieldByName(t, holderType.Descriptor(), "raw")
	dstRaw := fieldByName(t, payloadHolderType.Descriptor(), "raw")
	conv, err := NewConverter(holderType, payloadHolderType,
		WithHandler(func(src, dst proto.Message) error {
			payload := dst.ProtoReflect().NewField(dstRaw).Message()
			return UnpackAny(src.ProtoReflect().Get(srcRaw).Message().Interface(), payload.Interface())
		}, "raw"))
	require.NoError(t, err)

	// Box the wrong type; the mismatch must flow out of Convert.
	boxed, err := anypb.New(holderType.New().Interface())
	require.NoError(t, err)
	src := holderType.New()
	src.Set(srcRaw, protoreflect.ValueOfMessage(boxed.ProtoReflect()))

	_, err = conv.Convert(src.Interface())
	var mismatch *DynamicTypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	var handlerErr *HandlerError
	require.ErrorAs(t, err, &handlerErr)
}
