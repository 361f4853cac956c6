package protoconv

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/protoconv/protoconv/internal"
)

// PackAny boxes msg into a new google.protobuf.Any value. It works for
// dynamic messages as well as generated ones.
func PackAny(msg proto.Message) (*anypb.Any, error) {
	return anypb.New(msg)
}

// AsAny converts a google.protobuf.Any message value, which may be backed by
// a dynamic message rather than the generated type, into an *anypb.Any. The
// byte slice of the returned value is shared with the input.
func AsAny(msg proto.Message) (*anypb.Any, error) {
	if a, ok := msg.(*anypb.Any); ok {
		return a, nil
	}
	refl := msg.ProtoReflect()
	if !internal.IsAnyMessage(refl.Descriptor()) {
		return nil, fmt.Errorf("protoconv: %s is not google.protobuf.Any", refl.Descriptor().FullName())
	}
	fields := refl.Descriptor().Fields()
	return &anypb.Any{
		TypeUrl: refl.Get(fields.ByName("type_url")).String(),
		Value:   refl.Get(fields.ByName("value")).Bytes(),
	}, nil
}

// UnpackAny extracts the message boxed in anyMsg into dst. If the boxed type
// does not match dst's type, it returns a *DynamicTypeMismatchError. This is
// the checked, explicit form of the Any-to-concrete conversion that the
// classifier always refuses to perform automatically.
func UnpackAny(anyMsg, dst proto.Message) error {
	a, err := AsAny(anyMsg)
	if err != nil {
		return err
	}
	want := dst.ProtoReflect().Descriptor().FullName()
	if internal.TypeNameFromURL(a.TypeUrl) != want {
		return &DynamicTypeMismatchError{TypeURL: a.TypeUrl, Want: want}
	}
	return proto.Unmarshal(a.Value, dst)
}

// UnpackAnyNew resolves the type boxed in anyMsg through the given resolver
// and unpacks into a freshly allocated message of that type. Use a schema
// set's resolver (see protoschema.Set.AsResolver) to unpack values whose
// types are not linked into the binary, or protoregistry.GlobalTypes for
// ones that are.
func UnpackAnyNew(anyMsg proto.Message, res protoregistry.MessageTypeResolver) (proto.Message, error) {
	a, err := AsAny(anyMsg)
	if err != nil {
		return nil, err
	}
	mt, err := res.FindMessageByURL(a.TypeUrl)
	if err != nil {
		return nil, fmt.Errorf("protoconv: resolving boxed type %q: %w", a.TypeUrl, err)
	}
	msg := mt.New().Interface()
	if err := proto.Unmarshal(a.Value, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
