package protoconv

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// SchemaMismatchError is returned by NewConverter when the ignore and handler
// configuration does not account for every field of the source message type,
// or when it names fields that do not exist or claims a field more than once.
// Fields identifies the offending fields so that callers can remediate by
// adding the missing handler or ignore entries.
type SchemaMismatchError struct {
	Source protoreflect.FullName
	Dest   protoreflect.FullName
	Fields []protoreflect.Name

	msg string
}

func (e *SchemaMismatchError) Error() string {
	return e.msg
}

func mismatchErrorf(src, dst protoreflect.MessageDescriptor, fields []protoreflect.Name, format string, args ...any) *SchemaMismatchError {
	return &SchemaMismatchError{
		Source: src.FullName(),
		Dest:   dst.FullName(),
		Fields: fields,
		msg:    fmt.Sprintf(format, args...),
	}
}

// DynamicTypeMismatchError is returned when unpacking a google.protobuf.Any
// value whose boxed type does not match the requested message type. The
// conversion engine never unpacks Any values itself (Any fields are only
// copied or packed, never unpacked into concrete fields), so this error only
// arises from handler code calling UnpackAny or UnpackAnyNew.
type DynamicTypeMismatchError struct {
	// TypeURL is the type URL boxed in the Any value.
	TypeURL string
	// Want is the message type the caller asked for.
	Want protoreflect.FullName
}

func (e *DynamicTypeMismatchError) Error() string {
	return fmt.Sprintf("any value holds %q, not %s", e.TypeURL, e.Want)
}

// HandlerError wraps an error returned by a conversion handler, identifying
// the handler by the source fields it was registered for. The handler's
// original error is available via errors.Unwrap, errors.Is, and errors.As.
type HandlerError struct {
	Fields []protoreflect.Name
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for fields %v: %v", e.Fields, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
