// Package internal contains some code that should not be exported but needs to
// be shared across more than one of the protoconv sub-packages.
package internal

import (
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// AnyTypeName is the fully-qualified name of the google.protobuf.Any message.
const AnyTypeName protoreflect.FullName = "google.protobuf.Any"

// IsMessageKind reports whether k is a kind whose values are messages.
func IsMessageKind(k protoreflect.Kind) bool {
	return k == protoreflect.MessageKind || k == protoreflect.GroupKind
}

// IsAnyMessage reports whether md describes google.protobuf.Any.
func IsAnyMessage(md protoreflect.MessageDescriptor) bool {
	return md != nil && md.FullName() == AnyTypeName
}

// TypeNameFromURL extracts the fully-qualified type name from a type URL,
// which is the path component after the last slash.
func TypeNameFromURL(url string) protoreflect.FullName {
	return protoreflect.FullName(url[strings.LastIndexByte(url, '/')+1:])
}
