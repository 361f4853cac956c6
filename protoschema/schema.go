// Package protoschema compiles .proto sources into resolvable message types,
// so that converters can be built between message types that are not linked
// into the binary (for example, two revisions of the same schema loaded at
// runtime). It is a thin layer over the protocompile compiler, the
// protoregistry descriptor registry, and dynamicpb message construction.
package protoschema

import (
	"context"
	"fmt"
	"sort"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Set is a compiled collection of schema files, including their transitive
// imports. A Set is immutable once returned and safe for concurrent use.
type Set struct {
	files *protoregistry.Files
	types *dynamicpb.Types
}

// Compile compiles the given in-memory .proto sources. Map keys are file
// names, which other entries may import by. The well-known imports
// (google/protobuf/*.proto) resolve automatically.
func Compile(ctx context.Context, sources map[string]string) (*Set, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	compiler := &protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
	}
	fds, err := compiler.Compile(ctx, names...)
	if err != nil {
		return nil, err
	}
	return newSet(fds)
}

// Load compiles the named .proto files from disk, resolving imports against
// the given import paths.
func Load(ctx context.Context, importPaths []string, files ...string) (*Set, error) {
	compiler := &protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: importPaths,
		}),
	}
	fds, err := compiler.Compile(ctx, files...)
	if err != nil {
		return nil, err
	}
	return newSet(fds)
}

func newSet[F protoreflect.FileDescriptor](fds []F) (*Set, error) {
	var reg protoregistry.Files
	for _, fd := range fds {
		if err := register(&reg, fd); err != nil {
			return nil, err
		}
	}
	return &Set{files: &reg, types: dynamicpb.NewTypes(&reg)}, nil
}

// register adds fd and its transitive imports to reg, skipping files already
// present (several compiled files may share imports).
func register(reg *protoregistry.Files, fd protoreflect.FileDescriptor) error {
	if _, err := reg.FindFileByPath(fd.Path()); err == nil {
		return nil
	}
	imps := fd.Imports()
	for i, length := 0, imps.Len(); i < length; i++ {
		if err := register(reg, imps.Get(i).FileDescriptor); err != nil {
			return err
		}
	}
	return reg.RegisterFile(fd)
}

// Files returns the registry of compiled files, including imports.
func (s *Set) Files() *protoregistry.Files {
	return s.files
}

// MessageType returns a dynamic message type for the named message. The
// returned error wraps protoregistry.NotFound when no such name is compiled
// into the set.
func (s *Set) MessageType(name protoreflect.FullName) (protoreflect.MessageType, error) {
	d, err := s.files.FindDescriptorByName(name)
	if err != nil {
		return nil, fmt.Errorf("protoschema: %s: %w", name, err)
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("protoschema: %s is not a message", name)
	}
	return dynamicpb.NewMessageType(md), nil
}

// NewMessage returns a fresh, empty dynamic message of the named type.
func (s *Set) NewMessage(name protoreflect.FullName) (proto.Message, error) {
	mt, err := s.MessageType(name)
	if err != nil {
		return nil, err
	}
	return mt.New().Interface(), nil
}

// AsResolver exposes the set's message types for resolution by name or type
// URL, e.g. for unpacking google.protobuf.Any values boxed against this
// schema via protoconv.UnpackAnyNew.
func (s *Set) AsResolver() protoregistry.MessageTypeResolver {
	return s.types
}
