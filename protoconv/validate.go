package protoconv

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// validate checks the ignore and handler configuration against the source
// type and computes the auto-copy plan. It enforces the partition invariant:
// auto-convertible, handled, and ignored fields must cover the full source
// field set with no field in two categories and no entry naming a field the
// source type does not declare.
func validate(src, dst protoreflect.MessageDescriptor, o *options) ([]autoField, error) {
	srcFields := src.Fields()

	handled := make(map[protoreflect.Name]bool)
	for _, h := range o.handlers {
		if len(h.Fields) == 0 {
			return nil, mismatchErrorf(src, dst, nil,
				"handler registered for %s declares no field names", src.FullName())
		}
		if h.Convert == nil {
			return nil, mismatchErrorf(src, dst, h.Fields,
				"handler for fields %v of %s has a nil conversion function", h.Fields, src.FullName())
		}
		for _, name := range h.Fields {
			if srcFields.ByName(name) == nil {
				return nil, mismatchErrorf(src, dst, []protoreflect.Name{name},
					"handler names field %q, which %s does not declare", name, src.FullName())
			}
			if handled[name] {
				return nil, mismatchErrorf(src, dst, []protoreflect.Name{name},
					"field %q of %s is claimed by more than one handler", name, src.FullName())
			}
			handled[name] = true
		}
	}

	ignored := make(map[protoreflect.Name]bool)
	for _, name := range o.ignored {
		if srcFields.ByName(name) == nil {
			return nil, mismatchErrorf(src, dst, []protoreflect.Name{name},
				"ignored field %q is not declared by %s", name, src.FullName())
		}
		if handled[name] {
			return nil, mismatchErrorf(src, dst, []protoreflect.Name{name},
				"field %q of %s is both ignored and claimed by a handler", name, src.FullName())
		}
		ignored[name] = true
	}

	plan, unresolved := classify(src, dst, ignored, handled)
	if len(unresolved) > 0 {
		return nil, mismatchErrorf(src, dst, unresolved,
			"fields of %s cannot be automatically converted to %s and must be explicitly handled or ignored: %v",
			src.FullName(), dst.FullName(), unresolved)
	}

	// Setting a oneof member clears its siblings, so auto-copying more than
	// one field into the same destination oneof would silently discard all
	// but the last. Reject the plan instead.
	intoOneof := make(map[protoreflect.FullName][]protoreflect.Name)
	for _, af := range plan {
		if oo := af.dst.ContainingOneof(); oo != nil && !oo.IsSynthetic() {
			intoOneof[oo.FullName()] = append(intoOneof[oo.FullName()], af.src.Name())
		}
	}
	for _, af := range plan {
		oo := af.dst.ContainingOneof()
		if oo == nil || oo.IsSynthetic() {
			continue
		}
		if names := intoOneof[oo.FullName()]; len(names) > 1 {
			return nil, mismatchErrorf(src, dst, names,
				"fields %v of %s all convert into members of oneof %q of %s; all but one must be explicitly handled or ignored",
				names, src.FullName(), oo.Name(), dst.FullName())
		}
	}
	return plan, nil
}
