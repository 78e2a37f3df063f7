package binding

import (
	"fmt"
	"slices"
)

// Kind classifies a TypeRef.
type Kind uint8

const (
	KindOther Kind = iota
	KindString
	KindBool
	KindInt
	KindUint
	KindFloat
	KindStruct
	KindInterface
	KindEnum
	KindSlice
	KindPointer
	KindMap
	KindFunc
)

var kindNames = map[Kind]string{
	KindOther:     "other",
	KindString:    "string",
	KindBool:      "bool",
	KindInt:       "int",
	KindUint:      "uint",
	KindFloat:     "float",
	KindStruct:    "struct",
	KindInterface: "interface",
	KindEnum:      "enum",
	KindSlice:     "slice",
	KindPointer:   "pointer",
	KindMap:       "map",
	KindFunc:      "func",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	return KindOther, fmt.Errorf("binding: unknown kind %q", s)
}

// IsScalar reports whether values of the kind convert from text with strconv.
func (k Kind) IsScalar() bool {
	switch k {
	case KindBool, KindInt, KindUint, KindFloat:
		return true
	}

	return false
}

// TypeRef describes a type declared in the analysed program.
//
// Named types carry PkgPath, PkgName and Name; predeclared types only Name.
// Pointer and slice types carry Elem. A pointer is the nullable form of its
// element.
type TypeRef struct {
	PkgPath string
	PkgName string
	Name    string
	Kind    Kind
	Elem    *TypeRef
	// Bits is the size of numeric kinds; 0 means the platform int size.
	Bits int

	// Funcs are the package-level functions associated with the type and
	// its exported methods.
	Funcs []FuncRef
	// Interfaces lists the IDs of interfaces that *T implements.
	Interfaces []string
	// EnumValues names the constants of an enum type.
	EnumValues []string
	// DefaultFormat is passed as the format argument of a format-aware
	// parse function.
	DefaultFormat string
}

// FuncRef describes a function or method. Params and Results hold type IDs.
type FuncRef struct {
	Name     string
	Exported bool
	// Receiver marks a method; package-level functions have none.
	Receiver bool
	Params   []string
	Results  []string
}

// ID returns the type's identity: "pkg/path.Name" for named types, the
// bare name for predeclared ones, "*"+ID for pointers and "[]"+ID for
// slices.
func (t *TypeRef) ID() string {
	if t == nil {
		return ""
	}

	switch t.Kind {
	case KindPointer:
		return "*" + t.Elem.ID()
	case KindSlice:
		if t.Name == "" {
			return "[]" + t.Elem.ID()
		}
	}

	if t.PkgPath == "" {
		return t.Name
	}

	return t.PkgPath + "." + t.Name
}

// GoExpr returns the type as written in Go source in a file that imports
// the type's package under PkgName.
func (t *TypeRef) GoExpr() string {
	if t == nil {
		return ""
	}

	switch t.Kind {
	case KindPointer:
		return "*" + t.Elem.GoExpr()
	case KindSlice:
		if t.Name == "" {
			return "[]" + t.Elem.GoExpr()
		}
	}

	return t.qualify(t.Name)
}

// qualify prefixes name with the type's package name.
func (t *TypeRef) qualify(name string) string {
	if t.PkgName == "" {
		return name
	}

	return t.PkgName + "." + name
}

func (t *TypeRef) String() string {
	return t.GoExpr()
}

// IsNullable reports whether the type is a pointer.
func (t *TypeRef) IsNullable() bool {
	return t != nil && t.Kind == KindPointer
}

// IsArray reports whether the type is an unnamed slice other than []byte.
func (t *TypeRef) IsArray() bool {
	if t == nil || t.Kind != KindSlice || t.Name != "" || t.Elem == nil {
		return false
	}

	return t.Elem.ID() != "uint8" && t.Elem.ID() != "byte"
}

// Unwrap strips one pointer level, if any.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.IsNullable() {
		return t.Elem
	}

	return t
}

// Implements reports whether the type implements the interface with the
// given ID.
func (t *TypeRef) Implements(ifaceID string) bool {
	if t == nil {
		return false
	}

	return t.ID() == ifaceID || slices.Contains(t.Interfaces, ifaceID)
}

// Func returns the first function with one of the given names.
func (t *TypeRef) Func(names ...string) (FuncRef, bool) {
	for _, name := range names {
		for _, f := range t.Funcs {
			if f.Name == name {
				return f, true
			}
		}
	}

	return FuncRef{}, false
}

// PointerTo returns the pointer type of t.
func PointerTo(t *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindPointer, Elem: t}
}

// SliceOf returns the slice type with element t.
func SliceOf(t *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindSlice, Elem: t}
}

// returnsType reports whether id names t or a pointer to t.
func returnsType(id string, t *TypeRef) bool {
	return id == t.ID() || id == "*"+t.ID()
}
