package binding

import (
	"encoding"
	"go/token"
	"reflect"
	"strings"
)

// TextUnmarshalerID is the ID of encoding.TextUnmarshaler, the contract of
// values that parse themselves from text.
const TextUnmarshalerID = "encoding.TextUnmarshaler"

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// TypeOf describes a Go type for the classifier. Pointer and unnamed slice
// types are unwrapped into Elem; the exported method set of *T becomes
// Funcs, and encoding.TextUnmarshaler support is recorded in Interfaces.
// Package-level functions cannot be discovered by reflection; add them
// with Registry.AddFunc.
func TypeOf(t reflect.Type) *TypeRef {
	switch {
	case t.Kind() == reflect.Pointer:
		return PointerTo(TypeOf(t.Elem()))
	case t.Kind() == reflect.Slice && t.Name() == "":
		return SliceOf(TypeOf(t.Elem()))
	}

	ref := &TypeRef{
		PkgPath: t.PkgPath(),
		Name:    t.Name(),
		Kind:    kindOf(t),
	}

	if ref.Name == "" {
		// Unnamed composite types are identified by their spelling.
		ref.Name = t.String()
	} else if ref.PkgPath != "" {
		ref.PkgName, _, _ = strings.Cut(t.String(), ".")
	}

	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		ref.Bits = t.Bits()
	case reflect.Slice:
		ref.Elem = TypeOf(t.Elem())
	}

	if t.Kind() == reflect.Interface {
		return ref
	}

	pt := reflect.PointerTo(t)
	if pt.Implements(textUnmarshalerType) {
		ref.Interfaces = append(ref.Interfaces, TextUnmarshalerID)
	}

	for i := range pt.NumMethod() {
		m := pt.Method(i)
		f := FuncRef{Name: m.Name, Exported: m.IsExported(), Receiver: true}
		// In(0) is the receiver.
		for j := 1; j < m.Type.NumIn(); j++ {
			f.Params = append(f.Params, typeID(m.Type.In(j)))
		}
		for j := range m.Type.NumOut() {
			f.Results = append(f.Results, typeID(m.Type.Out(j)))
		}
		ref.Funcs = append(ref.Funcs, f)
	}

	return ref
}

// FuncOf describes a package-level function value for Registry.AddFunc.
func FuncOf(name string, fn any) FuncRef {
	t := reflect.TypeOf(fn)
	f := FuncRef{Name: name, Exported: token.IsExported(name)}
	if t == nil || t.Kind() != reflect.Func {
		return f
	}

	for i := range t.NumIn() {
		f.Params = append(f.Params, typeID(t.In(i)))
	}
	for i := range t.NumOut() {
		f.Results = append(f.Results, typeID(t.Out(i)))
	}

	return f
}

func typeID(t reflect.Type) string {
	switch {
	case t.Kind() == reflect.Pointer:
		return "*" + typeID(t.Elem())
	case t.Kind() == reflect.Slice && t.Name() == "":
		return "[]" + typeID(t.Elem())
	case t.Name() == "":
		return t.String()
	case t.PkgPath() == "":
		return t.Name()
	}

	return t.PkgPath() + "." + t.Name()
}

func kindOf(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindUint
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.Struct:
		return KindStruct
	case reflect.Interface:
		return KindInterface
	case reflect.Slice:
		return KindSlice
	case reflect.Pointer:
		return KindPointer
	case reflect.Map:
		return KindMap
	case reflect.Func:
		return KindFunc
	default:
		return KindOther
	}
}
