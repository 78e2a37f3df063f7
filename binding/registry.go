package binding

import (
	"context"
	"crypto/tls"
	"encoding"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownType is returned by Registry.Resolve for unregistered names.
var ErrUnknownType = errors.New("binding: unknown type")

// Registry resolves type expressions such as "int", "*time.Time",
// "[]string" or "github.com/google/uuid.UUID" to TypeRefs.
type Registry struct {
	byID    map[string]*TypeRef
	byShort map[string]*TypeRef
}

var predeclared = []struct {
	name string
	kind Kind
	bits int
}{
	{"string", KindString, 0},
	{"bool", KindBool, 0},
	{"int", KindInt, 0},
	{"int8", KindInt, 8},
	{"int16", KindInt, 16},
	{"int32", KindInt, 32},
	{"rune", KindInt, 32},
	{"int64", KindInt, 64},
	{"uint", KindUint, 0},
	{"uint8", KindUint, 8},
	{"byte", KindUint, 8},
	{"uint16", KindUint, 16},
	{"uint32", KindUint, 32},
	{"uint64", KindUint, 64},
	{"uintptr", KindUint, 0},
	{"float32", KindFloat, 32},
	{"float64", KindFloat, 64},
	{"error", KindInterface, 0},
	{"any", KindInterface, 0},
}

// NewRegistry returns a registry preloaded with the predeclared types and
// the common standard library and uuid types handlers declare.
func NewRegistry() *Registry {
	r := &Registry{
		byID:    make(map[string]*TypeRef),
		byShort: make(map[string]*TypeRef),
	}

	for _, p := range predeclared {
		r.Register(&TypeRef{Name: p.name, Kind: p.kind, Bits: p.bits})
	}

	for _, t := range []reflect.Type{
		reflect.TypeFor[time.Time](),
		reflect.TypeFor[time.Duration](),
		reflect.TypeFor[url.URL](),
		reflect.TypeFor[netip.Addr](),
		reflect.TypeFor[netip.Prefix](),
		reflect.TypeFor[uuid.UUID](),
		reflect.TypeFor[http.Request](),
		reflect.TypeFor[http.ResponseWriter](),
		reflect.TypeFor[http.Header](),
		reflect.TypeFor[context.Context](),
		reflect.TypeFor[io.Reader](),
		reflect.TypeFor[io.ReadCloser](),
		reflect.TypeFor[tls.ConnectionState](),
		reflect.TypeFor[encoding.TextUnmarshaler](),
		reflect.TypeFor[ParameterInfo](),
	} {
		r.Register(TypeOf(t))
	}

	// Package-level parse functions reflection cannot see.
	r.AddFunc("time.Duration", FuncOf("ParseDuration", time.ParseDuration))
	r.AddFunc("time.Time", FuncOf("Parse", time.Parse))
	r.AddFunc("github.com/google/uuid.UUID", FuncOf("Parse", uuid.Parse))
	r.AddFunc("net/netip.Addr", FuncOf("ParseAddr", netip.ParseAddr))
	r.AddFunc("net/netip.Prefix", FuncOf("ParsePrefix", netip.ParsePrefix))

	if t, ok := r.byID["time.Time"]; ok {
		t.DefaultFormat = time.RFC3339
	}

	return r
}

// Register adds t under its ID and under "pkgname.Name". A later
// registration with the same ID replaces the earlier one.
func (r *Registry) Register(t *TypeRef) {
	r.byID[t.ID()] = t
	if t.PkgName != "" {
		r.byShort[t.PkgName+"."+t.Name] = t
	}
}

// AddFunc attaches a package-level function to the registered type id.
func (r *Registry) AddFunc(id string, f FuncRef) {
	if t, ok := r.byID[id]; ok {
		t.Funcs = append(t.Funcs, f)
	}
}

// Lookup returns the type registered under id or "pkgname.Name".
func (r *Registry) Lookup(name string) (*TypeRef, bool) {
	if t, ok := r.byID[name]; ok {
		return t, true
	}
	t, ok := r.byShort[name]

	return t, ok
}

// Resolve parses a type expression. It understands the '*', '[]' and
// '...' prefixes; everything else must be a registered name.
func (r *Registry) Resolve(expr string) (*TypeRef, error) {
	expr = strings.TrimSpace(expr)

	switch {
	case strings.HasPrefix(expr, "*"):
		elem, err := r.Resolve(expr[1:])
		if err != nil {
			return nil, err
		}
		return PointerTo(elem), nil
	case strings.HasPrefix(expr, "[]"):
		elem, err := r.Resolve(expr[2:])
		if err != nil {
			return nil, err
		}
		return SliceOf(elem), nil
	case strings.HasPrefix(expr, "..."):
		elem, err := r.Resolve(expr[3:])
		if err != nil {
			return nil, err
		}
		return SliceOf(elem), nil
	}

	if t, ok := r.Lookup(expr); ok {
		return t, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnknownType, expr)
}

// MustResolve is like Resolve but panics on error.
func (r *Registry) MustResolve(expr string) *TypeRef {
	t, err := r.Resolve(expr)
	if err != nil {
		panic(err)
	}

	return t
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.byID)
}
