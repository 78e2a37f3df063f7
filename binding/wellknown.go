package binding

import (
	"context"
	"crypto/tls"
	"encoding"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sync"
)

// WellKnown identifies a framework type the classifier treats specially.
type WellKnown uint8

const (
	HTTPContext WellKnown = iota
	HTTPRequest
	HTTPResponse
	RequestBody
	RequestBodyPipe
	CancellationToken
	Principal
	TextUnmarshaler
	URI
	ParameterInfoType
)

var wellKnownNames = [...]string{
	HTTPContext:       "HTTPContext",
	HTTPRequest:       "HTTPRequest",
	HTTPResponse:      "HTTPResponse",
	RequestBody:       "RequestBody",
	RequestBodyPipe:   "RequestBodyPipe",
	CancellationToken: "CancellationToken",
	Principal:         "Principal",
	TextUnmarshaler:   "TextUnmarshaler",
	URI:               "URI",
	ParameterInfoType: "ParameterInfo",
}

func (w WellKnown) String() string {
	if int(w) < len(wellKnownNames) {
		return wellKnownNames[w]
	}

	return fmt.Sprintf("wellknown(%d)", int(w))
}

// ParseWellKnown converts a name back to a WellKnown.
func ParseWellKnown(s string) (WellKnown, error) {
	for i, name := range wellKnownNames {
		if name == s {
			return WellKnown(i), nil
		}
	}

	return 0, fmt.Errorf("binding: unknown well-known type %q", s)
}

// specialTypes are matched, in order, against handler parameter types.
var specialTypes = []WellKnown{
	HTTPContext,
	HTTPRequest,
	HTTPResponse,
	RequestBody,
	RequestBodyPipe,
	CancellationToken,
	Principal,
}

// Entry is a resolved well-known type. Access is the Go expression that
// produces a special-type value inside a handler with (w, r) in scope.
type Entry struct {
	Type   *TypeRef
	Access string
}

// ParameterInfo is passed to two-argument binders. It describes the
// handler parameter being bound.
type ParameterInfo struct {
	Name       string
	LookupName string
	Source     Source
}

// WellKnownTypes maps well-known identifiers to the program's types. It is
// populated once per analysis and only read by Classify.
type WellKnownTypes struct {
	entries map[WellKnown]Entry
}

// NewWellKnownTypes returns an empty table.
func NewWellKnownTypes() *WellKnownTypes {
	return &WellKnownTypes{entries: make(map[WellKnown]Entry)}
}

// DefaultWellKnownTypes returns the net/http table. net/http has no
// request context object, so HTTPContext is left unset; frameworks that
// have one register it with Set.
func DefaultWellKnownTypes() *WellKnownTypes {
	wk := NewWellKnownTypes()

	wk.Set(HTTPRequest, Entry{Type: TypeOf(reflect.TypeFor[*http.Request]()), Access: "r"})
	wk.Set(HTTPResponse, Entry{Type: TypeOf(reflect.TypeFor[http.ResponseWriter]()), Access: "w"})
	wk.Set(RequestBody, Entry{Type: TypeOf(reflect.TypeFor[io.ReadCloser]()), Access: "r.Body"})
	wk.Set(RequestBodyPipe, Entry{Type: TypeOf(reflect.TypeFor[io.Reader]()), Access: "r.Body"})
	wk.Set(CancellationToken, Entry{Type: TypeOf(reflect.TypeFor[context.Context]()), Access: "r.Context()"})
	wk.Set(Principal, Entry{Type: TypeOf(reflect.TypeFor[*tls.ConnectionState]()), Access: "r.TLS"})
	wk.Set(TextUnmarshaler, Entry{Type: TypeOf(reflect.TypeFor[encoding.TextUnmarshaler]())})
	wk.Set(URI, Entry{Type: TypeOf(reflect.TypeFor[url.URL]())})
	wk.Set(ParameterInfoType, Entry{Type: TypeOf(reflect.TypeFor[ParameterInfo]())})

	return wk
}

// defaultWellKnown is the shared read-only net/http table used when no
// table is given.
var defaultWellKnown = sync.OnceValue(DefaultWellKnownTypes)

// Set registers or replaces an entry.
func (wk *WellKnownTypes) Set(w WellKnown, e Entry) {
	wk.entries[w] = e
}

// Get returns the entry for w. A nil table has no entries.
func (wk *WellKnownTypes) Get(w WellKnown) (Entry, bool) {
	if wk == nil {
		return Entry{}, false
	}

	e, ok := wk.entries[w]
	return e, ok && e.Type != nil
}

// ID returns the type ID registered for w, or "" when unset.
func (wk *WellKnownTypes) ID(w WellKnown) string {
	if e, ok := wk.Get(w); ok {
		return e.Type.ID()
	}

	return ""
}

// Special returns the special type t is exactly equal to.
func (wk *WellKnownTypes) Special(t *TypeRef) (WellKnown, Entry, bool) {
	id := t.ID()
	for _, w := range specialTypes {
		if e, ok := wk.Get(w); ok && e.Type.ID() == id {
			return w, e, true
		}
	}

	return 0, Entry{}, false
}
