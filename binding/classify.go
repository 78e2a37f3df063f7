package binding

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vitalvas/routekit/diag"
	"github.com/vitalvas/routekit/routepattern"
)

// Source is where a handler parameter's value comes from.
type Source uint8

const (
	SourceUnknown Source = iota
	SourceRoute
	SourceQuery
	SourceHeader
	SourceForm
	SourceJSONBody
	SourceService
	SourceBindAsync
	SourceSpecialType
	// SourceRouteOrQuery is decided per request: the route value when the
	// matched template declares the name, the query string otherwise.
	SourceRouteOrQuery
	// SourceJSONBodyOrService is decided at startup by checking whether the
	// type is a registered service.
	SourceJSONBodyOrService
)

var sourceNames = [...]string{
	SourceUnknown:           "Unknown",
	SourceRoute:             "Route",
	SourceQuery:             "Query",
	SourceHeader:            "Header",
	SourceForm:              "Form",
	SourceJSONBody:          "JsonBody",
	SourceService:           "Service",
	SourceBindAsync:         "BindAsync",
	SourceSpecialType:       "SpecialType",
	SourceRouteOrQuery:      "RouteOrQuery",
	SourceJSONBodyOrService: "JsonBodyOrService",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}

	return fmt.Sprintf("source(%d)", int(s))
}

// ParseSource converts a source name back to a Source. Matching ignores case.
func ParseSource(s string) (Source, error) {
	for i, name := range sourceNames {
		if strings.EqualFold(name, s) {
			return Source(i), nil
		}
	}

	return SourceUnknown, fmt.Errorf("binding: unknown source %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v

	return nil
}

// isTextSource reports whether values of the source arrive as strings.
func (s Source) isTextSource() bool {
	switch s {
	case SourceRoute, SourceQuery, SourceHeader, SourceForm:
		return true
	}

	return false
}

// Strategy is how a string value converts to the parameter's type.
type Strategy uint8

const (
	StrategyNone Strategy = iota
	// StrategyString assigns the value as-is.
	StrategyString
	// StrategyTextUnmarshaler calls UnmarshalText on a new value.
	StrategyTextUnmarshaler
	// StrategyFormatParse calls Parse(format, value).
	StrategyFormatParse
	// StrategyParse calls Parse(value) (T, error).
	StrategyParse
	// StrategyTryParse calls TryParse(value) (T, bool).
	StrategyTryParse
	// StrategyStrconv converts bool and numeric kinds with strconv.
	StrategyStrconv
	// StrategyEnum matches the value against the enum's constant names.
	StrategyEnum
	// StrategyURI calls url.Parse.
	StrategyURI
)

var strategyNames = [...]string{
	StrategyNone:            "none",
	StrategyString:          "string",
	StrategyTextUnmarshaler: "text-unmarshaler",
	StrategyFormatParse:     "format-parse",
	StrategyParse:           "parse",
	StrategyTryParse:        "try-parse",
	StrategyStrconv:         "strconv",
	StrategyEnum:            "enum",
	StrategyURI:             "uri",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}

	return fmt.Sprintf("strategy(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Attribute is an explicit binding-source annotation on a parameter.
type Attribute struct {
	Source Source `json:"source" yaml:"source"`
	// Name overrides the lookup name for route, query, header and form.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Parameter is a handler parameter as declared.
type Parameter struct {
	Name       string
	Type       *TypeRef
	Attributes []Attribute
	// HasDefault marks a parameter with a declared default value.
	HasDefault bool
	Span       diag.Span
}

// Endpoint is the handler's route declaration.
type Endpoint struct {
	Route   *routepattern.Tree
	Methods []string
}

// bodyBearing reports whether requests to the endpoint may carry a body.
// An endpoint without declared methods accepts any method.
func (e Endpoint) bodyBearing() bool {
	if len(e.Methods) == 0 {
		return true
	}

	for _, m := range e.Methods {
		switch strings.ToUpper(m) {
		case "POST", "PUT", "PATCH":
			return true
		}
	}

	return false
}

// EndpointParameter is the classification of one handler parameter.
type EndpointParameter struct {
	Name string `json:"name" yaml:"name"`
	// LookupName is the key the value is read under.
	LookupName       string   `json:"lookup_name" yaml:"lookup_name"`
	Type             *TypeRef `json:"-" yaml:"-"`
	TypeName         string   `json:"type" yaml:"type"`
	Source           Source   `json:"source" yaml:"source"`
	Optional         bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	IsArray          bool     `json:"is_array,omitempty" yaml:"is_array,omitempty"`
	IsRouteParameter bool     `json:"is_route_parameter,omitempty" yaml:"is_route_parameter,omitempty"`
	Strategy         Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Parser is the function StrategyFormatParse, StrategyParse and
	// StrategyTryParse call.
	Parser *FuncRef `json:"-" yaml:"-"`
	// Binder is the custom binder of SourceBindAsync parameters.
	Binder *FuncRef `json:"-" yaml:"-"`
	// Access is the expression producing a SourceSpecialType value.
	Access      string            `json:"access,omitempty" yaml:"access,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func (ep *EndpointParameter) report(kind diag.Kind, span diag.Span, args ...any) {
	ep.Diagnostics = append(ep.Diagnostics, diag.New(kind, span, args...))
}

// Classify decides the binding source of a handler parameter. The first
// matching rule wins:
//
//  1. an explicit attribute;
//  2. a special framework type (request, response, context, body, ...);
//  3. a custom binder function on the type;
//  4. string, read from the route or the query string;
//  5. a body-bearing endpoint with a non-parsable type, read as JSON;
//  6. a parsable type, read from the route or the query string, or
//     otherwise the JSON body or a service.
//
// A nil wk selects the net/http table. Classify only reads its arguments
// and is safe for concurrent use.
func Classify(p Parameter, e Endpoint, wk *WellKnownTypes) EndpointParameter {
	if wk == nil {
		wk = defaultWellKnown()
	}

	ep := EndpointParameter{
		Name:       p.Name,
		LookupName: p.Name,
		Type:       p.Type,
	}

	if p.Type == nil {
		ep.report(diag.KindUnknownParameterType, p.Span, p.Name, "<nil>")
		return ep
	}
	ep.TypeName = p.Type.GoExpr()

	base := p.Type.Unwrap()
	ep.Optional = p.Type.IsNullable() || p.HasDefault
	elem := base
	if base.IsArray() {
		ep.IsArray = true
		elem = base.Elem.Unwrap()
	}

	// 1. Explicit attribute.
	if attr, ok := explicitAttribute(p.Attributes); ok {
		ep.Source = attr.Source
		if !attr.Source.isTextSource() {
			return ep
		}

		if attr.Name != "" {
			ep.LookupName = attr.Name
		}
		if attr.Source == SourceRoute {
			ep.IsRouteParameter = routeParameter(e.Route, ep.LookupName) != nil
		}

		strategy, parser, ok := probe(elem, wk)
		if !ok {
			ep.report(diag.KindParameterComplexTypeNotParsable, p.Span, p.Name, ep.TypeName, attr.Source)
			return ep
		}
		ep.Strategy, ep.Parser = strategy, parser
		checkOptionality(&ep, p, e)

		return ep
	}

	// 2. Special framework types, compared exactly.
	if _, entry, ok := wk.Special(p.Type); ok {
		ep.Source = SourceSpecialType
		ep.Access = entry.Access
		return ep
	}

	// 3. Custom binder.
	if binder, ok := findBinder(base, wk); ok {
		ep.Source = SourceBindAsync
		ep.Binder = &binder
		if binder.Receiver {
			ep.report(diag.KindCustomBinderMustBeStatic, p.Span, binder.Name, ep.TypeName)
		}
		if !binder.Exported {
			ep.report(diag.KindCustomBinderMustBePublic, p.Span, binder.Name, ep.TypeName)
		}
		return ep
	}

	// 4. Strings are ambiguous between route and query.
	if base.Kind == KindString && !ep.IsArray {
		ep.Source = SourceRouteOrQuery
		ep.Strategy = StrategyString
		ep.IsRouteParameter = routeParameter(e.Route, p.Name) != nil
		checkOptionality(&ep, p, e)
		return ep
	}

	strategy, parser, parsable := probe(elem, wk)

	// 5. Complex types on body-bearing endpoints.
	if !parsable && e.bodyBearing() {
		ep.Source = SourceJSONBody
		return ep
	}

	// 6. Parsable types come from the route or the query string.
	if parsable {
		ep.Source = SourceRouteOrQuery
		ep.Strategy, ep.Parser = strategy, parser
		ep.IsRouteParameter = routeParameter(e.Route, p.Name) != nil
		checkOptionality(&ep, p, e)
		return ep
	}

	ep.Source = SourceJSONBodyOrService

	return ep
}

func explicitAttribute(attrs []Attribute) (Attribute, bool) {
	for _, a := range attrs {
		if a.Source != SourceUnknown {
			return a, true
		}
	}

	return Attribute{}, false
}

func routeParameter(route *routepattern.Tree, name string) *routepattern.ParameterNode {
	if route == nil {
		return nil
	}

	return route.Parameter(name)
}

// checkOptionality reports a route parameter declared optional in the
// template that the handler requires.
func checkOptionality(ep *EndpointParameter, p Parameter, e Endpoint) {
	if !ep.IsRouteParameter || ep.Optional {
		return
	}

	if rp := routeParameter(e.Route, ep.LookupName); rp != nil && rp.Optional {
		ep.report(diag.KindMismatchedParameterOptionality, p.Span, p.Name)
	}
}

// findBinder looks for a function named Bind or Bind<Type> with one of the
// two binder shapes:
//
//	func BindT(ctx HTTPContext) (T, error)
//	func BindT(ctx HTTPContext, info ParameterInfo) (T, error)
//
// HTTPRequest stands in for HTTPContext when the table has none.
func findBinder(t *TypeRef, wk *WellKnownTypes) (FuncRef, bool) {
	contexts := []string{wk.ID(HTTPContext), wk.ID(HTTPRequest)}
	info := wk.ID(ParameterInfoType)

	for _, f := range t.Funcs {
		if f.Name != "Bind" && f.Name != "Bind"+t.Name {
			continue
		}
		if len(f.Params) < 1 || len(f.Params) > 2 || len(f.Results) != 2 {
			continue
		}
		if f.Params[0] == "" || (f.Params[0] != contexts[0] && f.Params[0] != contexts[1]) {
			continue
		}
		if len(f.Params) == 2 && (info == "" || strings.TrimPrefix(f.Params[1], "*") != info) {
			continue
		}
		if !returnsType(f.Results[0], t) || f.Results[1] != "error" {
			continue
		}

		return f, true
	}

	return FuncRef{}, false
}

// probe finds how to convert a string to t. It checks, in order: string,
// encoding.TextUnmarshaler, a format-aware Parse(format, value), a plain
// Parse(value) or TryParse(value), strconv scalars, enums and URLs.
func probe(t *TypeRef, wk *WellKnownTypes) (Strategy, *FuncRef, bool) {
	if t == nil {
		return StrategyNone, nil, false
	}

	if t.Kind == KindString && t.PkgPath == "" {
		return StrategyString, nil, true
	}

	if id := wk.ID(TextUnmarshaler); id != "" && t.Kind != KindInterface && t.Implements(id) {
		return StrategyTextUnmarshaler, nil, true
	}

	parseNames := []string{"Parse", "Parse" + t.Name}
	for _, f := range t.Funcs {
		if f.Receiver || !slices.Contains(parseNames, f.Name) || len(f.Results) != 2 || !returnsType(f.Results[0], t) {
			continue
		}
		if f.Results[1] == "error" && len(f.Params) == 2 && f.Params[0] == "string" && f.Params[1] == "string" {
			return StrategyFormatParse, &f, true
		}
	}
	for _, f := range t.Funcs {
		if f.Receiver || len(f.Params) != 1 || f.Params[0] != "string" || len(f.Results) != 2 || !returnsType(f.Results[0], t) {
			continue
		}
		switch {
		case slices.Contains(parseNames, f.Name) && f.Results[1] == "error":
			return StrategyParse, &f, true
		case (f.Name == "TryParse" || f.Name == "TryParse"+t.Name) && f.Results[1] == "bool":
			return StrategyTryParse, &f, true
		}
	}

	switch {
	case t.Kind == KindString:
		// Named string types convert directly.
		return StrategyString, nil, true
	case t.Kind.IsScalar():
		return StrategyStrconv, nil, true
	case t.Kind == KindEnum && len(t.EnumValues) > 0:
		return StrategyEnum, nil, true
	}

	if id := wk.ID(URI); id != "" && t.ID() == id {
		return StrategyURI, nil, true
	}

	return StrategyNone, nil, false
}
