package diag

import (
	"fmt"
	"sort"
)

// Kind identifies a diagnostic category.
type Kind string

const (
	// Route template syntax.
	KindUnterminatedParameter    Kind = "UnterminatedParameter"
	KindEmptyParameterName       Kind = "EmptyParameterName"
	KindInvalidParameterName     Kind = "InvalidParameterName"
	KindDuplicateParameterName   Kind = "DuplicateParameterName"
	KindInvalidLiteral           Kind = "InvalidLiteral"
	KindUnescapedBrace           Kind = "UnescapedBrace"
	KindConsecutiveParameters    Kind = "ConsecutiveParameters"
	KindCatchAllNotLast          Kind = "CatchAllNotLast"
	KindCatchAllOptional         Kind = "CatchAllOptional"
	KindCatchAllInComplexSegment Kind = "CatchAllInComplexSegment"
	KindInvalidOptionalParameter Kind = "InvalidOptionalParameter"
	KindOptionalParameterNotLast Kind = "OptionalParameterNotLast"
	KindOptionalWithDefault      Kind = "OptionalWithDefault"
	KindInvalidTilde             Kind = "InvalidTilde"

	// Route policies.
	KindUnknownPolicy         Kind = "UnknownPolicy"
	KindDefaultViolatesPolicy Kind = "DefaultViolatesPolicy"

	// Route collisions.
	KindAmbiguousRoute Kind = "AmbiguousRoute"

	// Handler parameter binding.
	KindParameterComplexTypeNotParsable Kind = "ParameterComplexTypeNotParsable"
	KindMismatchedParameterOptionality  Kind = "MismatchedParameterOptionality"
	KindCustomBinderMustBePublic        Kind = "CustomBinderMustBePublic"
	KindCustomBinderMustBeStatic        Kind = "CustomBinderMustBeStatic"
	KindUnknownParameterType            Kind = "UnknownParameterType"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts a severity name back to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}

	return 0, fmt.Errorf("diag: unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v

	return nil
}

type descriptor struct {
	severity Severity
	format   string
}

var descriptors = map[Kind]descriptor{
	KindUnterminatedParameter: {SeverityError,
		"There is an incomplete parameter in the route template. Check that each '{' character has a matching '}' character."},
	KindEmptyParameterName: {SeverityError,
		"The route parameter name is empty. Route parameter names must be non-empty."},
	KindInvalidParameterName: {SeverityError,
		"The route parameter name '%s' is invalid. Route parameter names must be non-empty and cannot contain these characters: '{', '}', '/'. " +
			"The '?' character marks a parameter as optional, and can occur only at the end of the parameter. " +
			"The '*' character marks a parameter as catch-all, and can occur only at the start of the parameter."},
	KindDuplicateParameterName: {SeverityError,
		"The route parameter name '%s' appears more than one time in the route template."},
	KindInvalidLiteral: {SeverityError,
		"The literal section '%s' is invalid. Literal sections cannot contain the '?' character."},
	KindUnescapedBrace: {SeverityError,
		"In a route parameter, '{' and '}' must be escaped with '{{' and '}}'."},
	KindConsecutiveParameters: {SeverityError,
		"A path segment cannot contain two consecutive parameters. They must be separated by a '/' or by a literal string."},
	KindCatchAllNotLast: {SeverityError,
		"A catch-all parameter can only appear as the last segment of the route template."},
	KindCatchAllOptional: {SeverityError,
		"A catch-all parameter cannot be marked optional."},
	KindCatchAllInComplexSegment: {SeverityError,
		"A path segment that contains more than one section, such as a literal section or a parameter, cannot contain a catch-all parameter."},
	KindInvalidOptionalParameter: {SeverityError,
		"In the segment '%s', the optional parameter '%s' is preceded by an invalid segment '%s'. Only a period (.) can precede an optional parameter."},
	KindOptionalParameterNotLast: {SeverityError,
		"An optional parameter must be at the end of the segment. In the segment '%s', optional parameter '%s' is followed by '%s'."},
	KindOptionalWithDefault: {SeverityError,
		"An optional parameter cannot have default value."},
	KindInvalidTilde: {SeverityError,
		"The route template cannot start with a '~' character unless followed by a '/'."},
	KindUnknownPolicy: {SeverityWarning,
		"The route parameter '%s' uses the unknown policy '%s'."},
	KindDefaultViolatesPolicy: {SeverityError,
		"The default value '%s' of route parameter '%s' does not satisfy the policy '%s'."},
	KindAmbiguousRoute: {SeverityWarning,
		"Different endpoints with the same route '%s' and HTTP methods cannot be matched unambiguously."},
	KindParameterComplexTypeNotParsable: {SeverityError,
		"Parameter '%s' of type %s should define a parse function or implement encoding.TextUnmarshaler to be bound from %s."},
	KindMismatchedParameterOptionality: {SeverityWarning,
		"'%s' argument should be annotated as optional or nullable to match route parameter."},
	KindCustomBinderMustBePublic: {SeverityError,
		"The binder '%s' on type %s must be exported."},
	KindCustomBinderMustBeStatic: {SeverityError,
		"The binder '%s' on type %s must be a package-level function, not a method."},
	KindUnknownParameterType: {SeverityError,
		"Parameter '%s' has unknown type %s."},
}

// DefaultSeverity returns the severity a kind is reported with unless
// overridden by configuration.
func (k Kind) DefaultSeverity() Severity {
	if d, ok := descriptors[k]; ok {
		return d.severity
	}

	return SeverityError
}

// Known reports whether k is a registered diagnostic kind.
func (k Kind) Known() bool {
	_, ok := descriptors[k]
	return ok
}

// Span is a half-open byte range [Start, End) into the analysed text.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Text returns the slice of src covered by the span, clamped to src.
func (s Span) Text(src string) string {
	start, end := max(s.Start, 0), min(s.End, len(src))
	if start >= end {
		return ""
	}

	return src[start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("[%d..%d)", s.Start, s.End)
}

// Diagnostic is a single finding anchored at a span.
type Diagnostic struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
	Span     Span     `json:"span" yaml:"span"`
	Message  string   `json:"message" yaml:"message"`
	Args     []any    `json:"args,omitempty" yaml:"args,omitempty"`
}

// New builds a diagnostic of the given kind, formatting its message
// template with args.
func New(kind Kind, span Span, args ...any) Diagnostic {
	d, ok := descriptors[kind]
	msg := string(kind)
	if ok {
		msg = d.format
		if len(args) > 0 {
			msg = fmt.Sprintf(d.format, args...)
		}
	}

	return Diagnostic{
		Kind:     kind,
		Severity: kind.DefaultSeverity(),
		Span:     span,
		Message:  msg,
		Args:     args,
	}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", d.Span, d.Severity, d.Kind, d.Message)
}

// Sort orders diagnostics by position, then kind. The sort is stable so
// diagnostics at the same position keep their emission order.
func Sort(list []Diagnostic) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Span.Start != list[j].Span.Start {
			return list[i].Span.Start < list[j].Span.Start
		}
		if list[i].Span.End != list[j].Span.End {
			return list[i].Span.End < list[j].Span.End
		}
		return list[i].Kind < list[j].Kind
	})
}

// HasErrors reports whether any diagnostic in list has error severity.
func HasErrors(list []Diagnostic) bool {
	for _, d := range list {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

// Filter returns the diagnostics of the given kind.
func Filter(list []Diagnostic, kind Kind) []Diagnostic {
	var out []Diagnostic
	for _, d := range list {
		if d.Kind == kind {
			out = append(out, d)
		}
	}

	return out
}
