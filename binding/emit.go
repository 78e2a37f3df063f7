package binding

import (
	"fmt"
	"strings"
)

// failStatement marks a request whose parameters could not be bound. The
// generated handler answers such requests with 400 Bad Request.
const failStatement = "wasParamCheckFailure = true"

// EmitParse returns Go statements that convert the string expression input
// into the variable output according to the parameter's strategy. For
// arrays, input must be a []string expression.
//
// Empty input leaves an optional parameter at its zero value and is
// skipped for array elements; for any other parameter it is a bind
// failure, as is a value that does not parse. Parameters without a parse
// strategy produce no code.
func EmitParse(p EndpointParameter, input, output string) string {
	if p.Strategy == StrategyNone || p.Type == nil {
		return ""
	}

	t := p.Type.Unwrap()
	if p.IsArray {
		t = t.Elem.Unwrap()
	}

	e := &emitter{}
	conv := converter{p: p, t: t, output: output}

	switch {
	case p.IsArray:
		e.open("for _, item := range %s", input)
		e.open(`if item == ""`)
		e.line("continue")
		e.close()
		conv.emit(e, "item")
		e.close()
	case p.Optional:
		e.open(`if %s != ""`, input)
		conv.emit(e, input)
		e.close()
	default:
		e.open(`if %s == ""`, input)
		e.line(failStatement)
		e.orElse()
		conv.emit(e, input)
		e.close()
	}

	return e.String()
}

type emitter struct {
	sb    strings.Builder
	depth int
}

func (e *emitter) line(format string, args ...any) {
	e.sb.WriteString(strings.Repeat("\t", e.depth))
	fmt.Fprintf(&e.sb, format, args...)
	e.sb.WriteByte('\n')
}

func (e *emitter) open(format string, args ...any) {
	e.line(format+" {", args...)
	e.depth++
}

func (e *emitter) orElse() {
	e.depth--
	e.line("} else {")
	e.depth++
}

func (e *emitter) close() {
	e.depth--
	e.line("}")
}

func (e *emitter) String() string {
	return e.sb.String()
}

// converter emits the conversion of one string value.
type converter struct {
	p      EndpointParameter
	t      *TypeRef
	output string
}

// assign stores a converted value of type t into the output variable.
func (c converter) assign(e *emitter, value string) {
	switch {
	case c.p.IsArray:
		e.line("%s = append(%s, %s)", c.output, c.output, value)
	case c.p.Type.IsNullable():
		e.line("parsed := %s", value)
		e.line("%s = &parsed", c.output)
	default:
		e.line("%s = %s", c.output, value)
	}
}

// checked emits "if <head>; <cond> { fail } else { assign(value) }".
func (c converter) checked(e *emitter, head, cond, value string) {
	e.open("if %s; %s", head, cond)
	e.line(failStatement)
	e.orElse()
	c.assign(e, value)
	e.close()
}

func (c converter) emit(e *emitter, in string) {
	t := c.t

	switch c.p.Strategy {
	case StrategyString:
		if t.PkgPath != "" {
			c.assign(e, fmt.Sprintf("%s(%s)", t.GoExpr(), in))
			return
		}
		c.assign(e, in)

	case StrategyTextUnmarshaler:
		e.line("var v %s", t.GoExpr())
		c.checked(e, fmt.Sprintf("err := v.UnmarshalText([]byte(%s))", in), "err != nil", "v")

	case StrategyFormatParse:
		c.checked(e,
			fmt.Sprintf("v, err := %s(%q, %s)", t.qualify(c.p.Parser.Name), t.DefaultFormat, in),
			"err != nil", c.deref())

	case StrategyParse:
		c.checked(e, fmt.Sprintf("v, err := %s(%s)", t.qualify(c.p.Parser.Name), in), "err != nil", c.deref())

	case StrategyTryParse:
		c.checked(e, fmt.Sprintf("v, ok := %s(%s)", t.qualify(c.p.Parser.Name), in), "!ok", c.deref())

	case StrategyStrconv:
		c.checked(e, "v, err := "+strconvCall(t, in), "err != nil", c.convert(t, "v"))

	case StrategyEnum:
		e.line("switch %s {", in)
		for _, name := range t.EnumValues {
			e.line("case %q:", name)
			e.depth++
			c.assign(e, t.qualify(name))
			e.depth--
		}
		e.line("default:")
		e.depth++
		e.line(failStatement)
		e.depth--
		e.line("}")

	case StrategyURI:
		c.checked(e, fmt.Sprintf("v, err := url.Parse(%s)", in), "err != nil", "*v")
	}
}

// deref returns the expression for the parse result v as a value of t.
func (c converter) deref() string {
	if c.p.Parser != nil && len(c.p.Parser.Results) > 0 && strings.HasPrefix(c.p.Parser.Results[0], "*") {
		return "*v"
	}

	return "v"
}

// convert wraps v, the strconv result, in a conversion to t unless it
// already has that type.
func (c converter) convert(t *TypeRef, v string) string {
	switch t.ID() {
	case "bool", "int64", "uint64", "float64":
		return v
	}

	return fmt.Sprintf("%s(%s)", t.GoExpr(), v)
}

func strconvCall(t *TypeRef, in string) string {
	switch t.Kind {
	case KindBool:
		return fmt.Sprintf("strconv.ParseBool(%s)", in)
	case KindInt:
		return fmt.Sprintf("strconv.ParseInt(%s, 10, %d)", in, t.Bits)
	case KindUint:
		return fmt.Sprintf("strconv.ParseUint(%s, 10, %d)", in, t.Bits)
	default:
		bits := t.Bits
		if bits == 0 {
			bits = 64
		}
		return fmt.Sprintf("strconv.ParseFloat(%s, %d)", in, bits)
	}
}
