package routepattern

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// ErrMissingValue is returned by Matcher.Build when a required parameter has
// neither a value nor a default.
var ErrMissingValue = errors.New("routepattern: missing route value")

// compiled holds every expression compiled by this package, keyed by source.
// Its size is bounded by the distinct templates and regex policies seen.
var compiled sync.Map

func compileRegexp(pattern string) (*regexp.Regexp, error) {
	if v, ok := compiled.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := compiled.LoadOrStore(pattern, re)

	return actual.(*regexp.Regexp), nil
}

// Matcher matches request paths against a compiled tree.
type Matcher struct {
	tree     *Tree
	re       *regexp.Regexp
	params   []*ParameterNode // capture group order
	policies map[*ParameterNode][]valueMatcher
}

// Compile builds a Matcher for tree. The tree should be free of error
// diagnostics; Compile fails on parameters without a name and on policies
// that ResolvePolicy rejects.
func Compile(tree *Tree) (*Matcher, error) {
	m := &Matcher{tree: tree, policies: make(map[*ParameterNode][]valueMatcher)}

	for _, param := range tree.Parameters() {
		if param.Name == "" {
			return nil, fmt.Errorf("routepattern: missing name in %q from %q",
				param.span.Text(tree.Text), tree.Text)
		}

		for _, policy := range param.Policies {
			vm, err := ResolvePolicy(policy)
			if err != nil {
				return nil, fmt.Errorf("routepattern: parameter %q: %w", param.Name, err)
			}
			m.policies[param] = append(m.policies[param], vm)
		}
	}

	segments := routeSegments(tree)
	var pattern strings.Builder
	pattern.WriteString("(?i)^")

	// Trailing segments that may be left out of the path nest as optional
	// groups: "/a/{b?}/{c?}" matches "a", "a/x" and "a/x/y".
	tail := len(segments)
	for tail > 0 && omittable(segments[tail-1]) {
		tail--
	}

	for i, seg := range segments {
		if i >= tail {
			pattern.WriteString("(?:")
		}
		if i > 0 {
			pattern.WriteByte('/')
		}
		m.writeSegment(&pattern, seg)
	}
	for i := tail; i < len(segments); i++ {
		pattern.WriteString(")?")
	}
	pattern.WriteString("/?$")

	re, err := compileRegexp(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("routepattern: compile %q: %w", tree.Text, err)
	}
	m.re = re

	return m, nil
}

// routeSegments returns the segments that take part in matching. An
// app-relative "~/" prefix does not.
func routeSegments(tree *Tree) []*SegmentNode {
	segments := tree.Segments()
	if len(segments) > 0 && strings.HasPrefix(tree.Text, "~/") {
		return segments[1:]
	}

	return segments
}

// omittable reports whether a segment consists of one parameter that may be
// absent from the path.
func omittable(seg *SegmentNode) bool {
	if !seg.IsSimple() {
		return false
	}
	p, ok := seg.children[0].(*ParameterNode)

	return ok && (p.Optional || p.HasDefault || p.IsCatchAll())
}

func (m *Matcher) writeSegment(b *strings.Builder, seg *SegmentNode) {
	children := seg.children
	for i := 0; i < len(children); i++ {
		last := i == len(children)-1
		switch c := children[i].(type) {
		case *LiteralNode:
			b.WriteString(regexp.QuoteMeta(c.Value))
		case *ReplacementNode:
			b.WriteString(regexp.QuoteMeta(c.Value))
		case *OptionalSeparatorNode:
			if i+1 < len(children) {
				if p, ok := children[i+1].(*ParameterNode); ok {
					m.params = append(m.params, p)
					b.WriteString(`(?:\.([^/.]+))?`)
					i++
					continue
				}
			}
			b.WriteString(`\.`)
		case *ParameterNode:
			m.params = append(m.params, c)
			switch {
			case c.IsCatchAll():
				b.WriteString("(.*)")
			case last:
				b.WriteString("([^/]+)")
			default:
				b.WriteString("([^/]+?)")
			}
		default:
			panic(fmt.Sprintf("routepattern: unexpected segment child %T", c))
		}
	}
}

// Template returns the tree the matcher was compiled from.
func (m *Matcher) Template() *Tree {
	return m.tree
}

// String returns the compiled path expression.
func (m *Matcher) String() string {
	return m.re.String()
}

// Match reports whether path matches and returns the route values keyed by
// parameter name. Parameters absent from path take their default value, or
// are left out of the map when they have none. Captured values must satisfy
// every policy of their parameter.
func (m *Matcher) Match(path string) (map[string]string, bool) {
	path = strings.TrimPrefix(path, "/")

	idx := m.re.FindStringSubmatchIndex(path)
	if idx == nil {
		return nil, false
	}

	values := make(map[string]string, len(m.params))
	for i, param := range m.params {
		start, end := idx[2*i+2], idx[2*i+3]
		if start < 0 || start == end {
			if param.HasDefault {
				values[param.Name] = param.Default
			}
			continue
		}

		v := path[start:end]
		for _, vm := range m.policies[param] {
			if !vm.MatchString(v) {
				return nil, false
			}
		}
		values[param.Name] = v
	}

	return values, true
}

// Build expands the template with values, the reverse of Match. Missing
// values fall back to defaults; missing optional and catch-all values drop
// their optional separator or trailing segment. Values are path-escaped,
// except that a '**' catch-all keeps its slashes.
func (m *Matcher) Build(values map[string]string) (string, error) {
	segments := routeSegments(m.tree)
	out := make([]string, 0, len(segments))

	for _, seg := range segments {
		var sb strings.Builder
		children := seg.children
		for i := 0; i < len(children); i++ {
			switch c := children[i].(type) {
			case *LiteralNode:
				sb.WriteString(c.Value)
			case *ReplacementNode:
				sb.WriteString(c.Value)
			case *OptionalSeparatorNode:
				if i+1 < len(children) {
					if p, ok := children[i+1].(*ParameterNode); ok {
						if _, ok := values[p.Name]; !ok {
							i++
							continue
						}
					}
				}
				sb.WriteByte('.')
			case *ParameterNode:
				v, err := m.value(c, values)
				if err != nil {
					return "", err
				}
				sb.WriteString(v)
			}
		}
		out = append(out, sb.String())
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	path := strings.Join(out, "/")
	if strings.HasPrefix(m.tree.Text, "/") || strings.HasPrefix(m.tree.Text, "~/") {
		path = "/" + path
	}

	return path, nil
}

func (m *Matcher) value(param *ParameterNode, values map[string]string) (string, error) {
	v, ok := values[param.Name]
	if !ok {
		switch {
		case param.HasDefault:
			v = param.Default
		case param.Optional || param.IsCatchAll():
			return "", nil
		default:
			return "", fmt.Errorf("%w %q", ErrMissingValue, param.Name)
		}
	}

	for _, vm := range m.policies[param] {
		if !vm.MatchString(v) {
			return "", fmt.Errorf("routepattern: value %q of parameter %q doesn't match, expected %q",
				v, param.Name, vm.String())
		}
	}

	if param.CatchAll == CatchAllRaw {
		parts := strings.Split(v, "/")
		for i, s := range parts {
			parts[i] = url.PathEscape(s)
		}
		return strings.Join(parts, "/"), nil
	}

	return url.PathEscape(v), nil
}
