package routepattern

import (
	"fmt"
	"strings"
)

// Tree is a parsed route template. It is immutable once returned by Parse.
type Tree struct {
	// Text is the template the tree was parsed from.
	Text string

	parts  []Part
	params []*ParameterNode
}

// Parts returns the separators and segments in source order.
func (t *Tree) Parts() []Part {
	return t.parts
}

// Segments returns the segment parts, skipping separators.
func (t *Tree) Segments() []*SegmentNode {
	out := make([]*SegmentNode, 0, len(t.parts))
	for _, p := range t.parts {
		if seg, ok := p.(*SegmentNode); ok {
			out = append(out, seg)
		}
	}

	return out
}

// Parameters returns every parameter in declaration order.
func (t *Tree) Parameters() []*ParameterNode {
	return t.params
}

// Parameter returns the first parameter whose name matches name,
// ignoring case, or nil.
func (t *Tree) Parameter(name string) *ParameterNode {
	for _, p := range t.params {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}

	return nil
}

// ParameterNames returns the set of parameter names, lower-cased.
func (t *Tree) ParameterNames() map[string]bool {
	names := make(map[string]bool, len(t.params))
	for _, p := range t.params {
		if p.Name != "" {
			names[strings.ToLower(p.Name)] = true
		}
	}

	return names
}

// String reconstructs the template from the tree's nodes. For every input,
// Parse(s).String() == s.
func (t *Tree) String() string {
	var sb strings.Builder
	sb.Grow(len(t.Text))

	for _, part := range t.parts {
		switch n := part.(type) {
		case *SeparatorNode:
			sb.WriteByte('/')
		case *SegmentNode:
			for _, child := range n.children {
				switch c := child.(type) {
				case *LiteralNode:
					sb.WriteString(c.Value)
				case *ReplacementNode:
					sb.WriteString(c.Raw)
				case *OptionalSeparatorNode:
					sb.WriteByte('.')
				case *ParameterNode:
					sb.WriteString(c.span.Text(t.Text))
				default:
					panic(fmt.Sprintf("routepattern: unexpected segment child %T", child))
				}
			}
		default:
			panic(fmt.Sprintf("routepattern: unexpected part %T", part))
		}
	}

	return sb.String()
}

// Dump renders the tree as an indented outline, one node per line.
func (t *Tree) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tree %q\n", t.Text)

	for _, part := range t.parts {
		switch n := part.(type) {
		case *SeparatorNode:
			fmt.Fprintf(&sb, "  Separator %s\n", n.span)
		case *SegmentNode:
			fmt.Fprintf(&sb, "  Segment %s\n", n.span)
			for _, child := range n.children {
				dumpChild(&sb, child)
			}
		}
	}

	return sb.String()
}

func dumpChild(sb *strings.Builder, child SegmentPart) {
	switch c := child.(type) {
	case *LiteralNode:
		fmt.Fprintf(sb, "    Literal %q %s\n", c.Value, c.span)
	case *ReplacementNode:
		fmt.Fprintf(sb, "    Replacement %q raw=%q %s\n", c.Value, c.Raw, c.span)
	case *OptionalSeparatorNode:
		fmt.Fprintf(sb, "    OptionalSeparator %s\n", c.span)
	case *ParameterNode:
		fmt.Fprintf(sb, "    Parameter %q %s", c.Name, c.span)
		if c.IsCatchAll() {
			fmt.Fprintf(sb, " catchall=%s", c.CatchAll)
		}
		if c.Optional {
			sb.WriteString(" optional")
		}
		if c.HasDefault {
			fmt.Fprintf(sb, " default=%q", c.Default)
		}
		sb.WriteByte('\n')
		for _, p := range c.Policies {
			fmt.Fprintf(sb, "      Policy %q %s\n", p.Text(), p.span)
		}
	}
}
