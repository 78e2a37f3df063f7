package routepattern

import (
	"strings"

	"github.com/vitalvas/routekit/diag"
)

// NodeKind enumerates the closed set of tree node variants.
type NodeKind uint8

const (
	KindSeparator NodeKind = iota
	KindSegment
	KindLiteral
	KindReplacement
	KindParameter
	KindOptionalSeparator
	KindPolicy
)

func (k NodeKind) String() string {
	switch k {
	case KindSeparator:
		return "Separator"
	case KindSegment:
		return "Segment"
	case KindLiteral:
		return "Literal"
	case KindReplacement:
		return "Replacement"
	case KindParameter:
		return "Parameter"
	case KindOptionalSeparator:
		return "OptionalSeparator"
	case KindPolicy:
		return "Policy"
	default:
		return "Unknown"
	}
}

// Node is implemented by every tree node.
type Node interface {
	Kind() NodeKind
	// Span is the node's source range within Tree.Text.
	Span() diag.Span
}

// Part is a top-level element of a tree: *SeparatorNode or *SegmentNode.
type Part interface {
	Node
	part()
}

// SegmentPart is a child of a segment: *LiteralNode, *ReplacementNode,
// *ParameterNode or *OptionalSeparatorNode.
type SegmentPart interface {
	Node
	segmentPart()
}

// SeparatorNode is a '/' between segments.
type SeparatorNode struct {
	span diag.Span
}

func (n *SeparatorNode) Kind() NodeKind  { return KindSeparator }
func (n *SeparatorNode) Span() diag.Span { return n.span }
func (n *SeparatorNode) part()           {}

// SegmentNode is one '/'-delimited path component.
type SegmentNode struct {
	span     diag.Span
	children []SegmentPart
}

func (n *SegmentNode) Kind() NodeKind  { return KindSegment }
func (n *SegmentNode) Span() diag.Span { return n.span }
func (n *SegmentNode) part()           {}

// Children returns the segment's parts in source order.
func (n *SegmentNode) Children() []SegmentPart {
	return n.children
}

// Parameters returns the parameters declared in the segment.
func (n *SegmentNode) Parameters() []*ParameterNode {
	var out []*ParameterNode
	for _, c := range n.children {
		if p, ok := c.(*ParameterNode); ok {
			out = append(out, p)
		}
	}

	return out
}

// IsSimple reports whether the segment holds exactly one child.
func (n *SegmentNode) IsSimple() bool {
	return len(n.children) == 1
}

// LiteralNode is fixed text without escapes.
type LiteralNode struct {
	span  diag.Span
	Value string
}

func (n *LiteralNode) Kind() NodeKind  { return KindLiteral }
func (n *LiteralNode) Span() diag.Span { return n.span }
func (n *LiteralNode) segmentPart()    {}

// ReplacementNode is literal text that contains escaped braces. Raw keeps
// the text as written ("{{id}}"), Value the unescaped form ("{id}").
type ReplacementNode struct {
	span  diag.Span
	Raw   string
	Value string
}

func (n *ReplacementNode) Kind() NodeKind  { return KindReplacement }
func (n *ReplacementNode) Span() diag.Span { return n.span }
func (n *ReplacementNode) segmentPart()    {}

// OptionalSeparatorNode is the '.' directly before a trailing optional
// parameter, as in "{name}.{ext?}".
type OptionalSeparatorNode struct {
	span diag.Span
}

func (n *OptionalSeparatorNode) Kind() NodeKind  { return KindOptionalSeparator }
func (n *OptionalSeparatorNode) Span() diag.Span { return n.span }
func (n *OptionalSeparatorNode) segmentPart()    {}

// CatchAll describes the catch-all prefix of a parameter.
type CatchAll uint8

const (
	// CatchAllNone marks a regular parameter.
	CatchAllNone CatchAll = iota
	// CatchAllEncoded is the '*' prefix; slashes in generated URLs are encoded.
	CatchAllEncoded
	// CatchAllRaw is the '**' prefix; slashes are kept as-is.
	CatchAllRaw
)

func (c CatchAll) String() string {
	switch c {
	case CatchAllEncoded:
		return "*"
	case CatchAllRaw:
		return "**"
	default:
		return ""
	}
}

// ParameterNode is a '{...}' placeholder.
type ParameterNode struct {
	span diag.Span

	// Name is the unescaped parameter name.
	Name     string
	NameSpan diag.Span
	CatchAll CatchAll
	Policies []*PolicyNode
	// Default is the unescaped default value; only meaningful if HasDefault.
	Default    string
	HasDefault bool
	Optional   bool
}

func (n *ParameterNode) Kind() NodeKind  { return KindParameter }
func (n *ParameterNode) Span() diag.Span { return n.span }
func (n *ParameterNode) segmentPart()    {}

// IsCatchAll reports whether the parameter has a '*' or '**' prefix.
func (n *ParameterNode) IsCatchAll() bool {
	return n.CatchAll != CatchAllNone
}

// PolicyTexts returns the raw text of each policy in declaration order.
func (n *ParameterNode) PolicyTexts() []string {
	out := make([]string, len(n.Policies))
	for i, p := range n.Policies {
		out[i] = p.Text()
	}

	return out
}

// PolicyFragment is a run of policy text. Escaped fragments are the
// contents of a '(...)' argument, without the parentheses.
type PolicyFragment struct {
	Span    diag.Span
	Text    string
	Escaped bool
}

// PolicyNode is one ':'-introduced parameter policy.
type PolicyNode struct {
	span      diag.Span
	Fragments []PolicyFragment
}

func (n *PolicyNode) Kind() NodeKind  { return KindPolicy }
func (n *PolicyNode) Span() diag.Span { return n.span }

// Text returns the policy as written without the leading ':'.
func (n *PolicyNode) Text() string {
	var sb strings.Builder
	for _, f := range n.Fragments {
		if f.Escaped {
			sb.WriteByte('(')
			sb.WriteString(f.Text)
			sb.WriteByte(')')
			continue
		}
		sb.WriteString(f.Text)
	}

	return sb.String()
}

// Name returns the policy name: the text before the first argument.
func (n *PolicyNode) Name() string {
	if len(n.Fragments) == 0 || n.Fragments[0].Escaped {
		return ""
	}

	return n.Fragments[0].Text
}

// Argument returns the unescaped content of the first '(...)' argument and
// whether one is present.
func (n *PolicyNode) Argument() (string, bool) {
	for _, f := range n.Fragments {
		if f.Escaped {
			return unescapeBraces(f.Text), true
		}
	}

	return "", false
}

// unescapeBraces collapses '{{' and '}}' into single braces.
func unescapeBraces(s string) string {
	if !strings.Contains(s, "{{") && !strings.Contains(s, "}}") {
		return s
	}

	return strings.NewReplacer("{{", "{", "}}", "}").Replace(s)
}
