package routecompare

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vitalvas/routekit/routepattern"
)

// Equivalent reports whether a and b match the same set of paths, ignoring
// parameter names. One leading and one trailing separator are ignored on
// both sides, so "/a", "a" and "a/" are equivalent.
func Equivalent(a, b *routepattern.Tree) bool {
	if a == b {
		return true
	}

	pa, pb := structuralParts(a), structuralParts(b)
	if len(pa) != len(pb) {
		return false
	}

	for i := range pa {
		if pa[i].Kind() != pb[i].Kind() {
			return false
		}

		switch x := pa[i].(type) {
		case *routepattern.SeparatorNode:
		case *routepattern.SegmentNode:
			if !equalSegment(x, pb[i].(*routepattern.SegmentNode)) {
				return false
			}
		default:
			panic(fmt.Sprintf("routecompare: unexpected part %T", x))
		}
	}

	return true
}

// structuralParts returns the tree's parts without a leading and a trailing
// separator.
func structuralParts(t *routepattern.Tree) []routepattern.Part {
	parts := t.Parts()
	if len(parts) > 0 && parts[0].Kind() == routepattern.KindSeparator {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1].Kind() == routepattern.KindSeparator {
		parts = parts[:len(parts)-1]
	}

	return parts
}

func equalSegment(a, b *routepattern.SegmentNode) bool {
	ca, cb := a.Children(), b.Children()
	if len(ca) != len(cb) {
		return false
	}

	for i := range ca {
		if ca[i].Kind() != cb[i].Kind() {
			return false
		}

		switch x := ca[i].(type) {
		case *routepattern.LiteralNode:
			if x.Value != cb[i].(*routepattern.LiteralNode).Value {
				return false
			}
		case *routepattern.ReplacementNode:
			if x.Value != cb[i].(*routepattern.ReplacementNode).Value {
				return false
			}
		case *routepattern.OptionalSeparatorNode:
		case *routepattern.ParameterNode:
			if !equalParameter(x, cb[i].(*routepattern.ParameterNode)) {
				return false
			}
		default:
			panic(fmt.Sprintf("routecompare: unexpected segment child %T", x))
		}
	}

	return true
}

func equalParameter(a, b *routepattern.ParameterNode) bool {
	return a.CatchAll == b.CatchAll &&
		a.Optional == b.Optional &&
		a.HasDefault == b.HasDefault &&
		a.Default == b.Default &&
		slices.Equal(a.PolicyTexts(), b.PolicyTexts())
}

var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

// Canonical renders the structure Equivalent compares: parameter names are
// dropped and the outer separators normalised, so "/users/{id:int}/" becomes
// "/users/{:int}". Equivalent trees have equal canonical forms.
func Canonical(t *routepattern.Tree) string {
	var sb strings.Builder
	sb.WriteByte('/')

	for _, part := range structuralParts(t) {
		seg, ok := part.(*routepattern.SegmentNode)
		if !ok {
			sb.WriteByte('/')
			continue
		}

		for _, child := range seg.Children() {
			switch c := child.(type) {
			case *routepattern.LiteralNode:
				braceEscaper.WriteString(&sb, c.Value) //nolint:errcheck
			case *routepattern.ReplacementNode:
				braceEscaper.WriteString(&sb, c.Value) //nolint:errcheck
			case *routepattern.OptionalSeparatorNode:
				sb.WriteByte('.')
			case *routepattern.ParameterNode:
				writeParameter(&sb, c)
			}
		}
	}

	return sb.String()
}

func writeParameter(sb *strings.Builder, p *routepattern.ParameterNode) {
	sb.WriteByte('{')
	sb.WriteString(p.CatchAll.String())
	for _, policy := range p.PolicyTexts() {
		sb.WriteByte(':')
		sb.WriteString(policy)
	}
	if p.HasDefault {
		sb.WriteByte('=')
		sb.WriteString(p.Default)
	}
	if p.Optional {
		sb.WriteByte('?')
	}
	sb.WriteByte('}')
}

// Hash returns a structural hash consistent with Equivalent: equivalent
// trees hash equal. Unequal trees may collide.
func Hash(t *routepattern.Tree) uint64 {
	return xxhash.Sum64String(Canonical(t))
}

// Key wraps a tree for use as a grouping key.
type Key struct {
	tree *routepattern.Tree
	hash uint64
}

// NewKey returns the key of t.
func NewKey(t *routepattern.Tree) Key {
	return Key{tree: t, hash: Hash(t)}
}

// Hash returns the structural hash of the key's tree.
func (k Key) Hash() uint64 {
	return k.hash
}

// Equal reports whether both keys hold equivalent trees.
func (k Key) Equal(other Key) bool {
	return k.hash == other.hash && Equivalent(k.tree, other.tree)
}

// Tree returns the wrapped tree.
func (k Key) Tree() *routepattern.Tree {
	return k.tree
}

func (k Key) String() string {
	return Canonical(k.tree)
}
