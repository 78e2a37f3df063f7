package routepattern

import (
	"strings"

	"github.com/vitalvas/routekit/diag"
)

// invalidNameChars are the characters a parameter name may not contain.
const invalidNameChars = "{}/?*"

// checkSegment applies the per-segment rules and returns the final child
// list. A literal "." directly before a trailing optional parameter is
// replaced with an OptionalSeparatorNode.
func (p *parser) checkSegment(children []SegmentPart) []SegmentPart {
	segText := ""
	if len(children) > 0 {
		segText = diag.Span{Start: children[0].Span().Start, End: children[len(children)-1].Span().End}.Text(p.text)
	}

	for i, child := range children {
		param, ok := child.(*ParameterNode)
		if !ok {
			continue
		}

		if param.IsCatchAll() && len(children) > 1 {
			p.report(diag.KindCatchAllInComplexSegment, param.span)
		}

		if param.Optional {
			if i < len(children)-1 {
				p.report(diag.KindOptionalParameterNotLast, param.span,
					segText, param.Name, spanText(p.text, children[i+1:]))
			}
			if i > 0 {
				prev := children[i-1]
				if lit, ok := prev.(*LiteralNode); ok && lit.Value == "." {
					children[i-1] = &OptionalSeparatorNode{span: lit.span}
				} else {
					p.report(diag.KindInvalidOptionalParameter, param.span,
						segText, param.Name, prev.Span().Text(p.text))
				}
			}
			continue
		}

		if i > 0 {
			if _, ok := children[i-1].(*ParameterNode); ok {
				p.report(diag.KindConsecutiveParameters, param.span)
			}
		}
	}

	return children
}

// validateTemplate applies the rules that span the whole template.
func (p *parser) validateTemplate(tree *Tree) {
	if strings.HasPrefix(p.text, "~") && !strings.HasPrefix(p.text, "~/") {
		n := len(p.text) - len(strings.TrimLeft(p.text, "~"))
		p.report(diag.KindInvalidTilde, diag.Span{Start: 0, End: n})
	}

	seen := make(map[string]bool, len(p.params))
	for _, param := range p.params {
		switch {
		case param.Name == "":
			// Anchor at the character that ended the empty name.
			at := param.NameSpan.Start
			p.report(diag.KindEmptyParameterName, diag.Span{Start: at, End: min(at+1, len(p.text))})
		case !p.braceErr[param] && strings.ContainsAny(param.Name, invalidNameChars):
			p.report(diag.KindInvalidParameterName, param.NameSpan, param.Name)
		}

		if param.Name != "" {
			key := strings.ToLower(param.Name)
			if seen[key] {
				p.report(diag.KindDuplicateParameterName, param.span, param.Name)
			}
			seen[key] = true
		}

		if param.Optional && param.HasDefault {
			p.report(diag.KindOptionalWithDefault, param.span)
		}
		if param.Optional && param.IsCatchAll() {
			p.report(diag.KindCatchAllOptional, param.span)
		}
	}

	segments := tree.Segments()
	for i, seg := range segments {
		if i == len(segments)-1 {
			break
		}
		for _, param := range seg.Parameters() {
			if param.IsCatchAll() {
				p.report(diag.KindCatchAllNotLast, param.span)
			}
		}
	}
}

func spanText(src string, nodes []SegmentPart) string {
	if len(nodes) == 0 {
		return ""
	}

	return diag.Span{Start: nodes[0].Span().Start, End: nodes[len(nodes)-1].Span().End}.Text(src)
}
