package routepattern

import (
	"strings"

	"github.com/vitalvas/routekit/diag"
)

// Parse parses a route template into a tree.
//
// Parse never fails: malformed input yields a best-effort tree plus
// diagnostics anchored at the offending text. The returned tree is
// immutable and safe to share between goroutines.
func Parse(text string) (*Tree, []diag.Diagnostic) {
	p := &parser{text: text, segStart: -1}
	p.parse()

	tree := &Tree{Text: text, parts: p.parts, params: p.params}
	p.validateTemplate(tree)
	diag.Sort(p.diags)

	return tree, p.diags
}

type parser struct {
	text string
	pos  int

	parts  []Part
	params []*ParameterNode
	diags  []diag.Diagnostic

	// Segment being accumulated; segStart is -1 when none is open.
	segStart int
	children []SegmentPart

	// Parameters that already carry an unescaped-brace diagnostic.
	braceErr map[*ParameterNode]bool
}

func (p *parser) report(kind diag.Kind, span diag.Span, args ...any) {
	p.diags = append(p.diags, diag.New(kind, span, args...))
}

func (p *parser) at(c byte) bool {
	return p.pos < len(p.text) && p.text[p.pos] == c
}

func (p *parser) byteAt(i int) byte {
	if i < 0 || i >= len(p.text) {
		return 0
	}

	return p.text[i]
}

// isEscape reports whether a doubled brace starts at i.
func (p *parser) isEscape(i int) bool {
	c := p.byteAt(i)
	return (c == '{' || c == '}') && p.byteAt(i+1) == c
}

// closesAt reports whether a parameter-closing '}' (not an escaped '}}')
// is at i.
func (p *parser) closesAt(i int) bool {
	return p.byteAt(i) == '}' && p.byteAt(i+1) != '}'
}

func (p *parser) parse() {
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		switch {
		case c == '/':
			p.flushSegment()
			p.parts = append(p.parts, &SeparatorNode{span: diag.Span{Start: p.pos, End: p.pos + 1}})
			p.pos++
		case c == '{' && !p.isEscape(p.pos):
			p.openSegment()
			p.parseParameter()
		default:
			p.openSegment()
			p.parseLiteral()
		}
	}
	p.flushSegment()
}

func (p *parser) openSegment() {
	if p.segStart < 0 {
		p.segStart = p.pos
	}
}

func (p *parser) flushSegment() {
	if p.segStart < 0 {
		return
	}

	children := p.checkSegment(p.children)
	p.parts = append(p.parts, &SegmentNode{
		span:     diag.Span{Start: p.segStart, End: p.pos},
		children: children,
	})
	p.segStart = -1
	p.children = nil
}

// parseLiteral consumes text up to the next separator or parameter.
func (p *parser) parseLiteral() {
	start := p.pos
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		if c == '/' || (c == '{' && !p.isEscape(p.pos)) {
			break
		}
		if p.isEscape(p.pos) {
			p.pos += 2
			continue
		}
		if c == '}' {
			// A close brace without a parameter to close.
			p.report(diag.KindUnterminatedParameter, diag.Span{Start: p.pos, End: p.pos + 1})
		}
		p.pos++
	}

	node := p.literal(start, p.pos)
	if strings.Contains(p.text[start:p.pos], "?") {
		p.report(diag.KindInvalidLiteral, node.Span(), p.text[start:p.pos])
	}
	p.children = append(p.children, node)
}

// literal builds a literal or replacement node for text[start:end].
func (p *parser) literal(start, end int) SegmentPart {
	raw := p.text[start:end]
	span := diag.Span{Start: start, End: end}

	for i := start; i < end-1; i++ {
		if p.isEscape(i) {
			return &ReplacementNode{span: span, Raw: raw, Value: unescapeBraces(raw)}
		}
	}

	return &LiteralNode{span: span, Value: raw}
}

func (p *parser) parseParameter() {
	start := p.pos
	p.pos++ // '{'

	param := &ParameterNode{}
	if p.at('*') {
		if p.byteAt(p.pos+1) == '*' {
			param.CatchAll = CatchAllRaw
			p.pos += 2
		} else {
			param.CatchAll = CatchAllEncoded
			p.pos++
		}
	}

	nameStart := p.pos
	unescaped := false
	for {
		if p.pos >= len(p.text) {
			p.recoverUnterminated(start)
			return
		}

		c := p.text[p.pos]
		if p.isEscape(p.pos) {
			p.pos += 2
			continue
		}
		if c == '}' {
			break
		}
		if c == '{' {
			unescaped = true
			p.pos++
			continue
		}
		// A leading ':' belongs to the name.
		if c == ':' && p.pos > nameStart {
			break
		}
		if c == '=' || (c == '?' && p.closesAt(p.pos+1)) {
			break
		}
		p.pos++
	}

	param.NameSpan = diag.Span{Start: nameStart, End: p.pos}
	param.Name = unescapeBraces(p.text[nameStart:p.pos])

	for p.at(':') {
		policy, ok := p.parsePolicy()
		param.Policies = append(param.Policies, policy)
		if !ok {
			p.recoverUnterminated(start)
			return
		}
	}

	if p.at('=') {
		p.pos++
		defStart := p.pos
		for {
			if p.pos >= len(p.text) {
				p.recoverUnterminated(start)
				return
			}
			if p.isEscape(p.pos) {
				p.pos += 2
				continue
			}
			if p.text[p.pos] == '}' || (p.text[p.pos] == '?' && p.closesAt(p.pos+1)) {
				break
			}
			p.pos++
		}
		param.Default = unescapeBraces(p.text[defStart:p.pos])
		param.HasDefault = true
	}

	if p.at('?') {
		param.Optional = true
		p.pos++
	}

	if !p.at('}') {
		p.recoverUnterminated(start)
		return
	}
	p.pos++

	param.span = diag.Span{Start: start, End: p.pos}
	if unescaped {
		if p.braceErr == nil {
			p.braceErr = make(map[*ParameterNode]bool)
		}
		p.braceErr[param] = true
		p.report(diag.KindUnescapedBrace, param.NameSpan)
	}

	p.children = append(p.children, param)
	p.params = append(p.params, param)
}

// recoverUnterminated reports an unclosed parameter starting at start and
// keeps its text, up to the next separator, as a literal.
func (p *parser) recoverUnterminated(start int) {
	p.report(diag.KindUnterminatedParameter, diag.Span{Start: start, End: start + 1})

	end := len(p.text)
	if i := strings.IndexByte(p.text[start:], '/'); i >= 0 {
		end = start + i
	}
	p.pos = end
	p.children = append(p.children, p.literal(start, end))
}

// parsePolicy parses one ':'-prefixed policy. It returns false if the input
// ended before the policy did.
func (p *parser) parsePolicy() (*PolicyNode, bool) {
	start := p.pos
	p.pos++ // ':'

	node := &PolicyNode{}
	textStart := p.pos
	flush := func() {
		if p.pos > textStart {
			node.Fragments = append(node.Fragments, PolicyFragment{
				Span: diag.Span{Start: textStart, End: p.pos},
				Text: p.text[textStart:p.pos],
			})
		}
	}
	done := func(ok bool) (*PolicyNode, bool) {
		flush()
		node.span = diag.Span{Start: start, End: p.pos}
		return node, ok
	}

	for {
		if p.pos >= len(p.text) {
			return done(false)
		}

		c := p.text[p.pos]
		switch {
		case c == '(':
			closing := p.matchParen(p.pos)
			if closing < 0 {
				p.pos++
				continue
			}
			flush()
			node.Fragments = append(node.Fragments, PolicyFragment{
				Span:    diag.Span{Start: p.pos + 1, End: closing},
				Text:    p.text[p.pos+1 : closing],
				Escaped: true,
			})
			p.checkBraces(p.pos+1, closing)
			p.pos = closing + 1
			textStart = p.pos
		case p.isEscape(p.pos):
			p.pos += 2
		case c == '}' || c == ':' || c == '=':
			return done(true)
		case c == '?' && p.closesAt(p.pos+1):
			return done(true)
		case c == '{':
			p.report(diag.KindUnescapedBrace, diag.Span{Start: p.pos, End: p.pos + 1})
			p.pos++
		default:
			p.pos++
		}
	}
}

// matchParen returns the index of the ')' matching the '(' at open, or -1.
func (p *parser) matchParen(open int) int {
	depth := 0
	for i := open + 1; i < len(p.text); i++ {
		switch p.text[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return i
			}
			depth--
		}
	}

	return -1
}

// checkBraces reports single braces inside text[start:end] that do not
// balance. Doubled braces are escapes and always accepted.
func (p *parser) checkBraces(start, end int) {
	depth := 0
	balanced := true
	for i := start; i < end; i++ {
		if p.isEscape(i) && i+1 < end {
			i++
			continue
		}
		switch p.text[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				balanced = false
			} else {
				depth--
			}
		}
	}

	if !balanced || depth != 0 {
		p.report(diag.KindUnescapedBrace, diag.Span{Start: start, End: end})
	}
}
