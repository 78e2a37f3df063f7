package scan

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vitalvas/routekit/diag"
	"github.com/vitalvas/routekit/manifest"
)

// verbs maps registration method names to the HTTP method they imply. An
// empty method means the method comes from a ".Methods(...)" chain or a
// "METHOD /path" pattern.
var verbs = map[string]string{
	"HandleFunc": "",
	"Handle":     "",
	"Get":        "GET",
	"Post":       "POST",
	"Put":        "PUT",
	"Patch":      "PATCH",
	"Delete":     "DELETE",
	"Head":       "HEAD",
	"Options":    "OPTIONS",
	"MapGet":     "GET",
	"MapPost":    "POST",
	"MapPut":     "PUT",
	"MapPatch":   "PATCH",
	"MapDelete":  "DELETE",
	"GET":        "GET",
	"POST":       "POST",
	"PUT":        "PUT",
	"PATCH":      "PATCH",
	"DELETE":     "DELETE",
	"HEAD":       "HEAD",
	"OPTIONS":    "OPTIONS",
}

var patternMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "CONNECT": true, "OPTIONS": true, "TRACE": true,
}

// ScanDir scans every non-test Go file under root. Hidden directories,
// directories starting with '_', vendor and testdata are skipped.
func ScanDir(root string) (*manifest.Manifest, error) {
	out := &manifest.Manifest{}

	err := filepath.WalkDir(root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			base := d.Name()
			if name != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}

		m, err := ScanFile(name)
		if err != nil {
			return err
		}
		out.Merge(m)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return out, nil
}

// ScanFile scans a single Go file.
func ScanFile(name string) (*manifest.Manifest, error) {
	return ScanSource(name, nil)
}

// ScanSource scans Go source. When src is nil the file is read from name.
func ScanSource(name string, src any) (*manifest.Manifest, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, name, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	s := &fileScanner{
		fset:    fset,
		name:    name,
		file:    file,
		funcs:   make(map[string]*ast.FuncDecl),
		methods: make(map[string]*ast.FuncDecl),
		chains:  make(map[*ast.CallExpr][]string),
	}
	s.index()

	return &manifest.Manifest{Endpoints: s.endpoints()}, nil
}

type fileScanner struct {
	fset  *token.FileSet
	name  string
	file  *ast.File
	funcs map[string]*ast.FuncDecl
	// methods holds the first method declared under each name.
	methods map[string]*ast.FuncDecl
	// chains holds the arguments of ".Methods(...)" keyed by the call it
	// is chained onto.
	chains map[*ast.CallExpr][]string
}

func (s *fileScanner) index() {
	for _, decl := range s.file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}

		name := fn.Name.Name
		switch {
		case fn.Recv == nil:
			s.funcs[name] = fn
		case s.methods[name] == nil:
			s.methods[name] = fn
		}
	}

	ast.Inspect(s.file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != "Methods" {
			return true
		}

		if inner, ok := sel.X.(*ast.CallExpr); ok {
			for _, arg := range call.Args {
				if m := methodName(arg); m != "" {
					s.chains[inner] = append(s.chains[inner], m)
				}
			}
		}

		return true
	})
}

func (s *fileScanner) endpoints() []manifest.Endpoint {
	var (
		out   []manifest.Endpoint
		stack []ast.Node
	)

	ast.Inspect(s.file, func(n ast.Node) bool {
		if n == nil {
			stack = stack[:len(stack)-1]
			return true
		}
		stack = append(stack, n)

		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}

		if e, ok := s.endpoint(call, enclosingBlock(stack)); ok {
			out = append(out, e)
		}

		return true
	})

	return out
}

func enclosingBlock(stack []ast.Node) *ast.BlockStmt {
	for i := len(stack) - 1; i >= 0; i-- {
		if b, ok := stack[i].(*ast.BlockStmt); ok {
			return b
		}
	}

	return nil
}

// endpoint recognises recv.Verb("template", handler) calls.
func (s *fileScanner) endpoint(call *ast.CallExpr, block *ast.BlockStmt) (manifest.Endpoint, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || len(call.Args) < 2 {
		return manifest.Endpoint{}, false
	}

	method, ok := verbs[sel.Sel.Name]
	if !ok {
		return manifest.Endpoint{}, false
	}

	lit, ok := call.Args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return manifest.Endpoint{}, false
	}

	template, shifts, err := unquote(lit.Value)
	if err != nil {
		return manifest.Endpoint{}, false
	}

	pos := s.fset.Position(lit.Pos())
	// The span covers the literal's contents, without quotes.
	span := diag.Span{Start: pos.Offset + 1, End: pos.Offset + len(lit.Value) - 1}

	e := manifest.Endpoint{
		ID:   fmt.Sprintf("%s:%d", s.name, pos.Line),
		File: s.name,
	}

	// Go 1.22 ServeMux patterns: "GET /items/{id}".
	if verb, rest, found := strings.Cut(template, " "); found && patternMethods[verb] && strings.HasPrefix(rest, "/") {
		e.Methods = []string{verb}
		span, shifts = dropPrefix(span, shifts, len(verb)+1)
		template = rest
	}

	if !strings.ContainsAny(template, "/{") {
		return manifest.Endpoint{}, false
	}

	if method != "" {
		e.Methods = []string{method}
	}
	if chained, ok := s.chains[call]; ok {
		e.Methods = chained
	}

	e.Route = template
	e.Span = span
	e.Shifts = shifts
	e.Block = s.blockName(block, sel.X)

	e.Handler, e.Parameters = s.handler(call.Args[len(call.Args)-1])

	return e, true
}

// unquote returns the value of a string literal and the points where
// escape sequences make the literal longer, or shorter, than its value.
func unquote(lit string) (string, []manifest.Shift, error) {
	value, err := strconv.Unquote(lit)
	if err != nil || lit[0] != '"' || !strings.Contains(lit, `\`) {
		return value, nil, err
	}

	var shifts []manifest.Shift
	written, delta := 0, 0

	body := lit[1 : len(lit)-1]
	for body != "" {
		r, multibyte, tail, err := strconv.UnquoteChar(body, '"')
		if err != nil {
			return "", nil, err
		}

		n := 1
		if r >= utf8.RuneSelf && multibyte {
			n = utf8.RuneLen(r)
		}
		written += n

		if consumed := len(body) - len(tail); consumed != n {
			delta += consumed - n
			shifts = append(shifts, manifest.Shift{At: written, Delta: delta})
		}
		body = tail
	}

	return value, shifts, nil
}

// dropPrefix moves span and shifts past the first n bytes of the value.
func dropPrefix(span diag.Span, shifts []manifest.Shift, n int) (diag.Span, []manifest.Shift) {
	start := manifest.Endpoint{Span: span, Shifts: shifts}.SourceOffset(n)
	skipped := start - span.Start - n

	var out []manifest.Shift
	for _, sh := range shifts {
		if sh.At > n {
			out = append(out, manifest.Shift{At: sh.At - n, Delta: sh.Delta - skipped})
		}
	}

	return diag.Span{Start: start, End: span.End}, out
}

// blockName identifies the lexical scope and router a route is registered
// on.
func (s *fileScanner) blockName(block *ast.BlockStmt, recv ast.Expr) string {
	name := s.name
	if block != nil {
		pos := s.fset.Position(block.Lbrace)
		name = fmt.Sprintf("%s:%d:%d", s.name, pos.Line, pos.Column)
	}

	return name + "/" + types.ExprString(recv)
}

// handler resolves the handler argument to a name and its parameters.
func (s *fileScanner) handler(expr ast.Expr) (string, []manifest.Parameter) {
	switch h := expr.(type) {
	case *ast.FuncLit:
		return "func literal", s.params(h.Type)
	case *ast.Ident:
		if fn, ok := s.funcs[h.Name]; ok {
			return h.Name, s.params(fn.Type)
		}
		return h.Name, nil
	case *ast.SelectorExpr:
		if fn, ok := s.methods[h.Sel.Name]; ok {
			return types.ExprString(h), s.params(fn.Type)
		}
		return types.ExprString(h), nil
	case *ast.CallExpr:
		// http.HandlerFunc(fn) and similar conversions.
		if len(h.Args) == 1 && strings.HasSuffix(types.ExprString(h.Fun), "HandlerFunc") {
			return s.handler(h.Args[0])
		}
	}

	return types.ExprString(expr), nil
}

func (s *fileScanner) params(ft *ast.FuncType) []manifest.Parameter {
	if ft.Params == nil {
		return nil
	}

	var out []manifest.Parameter
	for i, field := range ft.Params.List {
		typ := s.typeString(field.Type)

		if len(field.Names) == 0 {
			out = append(out, manifest.Parameter{
				Name: fmt.Sprintf("arg%d", i),
				Type: typ,
				Span: s.span(field.Type),
			})
			continue
		}

		for _, ident := range field.Names {
			out = append(out, manifest.Parameter{
				Name: ident.Name,
				Type: typ,
				Span: s.span(ident),
			})
		}
	}

	return out
}

// typeString renders a type expression, qualifying identifiers declared in
// the scanned package with its name.
func (s *fileScanner) typeString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return "*" + s.typeString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + s.typeString(t.Elt)
		}
	case *ast.Ellipsis:
		return "..." + s.typeString(t.Elt)
	case *ast.Ident:
		if types.Universe.Lookup(t.Name) == nil {
			return s.file.Name.Name + "." + t.Name
		}
		return t.Name
	}

	return types.ExprString(expr)
}

func (s *fileScanner) span(n ast.Node) diag.Span {
	return diag.Span{
		Start: s.fset.Position(n.Pos()).Offset,
		End:   s.fset.Position(n.End()).Offset,
	}
}

// methodName evaluates a Methods argument: a string literal or an
// http.MethodXxx constant.
func methodName(expr ast.Expr) string {
	switch v := expr.(type) {
	case *ast.BasicLit:
		if v.Kind != token.STRING {
			return ""
		}
		s, err := strconv.Unquote(v.Value)
		if err != nil {
			return ""
		}
		return strings.ToUpper(s)
	case *ast.SelectorExpr:
		if name, ok := strings.CutPrefix(v.Sel.Name, "Method"); ok && name != "" {
			return strings.ToUpper(name)
		}
	}

	return ""
}
