package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vitalvas/routekit/binding"
	"github.com/vitalvas/routekit/diag"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for encodings other than YAML and JSON.
var ErrUnsupportedFormat = errors.New("manifest: unsupported format")

// FormatFromPath picks the format from a file extension. Anything but
// ".json" is read as YAML.
func FormatFromPath(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return FormatJSON
	}

	return FormatYAML
}

// Manifest declares the endpoints of an application and the custom types
// their handlers take.
type Manifest struct {
	Types     []TypeDecl `json:"types,omitempty" yaml:"types,omitempty"`
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// TypeDecl declares a named type of the application.
type TypeDecl struct {
	// Package is the import path.
	Package string `json:"package" yaml:"package"`
	// PkgName defaults to the last element of Package.
	PkgName       string     `json:"pkg_name,omitempty" yaml:"pkg_name,omitempty"`
	Name          string     `json:"name" yaml:"name"`
	Kind          string     `json:"kind" yaml:"kind"`
	Bits          int        `json:"bits,omitempty" yaml:"bits,omitempty"`
	Funcs         []FuncDecl `json:"funcs,omitempty" yaml:"funcs,omitempty"`
	Interfaces    []string   `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	EnumValues    []string   `json:"enum,omitempty" yaml:"enum,omitempty"`
	DefaultFormat string     `json:"default_format,omitempty" yaml:"default_format,omitempty"`
}

// ID returns the identity the type registers under.
func (t TypeDecl) ID() string {
	return t.Package + "." + t.Name
}

// FuncDecl declares a function associated with a type, or a method when
// Receiver is set. Params and Results are type IDs.
type FuncDecl struct {
	Name     string   `json:"name" yaml:"name"`
	Receiver bool     `json:"receiver,omitempty" yaml:"receiver,omitempty"`
	Params   []string `json:"params,omitempty" yaml:"params,omitempty"`
	Results  []string `json:"results,omitempty" yaml:"results,omitempty"`
}

// Endpoint declares one route handler.
type Endpoint struct {
	ID      string   `json:"id,omitempty" yaml:"id,omitempty"`
	Route   string   `json:"route" yaml:"route"`
	Methods []string `json:"methods,omitempty" yaml:"methods,omitempty"`
	// Block names the lexical block the route is declared in. Routes in
	// different blocks are never ambiguous with each other.
	Block      string      `json:"block,omitempty" yaml:"block,omitempty"`
	Handler    string      `json:"handler,omitempty" yaml:"handler,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// File and Span locate the route template in source.
	File string    `json:"file,omitempty" yaml:"file,omitempty"`
	Span diag.Span `json:"span" yaml:"span,omitempty"`
	// Shifts records where the source literal is longer than Route because
	// of escape sequences. Empty when Route is the literal text verbatim.
	Shifts []Shift `json:"shifts,omitempty" yaml:"shifts,omitempty"`
}

// Shift states that Route offsets from At onward sit Delta bytes further
// into the source than Span.Start+offset. Delta is cumulative.
type Shift struct {
	At    int `json:"at" yaml:"at"`
	Delta int `json:"delta" yaml:"delta"`
}

// SourceOffset maps an offset into Route to a byte offset in File.
func (e Endpoint) SourceOffset(off int) int {
	delta := 0
	for _, s := range e.Shifts {
		if s.At > off {
			break
		}
		delta = s.Delta
	}

	return e.Span.Start + off + delta
}

// SourceSpan maps a span over Route to a span in File.
func (e Endpoint) SourceSpan(span diag.Span) diag.Span {
	return diag.Span{Start: e.SourceOffset(span.Start), End: e.SourceOffset(span.End)}
}

// Parameter declares one handler parameter.
type Parameter struct {
	Name string `json:"name" yaml:"name"`
	// Type is a type expression such as "int", "*time.Time" or "[]string".
	Type string `json:"type" yaml:"type"`
	// From is an explicit binding source.
	From binding.Source `json:"from,omitempty" yaml:"from,omitempty"`
	// Lookup overrides the name the value is read under.
	Lookup  string    `json:"lookup,omitempty" yaml:"lookup,omitempty"`
	Default bool      `json:"default,omitempty" yaml:"default,omitempty"`
	Span    diag.Span `json:"span" yaml:"span,omitempty"`
}

// Attributes returns the parameter's explicit binding attributes.
func (p Parameter) Attributes() []binding.Attribute {
	if p.From == binding.SourceUnknown {
		return nil
	}

	return []binding.Attribute{{Source: p.From, Name: p.Lookup}}
}

// Binding resolves the parameter's type against reg.
func (p Parameter) Binding(reg *binding.Registry) (binding.Parameter, error) {
	t, err := reg.Resolve(p.Type)
	if err != nil {
		return binding.Parameter{}, fmt.Errorf("manifest: parameter %q: %w", p.Name, err)
	}

	return binding.Parameter{
		Name:       p.Name,
		Type:       t,
		Attributes: p.Attributes(),
		HasDefault: p.Default,
		Span:       p.Span,
	}, nil
}

// Load reads a manifest file. Endpoints without a File are attributed to
// the manifest itself.
func Load(name string) (*Manifest, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	m, err := Parse(data, FormatFromPath(name))
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, name)
	}

	for i := range m.Endpoints {
		if m.Endpoints[i].File == "" {
			m.Endpoints[i].File = name
		}
	}

	return m, nil
}

// Parse decodes a manifest. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Manifest, error) {
	m := &Manifest{}

	switch format {
	case FormatYAML, "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: decode yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("manifest: decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}

	return m, nil
}

// Encode writes the manifest in the given format.
func (m *Manifest) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("manifest: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("manifest: encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

// Merge appends the types and endpoints of other.
func (m *Manifest) Merge(other *Manifest) {
	if other == nil {
		return
	}

	m.Types = append(m.Types, other.Types...)
	m.Endpoints = append(m.Endpoints, other.Endpoints...)
}

// Registry returns a binding registry holding the predeclared types plus
// every declared type.
func (m *Manifest) Registry() (*binding.Registry, error) {
	reg := binding.NewRegistry()

	for _, decl := range m.Types {
		t, err := decl.typeRef()
		if err != nil {
			return nil, err
		}
		reg.Register(t)
	}

	return reg, nil
}

func (t TypeDecl) typeRef() (*binding.TypeRef, error) {
	kind, err := binding.ParseKind(t.Kind)
	if err != nil {
		return nil, fmt.Errorf("manifest: type %s: %w", t.ID(), err)
	}

	ref := &binding.TypeRef{
		PkgPath:       t.Package,
		PkgName:       t.PkgName,
		Name:          t.Name,
		Kind:          kind,
		Bits:          t.Bits,
		Interfaces:    t.Interfaces,
		EnumValues:    t.EnumValues,
		DefaultFormat: t.DefaultFormat,
	}
	if ref.PkgName == "" {
		ref.PkgName = path.Base(t.Package)
	}

	for _, f := range t.Funcs {
		ref.Funcs = append(ref.Funcs, binding.FuncRef{
			Name:     f.Name,
			Exported: token.IsExported(f.Name),
			Receiver: f.Receiver,
			Params:   f.Params,
			Results:  f.Results,
		})
	}

	return ref, nil
}
