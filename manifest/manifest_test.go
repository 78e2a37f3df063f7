package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/routekit/binding"
	"github.com/vitalvas/routekit/diag"
)

const sampleYAML = `
types:
  - package: example.com/app
    name: Level
    kind: enum
    enum: [Low, High]
  - package: example.com/app/internal/tenant
    name: Tenant
    kind: struct
    funcs:
      - name: BindTenant
        params: ["*net/http.Request"]
        results: ["example.com/app/internal/tenant.Tenant", error]
endpoints:
  - id: get-item
    route: /items/{id:int}
    methods: [GET]
    block: main
    parameters:
      - name: id
        type: int
      - name: level
        type: "*app.Level"
      - name: tenant
        type: tenant.Tenant
      - name: auth
        type: string
        from: header
        lookup: Authorization
`

func TestParse(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		m, err := Parse([]byte(sampleYAML), FormatYAML)
		require.NoError(t, err)

		require.Len(t, m.Types, 2)
		assert.Equal(t, "example.com/app.Level", m.Types[0].ID())
		assert.Equal(t, []string{"Low", "High"}, m.Types[0].EnumValues)

		require.Len(t, m.Endpoints, 1)
		e := m.Endpoints[0]
		assert.Equal(t, "/items/{id:int}", e.Route)
		assert.Equal(t, []string{"GET"}, e.Methods)
		require.Len(t, e.Parameters, 4)
		assert.Equal(t, binding.SourceHeader, e.Parameters[3].From)
		assert.Equal(t, []binding.Attribute{{Source: binding.SourceHeader, Name: "Authorization"}}, e.Parameters[3].Attributes())
		assert.Nil(t, e.Parameters[0].Attributes())
	})

	t.Run("json", func(t *testing.T) {
		m, err := Parse([]byte(`{"endpoints":[{"route":"/a","methods":["POST"],"parameters":[{"name":"body","type":"string","from":"JsonBody"}],"span":{"start":3,"end":7}}]}`), FormatJSON)
		require.NoError(t, err)
		require.Len(t, m.Endpoints, 1)
		assert.Equal(t, diag.Span{Start: 3, End: 7}, m.Endpoints[0].Span)
		assert.Equal(t, binding.SourceJSONBody, m.Endpoints[0].Parameters[0].From)
	})

	t.Run("empty", func(t *testing.T) {
		m, err := Parse(nil, FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, m.Endpoints)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Parse([]byte("endpoints:\n  - route: /a\n    verb: GET\n"), FormatYAML)
		assert.ErrorContains(t, err, "manifest: decode yaml")

		_, err = Parse([]byte(`{"endpoints":[],"extra":1}`), FormatJSON)
		assert.ErrorContains(t, err, "manifest: decode json")
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := Parse([]byte("endpoints:\n  - route: /a\n    parameters:\n      - {name: x, type: int, from: cookie}\n"), FormatYAML)
		assert.Error(t, err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := Parse([]byte("{}"), Format("toml"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o600))

	m, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, yamlPath, m.Endpoints[0].File)

	jsonPath := filepath.Join(dir, "routes.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"endpoints":[{"route":"/b","file":"api.go"}]}`), 0o600))

	m, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "api.go", m.Endpoints[0].File)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "manifest:")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("endpoints: {"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, bad)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("a/b.json"))
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("routes"))
}

func TestEndpointSourceOffset(t *testing.T) {
	plain := Endpoint{Route: "/a/{id}", Span: diag.Span{Start: 40, End: 47}}
	assert.Equal(t, 40, plain.SourceOffset(0))
	assert.Equal(t, 47, plain.SourceOffset(7))

	// Source `/\\a/\"{id}`: one escape ending before offset 2, one before 5.
	escaped := Endpoint{
		Route:  `/\a/"{id}`,
		Span:   diag.Span{Start: 10, End: 21},
		Shifts: []Shift{{At: 2, Delta: 1}, {At: 5, Delta: 2}},
	}

	tests := []struct {
		offset   int
		expected int
	}{
		{offset: 0, expected: 10},
		{offset: 1, expected: 11},
		{offset: 2, expected: 13},
		{offset: 4, expected: 15},
		{offset: 5, expected: 17},
		{offset: 9, expected: 21},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, escaped.SourceOffset(tt.offset), "offset %d", tt.offset)
	}

	assert.Equal(t, diag.Span{Start: 13, End: 17}, escaped.SourceSpan(diag.Span{Start: 2, End: 5}))
}

func TestEncodeRoundTrip(t *testing.T) {
	m, err := Parse([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, m.Encode(&buf, format))

			back, err := Parse(buf.Bytes(), format)
			require.NoError(t, err)
			assert.Equal(t, m, back)
		})
	}

	assert.ErrorIs(t, m.Encode(&bytes.Buffer{}, "xml"), ErrUnsupportedFormat)
}

func TestMerge(t *testing.T) {
	a := &Manifest{Endpoints: []Endpoint{{Route: "/a"}}}
	b := &Manifest{Types: []TypeDecl{{Package: "p", Name: "T", Kind: "struct"}}, Endpoints: []Endpoint{{Route: "/b"}}}

	a.Merge(b)
	a.Merge(nil)

	assert.Len(t, a.Types, 1)
	assert.Equal(t, "/b", a.Endpoints[1].Route)
}

func TestRegistry(t *testing.T) {
	m, err := Parse([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	reg, err := m.Registry()
	require.NoError(t, err)

	level, err := reg.Resolve("*app.Level")
	require.NoError(t, err)
	assert.Equal(t, "*example.com/app.Level", level.ID())
	assert.Equal(t, binding.KindEnum, level.Elem.Kind)

	tenant, err := reg.Resolve("tenant.Tenant")
	require.NoError(t, err)
	assert.Equal(t, "tenant", tenant.PkgName)
	require.Len(t, tenant.Funcs, 1)
	assert.True(t, tenant.Funcs[0].Exported)
	assert.False(t, tenant.Funcs[0].Receiver)

	p, err := m.Endpoints[0].Parameters[2].Binding(reg)
	require.NoError(t, err)
	assert.Equal(t, "tenant", p.Name)
	assert.Same(t, tenant, p.Type)

	_, err = Parameter{Name: "x", Type: "app.Missing"}.Binding(reg)
	assert.ErrorIs(t, err, binding.ErrUnknownType)

	bad := &Manifest{Types: []TypeDecl{{Package: "p", Name: "T", Kind: "tuple"}}}
	_, err = bad.Registry()
	assert.ErrorContains(t, err, "manifest: type p.T")
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m, err := Parse([]byte(sampleYAML), FormatYAML)
		require.NoError(t, err)
		assert.NoError(t, m.Validate())
	})

	t.Run("collects every problem", func(t *testing.T) {
		m := &Manifest{
			Types: []TypeDecl{
				{Package: "example.com/app", Name: "Level", Kind: "enum"},
				{Package: "example.com/app", Name: "Level", Kind: "enum"},
			},
			Endpoints: []Endpoint{
				{ID: "a", Route: "/a", Methods: []string{"GET", "G T"}},
				{ID: "a", Route: " "},
				{Route: "/c", Parameters: []Parameter{
					{Name: "x", Type: "int"},
					{Name: "x", Type: "app.Missing"},
					{Type: ""},
					{Name: "y", Type: "string", Lookup: "Y"},
				}},
			},
		}

		err := m.Validate()
		require.Error(t, err)

		var merr *multierror.Error
		require.ErrorAs(t, err, &merr)

		msgs := make([]string, len(merr.Errors))
		for i, e := range merr.Errors {
			msgs[i] = e.Error()
		}
		assert.Equal(t, []string{
			"types[1]: duplicate type example.com/app.Level",
			`endpoints[0] (a): invalid method "G T"`,
			"endpoints[1] (a): duplicate id",
			"endpoints[1] (a): route is required",
			`endpoints[2].parameters[1]: duplicate parameter "x"`,
			`endpoints[2].parameters[1]: binding: unknown type "app.Missing"`,
			"endpoints[2].parameters[2]: name is required",
			"endpoints[2].parameters[2]: type is required",
			"endpoints[2].parameters[3]: lookup requires from",
		}, msgs)
	})

	t.Run("bad kind skips type checks", func(t *testing.T) {
		m := &Manifest{
			Types:     []TypeDecl{{Package: "p", Name: "T", Kind: "tuple"}},
			Endpoints: []Endpoint{{Route: "/a", Parameters: []Parameter{{Name: "x", Type: "p.Missing"}}}},
		}

		var merr *multierror.Error
		require.ErrorAs(t, m.Validate(), &merr)
		require.Len(t, merr.Errors, 1)
		assert.Contains(t, merr.Errors[0].Error(), `unknown kind "tuple"`)
	})
}
