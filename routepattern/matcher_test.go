package routepattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, template string) *Matcher {
	t.Helper()

	tree, diags := Parse(template)
	require.Empty(t, diags)

	m, err := Compile(tree)
	require.NoError(t, err)

	return m
}

func TestMatcherMatch(t *testing.T) {
	tests := []struct {
		name     string
		template string
		path     string
		match    bool
		values   map[string]string
	}{
		{name: "literal", template: "/health", path: "/health", match: true, values: map[string]string{}},
		{name: "literal ignores case", template: "/health", path: "/HEALTH", match: true, values: map[string]string{}},
		{name: "trailing slash", template: "/health", path: "/health/", match: true, values: map[string]string{}},
		{name: "literal mismatch", template: "/health", path: "/ready", match: false},
		{name: "parameter", template: "/users/{id}", path: "/users/42", match: true, values: map[string]string{"id": "42"}},
		{name: "parameter does not span segments", template: "/users/{id}", path: "/users/42/x", match: false},
		{name: "required parameter missing", template: "/users/{id}", path: "/users", match: false},
		{name: "policy accepts", template: "/users/{id:int}", path: "/users/42", match: true, values: map[string]string{"id": "42"}},
		{name: "policy rejects", template: "/users/{id:int}", path: "/users/abc", match: false},
		{name: "chained policies", template: "/page/{n:int:range(1,10)}", path: "/page/11", match: false},
		{
			name: "complex segment", template: "/files/{name}-{version}.zip", path: "/files/tool-1.2.zip",
			match: true, values: map[string]string{"name": "tool", "version": "1.2"},
		},
		{
			name: "optional extension present", template: "/files/{name}.{ext?}", path: "/files/a.b.txt",
			match: true, values: map[string]string{"name": "a.b", "ext": "txt"},
		},
		{
			name: "optional extension absent", template: "/files/{name}.{ext?}", path: "/files/readme",
			match: true, values: map[string]string{"name": "readme"},
		},
		{
			name: "defaults fill missing segments", template: "/{controller=Home}/{action=Index}/{id?}", path: "/",
			match: true, values: map[string]string{"controller": "Home", "action": "Index"},
		},
		{
			name: "defaults with partial path", template: "/{controller=Home}/{action=Index}/{id?}", path: "/products",
			match: true, values: map[string]string{"controller": "products", "action": "Index"},
		},
		{
			name: "defaults overridden", template: "/{controller=Home}/{action=Index}/{id?}", path: "/products/list/5",
			match: true, values: map[string]string{"controller": "products", "action": "list", "id": "5"},
		},
		{
			name: "catch-all", template: "/docs/{**path}", path: "/docs/a/b/c",
			match: true, values: map[string]string{"path": "a/b/c"},
		},
		{name: "catch-all empty", template: "/docs/{*path}", path: "/docs", match: true, values: map[string]string{}},
		{name: "escaped braces", template: "/a/{{x}}", path: "/a/{x}", match: true, values: map[string]string{}},
		{name: "root matches empty path", template: "/", path: "", match: true, values: map[string]string{}},
		{name: "empty template matches root", template: "", path: "/", match: true, values: map[string]string{}},
		{name: "app relative prefix", template: "~/about", path: "/about", match: true, values: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustCompile(t, tt.template)

			values, ok := m.Match(tt.path)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Equal(t, tt.values, values)
			} else {
				assert.Nil(t, values)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Run("unknown policy", func(t *testing.T) {
		tree, _ := Parse("/users/{id:integer}")
		_, err := Compile(tree)
		assert.ErrorIs(t, err, ErrUnknownPolicy)
	})

	t.Run("empty parameter name", func(t *testing.T) {
		tree, _ := Parse("/users/{}")
		_, err := Compile(tree)
		assert.ErrorContains(t, err, "missing name")
	})
}

func TestMatcherBuild(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		expected string
	}{
		{name: "parameter", template: "/users/{id:int}", values: map[string]string{"id": "42"}, expected: "/users/42"},
		{name: "escapes values", template: "/search/{q}", values: map[string]string{"q": "a b/c"}, expected: "/search/a%20b%2Fc"},
		{name: "defaults", template: "/{controller=Home}/{action=Index}/{id?}", values: map[string]string{}, expected: "/Home/Index"},
		{name: "optional segment", template: "/{controller=Home}/{action=Index}/{id?}", values: map[string]string{"id": "7"}, expected: "/Home/Index/7"},
		{name: "optional extension absent", template: "/files/{name}.{ext?}", values: map[string]string{"name": "readme"}, expected: "/files/readme"},
		{name: "optional extension present", template: "/files/{name}.{ext?}", values: map[string]string{"name": "a", "ext": "md"}, expected: "/files/a.md"},
		{name: "raw catch-all keeps slashes", template: "/docs/{**path}", values: map[string]string{"path": "a/b c"}, expected: "/docs/a/b%20c"},
		{name: "encoded catch-all", template: "/docs/{*path}", values: map[string]string{"path": "a/b"}, expected: "/docs/a%2Fb"},
		{name: "escaped braces", template: "/a/{{x}}/{id}", values: map[string]string{"id": "1"}, expected: "/a/{x}/1"},
		{name: "relative template", template: "users/{id}", values: map[string]string{"id": "1"}, expected: "users/1"},
		{name: "app relative", template: "~/users/{id}", values: map[string]string{"id": "1"}, expected: "/users/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustCompile(t, tt.template)

			got, err := m.Build(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("missing value", func(t *testing.T) {
		m := mustCompile(t, "/users/{id}")
		_, err := m.Build(map[string]string{})
		assert.ErrorIs(t, err, ErrMissingValue)
	})

	t.Run("value violates policy", func(t *testing.T) {
		m := mustCompile(t, "/users/{id:int}")
		_, err := m.Build(map[string]string{"id": "abc"})
		assert.ErrorContains(t, err, "doesn't match")
	})

	t.Run("round trip with Match", func(t *testing.T) {
		m := mustCompile(t, "/users/{id:int}/posts/{slug:slug}")
		path, err := m.Build(map[string]string{"id": "1", "slug": "hello-world"})
		require.NoError(t, err)

		values, ok := m.Match(path)
		require.True(t, ok)
		assert.Equal(t, map[string]string{"id": "1", "slug": "hello-world"}, values)
	})
}

func TestMatcherAccessors(t *testing.T) {
	m := mustCompile(t, "/users/{id}")
	assert.Equal(t, "/users/{id}", m.Template().Text)
	assert.Equal(t, "(?i)^users/([^/]+)/?$", m.String())
}

func BenchmarkMatcherMatch(b *testing.B) {
	tree, _ := Parse("/users/{id:int}/posts/{slug:slug}")
	m, err := Compile(tree)
	if err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		m.Match("/users/42/posts/hello-world")
	}
}
