package routepattern

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/routekit/diag"
)

// policyOf parses "{x:<text>}" and returns its first policy.
func policyOf(t *testing.T, text string) *PolicyNode {
	t.Helper()

	tree, diags := Parse("{x:" + text + "}")
	require.Empty(t, diags)
	require.Len(t, tree.Parameters(), 1)
	require.NotEmpty(t, tree.Parameters()[0].Policies)

	return tree.Parameters()[0].Policies[0]
}

func TestResolvePolicy(t *testing.T) {
	tests := []struct {
		policy  string
		matches []string
		rejects []string
	}{
		{policy: "int", matches: []string{"0", "42", "-7"}, rejects: []string{"", "4.2", "abc"}},
		{policy: "long", matches: []string{"9223372036854775807"}, rejects: []string{"x"}},
		{policy: "bool", matches: []string{"true", "FALSE", "True"}, rejects: []string{"yes", "1"}},
		{policy: "uuid", matches: []string{"550e8400-e29b-41d4-a716-446655440000"}, rejects: []string{"550e8400", "{550e8400-e29b-41d4-a716-446655440000}"}},
		{policy: "guid", matches: []string{"550e8400-e29b-41d4-a716-446655440000", "{550e8400-e29b-41d4-a716-446655440000}"}, rejects: []string{"guid"}},
		{policy: "float", matches: []string{"1.5", ".5", "-3"}, rejects: []string{"1.", "a"}},
		{policy: "double", matches: []string{"1.5e10", "2"}, rejects: []string{"e10"}},
		{policy: "decimal", matches: []string{"10.25"}, rejects: []string{"10,25"}},
		{policy: "datetime", matches: []string{"2024-01-02", "2024-01-02T10:20:30Z", "2024-01-02 10:20"}, rejects: []string{"yesterday"}},
		{policy: "date", matches: []string{"2024-01-02"}, rejects: []string{"2024-1-2"}},
		{policy: "alpha", matches: []string{"abcXYZ"}, rejects: []string{"abc1"}},
		{policy: "alphanum", matches: []string{"abc123"}, rejects: []string{"abc-123"}},
		{policy: "slug", matches: []string{"hello-world"}, rejects: []string{"-hello", "hello--world"}},
		{policy: "hex", matches: []string{"deadBEEF"}, rejects: []string{"xyz"}},
		{policy: "domain", matches: []string{"example.com", "a.b.c"}, rejects: []string{"-bad.com", strings.Repeat("a.", 127) + "ab"}},
		{policy: "required", matches: []string{"x"}, rejects: []string{""}},
		{policy: "file", matches: []string{"readme.md", "a.b.c"}, rejects: []string{"readme", "dir."}},
		{policy: "nonfile", matches: []string{"readme"}, rejects: []string{"readme.md"}},
		{policy: "minlength(3)", matches: []string{"abc", "abcd"}, rejects: []string{"ab"}},
		{policy: "maxlength(3)", matches: []string{"", "abc"}, rejects: []string{"abcd"}},
		{policy: "length(2)", matches: []string{"ab", "жж"}, rejects: []string{"a", "abc"}},
		{policy: "length(2,4)", matches: []string{"ab", "abcd"}, rejects: []string{"a", "abcde"}},
		{policy: "min(10)", matches: []string{"10", "11"}, rejects: []string{"9", "x"}},
		{policy: "max(10)", matches: []string{"-5", "10"}, rejects: []string{"11"}},
		{policy: "range(1,12)", matches: []string{"1", "12"}, rejects: []string{"0", "13", "one"}},
		{policy: `regex(^\d{4}$)`, matches: []string{"2024"}, rejects: []string{"20245", "abcd"}},
		{policy: "regex(abc)", matches: []string{"xxABCxx"}, rejects: []string{"ab"}},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			m, err := ResolvePolicy(policyOf(t, tt.policy))
			require.NoError(t, err)

			for _, v := range tt.matches {
				assert.True(t, m.MatchString(v), "expected %q to match", v)
			}
			for _, v := range tt.rejects {
				assert.False(t, m.MatchString(v), "expected %q to be rejected", v)
			}
		})
	}
}

func TestResolvePolicyErrors(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		unknown bool
	}{
		{name: "unknown name", policy: "foo", unknown: true},
		{name: "unknown with argument", policy: "foo(1)", unknown: true},
		{name: "unmatched paren", policy: "regex(", unknown: true},
		{name: "missing argument", policy: "min"},
		{name: "unexpected argument", policy: "int(3)"},
		{name: "too few arguments", policy: "range(1)"},
		{name: "too many arguments", policy: "length(1,2,3)"},
		{name: "non-numeric argument", policy: "minlength(abc)"},
		{name: "invalid expression", policy: "regex([)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolvePolicy(policyOf(t, tt.policy))
			require.Error(t, err)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownPolicy)
			} else {
				assert.NotErrorIs(t, err, ErrUnknownPolicy)
			}
		})
	}
}

func TestLengthMatcher(t *testing.T) {
	m, err := ResolvePolicy(policyOf(t, "domain"))
	require.NoError(t, err)

	lm, ok := m.(*lengthMatcher)
	require.True(t, ok)
	assert.Equal(t, 253, lm.maxLen)
	assert.True(t, strings.HasPrefix(lm.String(), "^"))
}

func TestCheckPolicies(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected []diag.Kind
	}{
		{name: "known policies", template: "/{id:int}/{slug:slug:maxlength(20)}", expected: nil},
		{name: "unknown policy", template: "/{id:integer}", expected: []diag.Kind{diag.KindUnknownPolicy}},
		{name: "malformed argument", template: "/{id:range(a,b)}", expected: []diag.Kind{diag.KindUnknownPolicy}},
		{name: "default satisfies policy", template: "/{page:int=1}", expected: nil},
		{name: "default violates policy", template: "/{page:int=first}", expected: []diag.Kind{diag.KindDefaultViolatesPolicy}},
		{name: "default violates second policy", template: "/{page:int:min(1)=0}", expected: []diag.Kind{diag.KindDefaultViolatesPolicy}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, diags := Parse(tt.template)
			require.Empty(t, diags)

			got := CheckPolicies(tree)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, kindsOf(got))
		})
	}

	t.Run("messages name the parameter and policy", func(t *testing.T) {
		tree, _ := Parse("/{id:integer}")
		got := CheckPolicies(tree)
		require.Len(t, got, 1)
		assert.Equal(t, "The route parameter 'id' uses the unknown policy 'integer'.", got[0].Message)
		assert.Equal(t, diag.SeverityWarning, got[0].Severity)
		assert.Equal(t, diag.Span{Start: 4, End: 12}, got[0].Span)
	})
}

func BenchmarkResolvePolicy(b *testing.B) {
	tree, _ := Parse(`{x:regex(^[a-z]+$)}`)
	policy := tree.Parameters()[0].Policies[0]

	for b.Loop() {
		ResolvePolicy(policy) //nolint:errcheck
	}
}
