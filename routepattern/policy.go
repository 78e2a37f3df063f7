package routepattern

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vitalvas/routekit/diag"
)

// ErrUnknownPolicy is returned by ResolvePolicy for policy names outside
// the catalog.
var ErrUnknownPolicy = errors.New("routepattern: unknown policy")

// valueMatcher validates a single route value.
// *regexp.Regexp satisfies this interface.
type valueMatcher interface {
	MatchString(string) bool
	String() string
}

// lengthMatcher wraps a regexp with an additional maximum length constraint.
type lengthMatcher struct {
	re     *regexp.Regexp
	maxLen int
}

func (m *lengthMatcher) MatchString(s string) bool {
	return len(s) <= m.maxLen && m.re.MatchString(s)
}

func (m *lengthMatcher) String() string {
	return m.re.String()
}

// funcMatcher validates values with a predicate.
type funcMatcher struct {
	desc string
	fn   func(string) bool
}

func (m *funcMatcher) MatchString(s string) bool {
	return m.fn(s)
}

func (m *funcMatcher) String() string {
	return m.desc
}

// policyMacros maps argument-less policy names to their compiled matchers.
// Used in route parameter definitions: {name:policy}.
var policyMacros = func() map[string]valueMatcher {
	raw := map[string]string{
		"int":      `-?[0-9]+`,
		"long":     `-?[0-9]+`,
		"bool":     `(?i:true|false)`,
		"guid":     `\{?[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\}?`,
		"uuid":     `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
		"float":    `-?[0-9]*\.?[0-9]+`,
		"double":   `-?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?`,
		"decimal":  `-?[0-9]*\.?[0-9]+`,
		"datetime": `[0-9]{4}-[0-9]{2}-[0-9]{2}(?:[T ][0-9]{2}:[0-9]{2}(?::[0-9]{2}(?:\.[0-9]+)?)?(?:Z|[+-][0-9]{2}:[0-9]{2})?)?`,
		"date":     `[0-9]{4}-[0-9]{2}-[0-9]{2}`,
		"alpha":    `[a-zA-Z]+`,
		"alphanum": `[a-zA-Z0-9]+`,
		"slug":     `[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`,
		"hex":      `[0-9a-fA-F]+`,
		"required": `.+`,
		"file":     `.*\.[^./]+`,
		// RFC 1035/1123: labels 1-63 chars, total up to 253 chars.
		"domain": `(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?`,
	}

	// Policies that require additional length validation beyond regex.
	maxLengths := map[string]int{
		"domain": 253,
	}

	m := make(map[string]valueMatcher, len(raw)+1)
	for name, pattern := range raw {
		re := regexp.MustCompile(fmt.Sprintf("^%s$", pattern))

		if maxLen, ok := maxLengths[name]; ok {
			m[name] = &lengthMatcher{re: re, maxLen: maxLen}
		} else {
			m[name] = re
		}
	}

	file := m["file"]
	m["nonfile"] = &funcMatcher{
		desc: "nonfile",
		fn:   func(s string) bool { return !file.MatchString(s) },
	}

	return m
}()

// ResolvePolicy returns a matcher for the policy's value constraint.
// Unknown policy names wrap ErrUnknownPolicy; malformed arguments return a
// descriptive error.
func ResolvePolicy(policy *PolicyNode) (valueMatcher, error) {
	name := policy.Name()
	arg, hasArg := policy.Argument()

	if !hasArg {
		if m, ok := policyMacros[name]; ok {
			return m, nil
		}
		switch name {
		case "minlength", "maxlength", "length", "min", "max", "range", "regex":
			return nil, fmt.Errorf("routepattern: policy %q requires an argument", name)
		}
		return nil, fmt.Errorf("%w %q", ErrUnknownPolicy, policy.Text())
	}

	switch name {
	case "regex":
		re, err := compileRegexp("(?i)" + arg)
		if err != nil {
			return nil, fmt.Errorf("routepattern: invalid regex policy %q: %w", arg, err)
		}
		return re, nil
	case "minlength":
		n, err := intArgs(name, arg, 1)
		if err != nil {
			return nil, err
		}
		return lengthPolicy(policy.Text(), n[0], -1), nil
	case "maxlength":
		n, err := intArgs(name, arg, 1)
		if err != nil {
			return nil, err
		}
		return lengthPolicy(policy.Text(), 0, n[0]), nil
	case "length":
		n, err := intArgs(name, arg, 1, 2)
		if err != nil {
			return nil, err
		}
		if len(n) == 1 {
			return lengthPolicy(policy.Text(), n[0], n[0]), nil
		}
		return lengthPolicy(policy.Text(), n[0], n[1]), nil
	case "min":
		n, err := intArgs(name, arg, 1)
		if err != nil {
			return nil, err
		}
		return rangePolicy(policy.Text(), &n[0], nil), nil
	case "max":
		n, err := intArgs(name, arg, 1)
		if err != nil {
			return nil, err
		}
		return rangePolicy(policy.Text(), nil, &n[0]), nil
	case "range":
		n, err := intArgs(name, arg, 2)
		if err != nil {
			return nil, err
		}
		return rangePolicy(policy.Text(), &n[0], &n[1]), nil
	}

	if _, ok := policyMacros[name]; ok {
		return nil, fmt.Errorf("routepattern: policy %q takes no argument", name)
	}

	return nil, fmt.Errorf("%w %q", ErrUnknownPolicy, policy.Text())
}

// intArgs parses a comma-separated integer argument list whose length must
// be one of counts.
func intArgs(name, arg string, counts ...int) ([]int64, error) {
	fields := strings.Split(arg, ",")

	valid := false
	for _, c := range counts {
		if len(fields) == c {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("routepattern: policy %q has %d arguments", name, len(fields))
	}

	out := make([]int64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("routepattern: policy %q argument %q: %w", name, f, err)
		}
		out[i] = n
	}

	return out, nil
}

// lengthPolicy matches values whose rune count is within [minLen, maxLen].
// A negative maxLen means unbounded.
func lengthPolicy(desc string, minLen, maxLen int64) valueMatcher {
	return &funcMatcher{desc: desc, fn: func(s string) bool {
		n := int64(utf8.RuneCountInString(s))
		return n >= minLen && (maxLen < 0 || n <= maxLen)
	}}
}

// rangePolicy matches integer values within the optional bounds.
func rangePolicy(desc string, lo, hi *int64) valueMatcher {
	return &funcMatcher{desc: desc, fn: func(s string) bool {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return false
		}
		return (lo == nil || n >= *lo) && (hi == nil || n <= *hi)
	}}
}

// CheckPolicies resolves every policy in the tree and reports unknown or
// malformed policies and default values their policies reject.
func CheckPolicies(tree *Tree) []diag.Diagnostic {
	var out []diag.Diagnostic

	for _, param := range tree.Parameters() {
		for _, policy := range param.Policies {
			m, err := ResolvePolicy(policy)
			if err != nil {
				out = append(out, diag.New(diag.KindUnknownPolicy, policy.Span(), param.Name, policy.Text()))
				continue
			}
			if param.HasDefault && !m.MatchString(param.Default) {
				out = append(out, diag.New(diag.KindDefaultViolatesPolicy, param.Span(),
					param.Default, param.Name, policy.Text()))
			}
		}
	}

	return out
}
