// Package routepattern parses route templates into immutable syntax trees.
//
// A template is a '/'-separated list of segments. Each segment holds literal
// text and '{...}' parameters:
//
//	/users/{id:int}/files/{name}.{ext?}
//	/docs/{**path}
//	/search/{term=all}
//
// A parameter is written as {[*|**]name[:policy]...[=default][?]}. Policies
// constrain the value; an argument in parentheses may contain any character,
// including ':' and '}', as in {year:regex(^\d{{4}}$)}. Doubled braces '{{'
// and '}}' are literal braces.
//
// # Parsing
//
// Parse never fails. Malformed input yields a best-effort tree plus
// diagnostics anchored at the offending text:
//
//	tree, diags := routepattern.Parse("/users/{id")
//	// diags[0].Kind == diag.KindUnterminatedParameter
//
// Every character of the input lands in exactly one node, so
// tree.String() reconstructs the template as written.
//
// # Caching
//
// Cache memoizes trees by template text. Identical templates share a tree
// regardless of where they were declared.
//
// # Matching
//
// Compile turns a tree into a Matcher that matches request paths, checks
// policies and applies default values:
//
//	m, err := routepattern.Compile(tree)
//	values, ok := m.Match("/users/42")
//
// Matcher.Build is the reverse operation and expands the template with
// route values.
//
// # Policies
//
// Known policies are int, long, bool, guid, uuid, float, double, decimal,
// datetime, date, alpha, alphanum, slug, hex, domain, required, file,
// nonfile, minlength(n), maxlength(n), length(n), length(min,max), min(n),
// max(n), range(min,max) and regex(expr). CheckPolicies reports unknown
// policies and default values that violate their policies.
package routepattern
