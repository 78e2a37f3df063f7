// Package binding classifies handler parameters by where their values come
// from and generates the code that parses them.
//
// Types are described by TypeRef, built either from reflection with TypeOf
// or from a type expression with Registry.Resolve. Classify applies the
// binding rules to one parameter against its endpoint and a table of
// well-known framework types:
//
//	ep := binding.Classify(
//		binding.Parameter{Name: "id", Type: reg.MustResolve("int")},
//		binding.Endpoint{Route: tree, Methods: []string{"GET"}},
//		binding.DefaultWellKnownTypes(),
//	)
//
// EmitParse turns a classified parameter into Go statements that convert a
// raw string into the parameter's type, setting wasParamCheckFailure when
// the value is missing or malformed.
package binding
