// Package routecompare decides whether route templates collide.
//
// Two templates are equivalent when they match the same paths. Parameter
// names do not matter; literal text, catch-all kind, optionality, default
// values and the ordered policy list do:
//
//	a, _ := routepattern.Parse("/users/{id}")
//	b, _ := routepattern.Parse("/users/{userId}")
//	routecompare.Equivalent(a, b) // true
//
// DetectAmbiguous applies Equivalent to route declarations that share a
// lexical block and a method set, and Diagnostics turns the resulting
// collisions into one AmbiguousRoute diagnostic per declaration.
package routecompare
