// Package diag defines the diagnostics shared by the route template parser,
// the ambiguous-route detector and the parameter binding classifier.
//
// A Diagnostic carries a Kind, a Severity, a Span into the analysed text and
// a formatted message:
//
//	d := diag.New(diag.KindDuplicateParameterName, diag.Span{Start: 4, End: 7}, "id")
//	fmt.Println(d.Message)
//	// The route parameter name 'id' appears more than one time in the route template.
//
// Malformed user input is always reported as diagnostics, never as Go errors.
package diag
