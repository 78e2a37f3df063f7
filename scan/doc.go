// Package scan extracts route declarations from Go source.
//
// It recognises registration calls whose first argument is a string
// literal template, such as
//
//	r.HandleFunc("/items/{id}", getItem).Methods(http.MethodGet)
//	mux.HandleFunc("GET /users/{id}", h.User)
//	app.Get("/files/{*path}", serveFile)
//
// and resolves the handler's parameters when it is a function literal or a
// function or method declared in the same file. Routes registered on the
// same receiver inside the same block share a Block and are checked
// against each other for ambiguity.
package scan
