// Package manifest reads and writes endpoint declarations.
//
// A manifest lists the routes of an application together with their
// handler parameters, and declares the application's own types so the
// binding classifier can see their parse and bind functions:
//
//	types:
//	  - package: example.com/app
//	    name: Level
//	    kind: enum
//	    enum: [Low, High]
//	endpoints:
//	  - id: get-item
//	    route: /items/{id:int}
//	    methods: [GET]
//	    parameters:
//	      - name: id
//	        type: int
//	      - name: level
//	        type: app.Level
//
// Manifests are YAML unless the file name ends in ".json".
package manifest
