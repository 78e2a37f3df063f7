package routecompare

import (
	"slices"
	"strings"

	"github.com/vitalvas/routekit/diag"
	"github.com/vitalvas/routekit/routepattern"
)

// Declaration is one route registration found in a program.
type Declaration struct {
	// ID identifies the declaration to the caller, e.g. "main.go:12".
	ID string `json:"id" yaml:"id"`
	// Template is the route template as written.
	Template string `json:"template" yaml:"template"`
	// Tree is the parsed template. When nil, DetectAmbiguous parses
	// Template and skips the declaration if the parse reports errors.
	Tree *routepattern.Tree `json:"-" yaml:"-"`
	// Block identifies the lexical parent statement block. Only
	// declarations within the same block are compared.
	Block string `json:"block,omitempty" yaml:"block,omitempty"`
	// Methods are the declared HTTP methods; empty matches any method.
	Methods []string `json:"methods,omitempty" yaml:"methods,omitempty"`
	// Span locates the template token within Source.
	Span   diag.Span `json:"span" yaml:"span"`
	Source string    `json:"source,omitempty" yaml:"source,omitempty"`
}

// Collision is a group of declarations that cannot be matched
// unambiguously.
type Collision struct {
	Block   string        `json:"block,omitempty" yaml:"block,omitempty"`
	Route   string        `json:"route" yaml:"route"`
	Members []Declaration `json:"members" yaml:"members"`
}

// MethodsCollide reports whether two method sets can accept the same
// request. The sets collide when they are equal, ignoring case and order,
// or when either is empty.
func MethodsCollide(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}

	return slices.Equal(normalizeMethods(a), normalizeMethods(b))
}

func normalizeMethods(methods []string) []string {
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = strings.ToUpper(strings.TrimSpace(m))
	}
	slices.Sort(out)

	return slices.Compact(out)
}

type bucket struct {
	block string
	hash  uint64
}

// DetectAmbiguous groups declarations that share a block, an equivalent
// route and colliding method sets. Each returned collision holds at least
// two members in input order; collisions are ordered by their first member.
//
// Method collision is not transitive: an empty method set collides with
// both GET and POST, which do not collide with each other. A collision is a
// connected component of the relation.
func DetectAmbiguous(decls []Declaration) []Collision {
	trees := make([]*routepattern.Tree, len(decls))
	buckets := make(map[bucket][]int)
	var order []bucket

	for i, d := range decls {
		tree := d.Tree
		if tree == nil {
			var diags []diag.Diagnostic
			tree, diags = routepattern.Parse(d.Template)
			if diag.HasErrors(diags) {
				continue
			}
		}
		trees[i] = tree

		key := bucket{block: d.Block, hash: Hash(tree)}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], i)
	}

	type group struct {
		first   int
		members []int
	}
	var groups []group

	for _, key := range order {
		idx := buckets[key]
		if len(idx) < 2 {
			continue
		}

		parent := make([]int, len(idx))
		for i := range parent {
			parent[i] = i
		}
		find := func(i int) int {
			for parent[i] != i {
				parent[i] = parent[parent[i]]
				i = parent[i]
			}
			return i
		}

		linked := make([]bool, len(idx))
		for i := 0; i < len(idx); i++ {
			for j := i + 1; j < len(idx); j++ {
				a, b := decls[idx[i]], decls[idx[j]]
				if !MethodsCollide(a.Methods, b.Methods) || !Equivalent(trees[idx[i]], trees[idx[j]]) {
					continue
				}
				linked[i], linked[j] = true, true
				if ri, rj := find(i), find(j); ri != rj {
					parent[max(ri, rj)] = min(ri, rj)
				}
			}
		}

		components := make(map[int][]int)
		for i := range idx {
			if linked[i] {
				root := find(i)
				components[root] = append(components[root], idx[i])
			}
		}
		for _, members := range components {
			groups = append(groups, group{first: members[0], members: members})
		}
	}

	slices.SortFunc(groups, func(a, b group) int {
		return a.first - b.first
	})

	out := make([]Collision, 0, len(groups))
	for _, g := range groups {
		c := Collision{
			Block: decls[g.first].Block,
			Route: Canonical(trees[g.first]),
		}
		for _, i := range g.members {
			c.Members = append(c.Members, decls[i])
		}
		out = append(out, c)
	}

	return out
}

// Diagnostics returns one AmbiguousRoute diagnostic per collision member,
// anchored at the member's own span.
func Diagnostics(collisions []Collision) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, c := range collisions {
		for _, m := range c.Members {
			out = append(out, diag.New(diag.KindAmbiguousRoute, m.Span, m.Template))
		}
	}

	return out
}
