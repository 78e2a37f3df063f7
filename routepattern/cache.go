package routepattern

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vitalvas/routekit/diag"
)

// Cache memoizes Parse results by template text. Two textually identical
// templates share one tree regardless of where they were declared. The
// number of distinct templates is bounded by the analysed program, so the
// cache grows to a fixed size and stays there.
//
// The zero value is ready to use. A Cache is safe for concurrent use.
type Cache struct {
	entries sync.Map
	size    atomic.Int64
}

type cacheEntry struct {
	tree  *Tree
	diags []diag.Diagnostic
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Parse returns the cached parse of text, parsing and caching it on first
// use. The diagnostics slice is a copy owned by the caller.
func (c *Cache) Parse(text string) (*Tree, []diag.Diagnostic) {
	if v, ok := c.entries.Load(text); ok {
		e := v.(*cacheEntry)
		return e.tree, slices.Clone(e.diags)
	}

	tree, diags := Parse(text)
	actual, loaded := c.entries.LoadOrStore(text, &cacheEntry{tree: tree, diags: diags})
	if !loaded {
		c.size.Add(1)
	}

	e := actual.(*cacheEntry)

	return e.tree, slices.Clone(e.diags)
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	return int(c.size.Load())
}
