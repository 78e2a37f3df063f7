package routepattern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/routekit/diag"
)

func TestCache(t *testing.T) {
	t.Run("identical text shares a tree", func(t *testing.T) {
		c := NewCache()
		t1, _ := c.Parse("/users/{id}")
		t2, _ := c.Parse("/users/{id}")
		assert.Same(t, t1, t2)
		assert.Equal(t, 1, c.Len())

		t3, _ := c.Parse("/users/{name}")
		assert.NotSame(t, t1, t3)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("diagnostics are copied", func(t *testing.T) {
		c := NewCache()
		_, d1 := c.Parse("/bad/{")
		require.Len(t, d1, 1)
		d1[0].Kind = diag.KindAmbiguousRoute

		_, d2 := c.Parse("/bad/{")
		require.Len(t, d2, 1)
		assert.Equal(t, diag.KindUnterminatedParameter, d2[0].Kind)
	})

	t.Run("zero value is usable", func(t *testing.T) {
		var c Cache
		tree, _ := c.Parse("/")
		assert.NotNil(t, tree)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("concurrent access", func(t *testing.T) {
		c := NewCache()
		templates := []string{"/a/{x}", "/b/{y:int}", "/c/{*z}"}

		var wg sync.WaitGroup
		for i := range 32 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tpl := templates[i%len(templates)]
				tree, _ := c.Parse(tpl)
				assert.Equal(t, tpl, tree.Text)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, len(templates), c.Len())
	})
}

func BenchmarkCacheParse(b *testing.B) {
	c := NewCache()
	c.Parse("/users/{id:int}/posts/{slug}")

	b.ResetTimer()
	for b.Loop() {
		c.Parse("/users/{id:int}/posts/{slug}")
	}
}
