package lshaped

// wCache records every evaluated w as a packed bitset.
type wCache struct {
	n    int
	seen map[string]struct{}
}

func newWCache(n int) *wCache {
	return &wCache{n: n, seen: make(map[string]struct{})}
}

func (c *wCache) key(w []bool) string {
	b := make([]byte, (c.n+7)/8)
	for i, v := range w {
		if v {
			b[i/8] |= 1 << (i % 8)
		}
	}

	return string(b)
}

// add records w and reports whether it was new.
func (c *wCache) add(w []bool) bool {
	k := c.key(w)
	if _, ok := c.seen[k]; ok {
		return false
	}
	c.seen[k] = struct{}{}

	return true
}

func (c *wCache) has(w []bool) bool {
	_, ok := c.seen[c.key(w)]
	return ok
}

func (c *wCache) len() int { return len(c.seen) }
