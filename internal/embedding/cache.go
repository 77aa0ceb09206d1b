package embedding

import (
	"container/list"
	"sync"
)

// labelCache keeps normalized prompt embeddings so the prompts of a category are encoded
// once per process. The least recently used prompt is evicted first.
type labelCache struct {
	mu      sync.Mutex
	limit   int
	entries map[string]*list.Element
	order   *list.List // front is most recent
}

type labelEntry struct {
	label string
	vec   []float32
}

func newLabelCache(limit int) *labelCache {
	if limit <= 0 {
		limit = 1
	}
	return &labelCache{
		limit:   limit,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// lookup returns one slot per label, filled for hits, plus the positions that missed.
func (c *labelCache) lookup(labels []string) ([][]float32, []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vecs := make([][]float32, len(labels))
	var missing []int
	for i, label := range labels {
		el, ok := c.entries[label]
		if !ok {
			missing = append(missing, i)
			continue
		}
		c.order.MoveToFront(el)
		vecs[i] = el.Value.(*labelEntry).vec
	}
	return vecs, missing
}

func (c *labelCache) add(label string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[label]; ok {
		el.Value.(*labelEntry).vec = vec
		c.order.MoveToFront(el)
		return
	}
	c.entries[label] = c.order.PushFront(&labelEntry{label: label, vec: vec})
	for c.order.Len() > c.limit {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*labelEntry).label)
	}
}

func (c *labelCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
